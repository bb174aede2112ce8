package reservation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
)

// TxRunner is satisfied by *bun.DB.
type TxRunner interface {
	RunInTx(ctx context.Context, opts *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error
}

type ReservationDBLayer interface {
	CreateReservation(ctx context.Context, idb bun.IDB, reservation *models.Reservation) error
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Reservation, int, error)
	GetForUser(ctx context.Context, idb bun.IDB, id int64, userID string) (*models.Reservation, error)
	DeleteReservation(ctx context.Context, idb bun.IDB, id int64) error
}

// Allocator places single tickets and renders ticket views.
type Allocator interface {
	ValidateAndReserve(ctx context.Context, idb bun.IDB, req models.TicketRequest, reservationID int64) (*models.Ticket, error)
	ViewsByReservation(ctx context.Context, reservationIDs []int64) (map[int64][]models.TicketView, error)
}

type EventPublisher interface {
	PublishReservationEvent(ctx context.Context, event models.ReservationEvent) error
}

type ReservationService struct {
	Tx      TxRunner
	DB      ReservationDBLayer
	Tickets Allocator
	Events  EventPublisher
	Logger  *logger.Logger
}

func NewReservationService(tx TxRunner, db ReservationDBLayer, tickets Allocator, events EventPublisher, log *logger.Logger) *ReservationService {
	return &ReservationService{Tx: tx, DB: db, Tickets: tickets, Events: events, Logger: log}
}

// CreateReservation writes the reservation and all of its tickets in one
// transaction. The first rejected request aborts everything and comes back
// as *models.TicketRequestError carrying its position in the input; storage
// failures are returned wrapped, without the batch position.
func (s *ReservationService) CreateReservation(ctx context.Context, userID string, requests []models.TicketRequest) (*models.ReservationResult, error) {
	reservation := &models.Reservation{UserID: userID, CreatedAt: time.Now().UTC()}
	var created []models.Ticket

	err := s.Tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		created = created[:0]
		if err := s.DB.CreateReservation(ctx, tx, reservation); err != nil {
			return fmt.Errorf("failed to create reservation: %w", err)
		}

		for i, req := range requests {
			ticket, err := s.Tickets.ValidateAndReserve(ctx, tx, req, reservation.ID)
			if err != nil {
				if !models.IsTicketRejection(err) {
					return fmt.Errorf("failed to reserve ticket %d: %w", i, err)
				}
				return models.NewTicketRequestError(i, err)
			}
			created = append(created, *ticket)
		}
		return nil
	})
	if err != nil {
		var reqErr *models.TicketRequestError
		if errors.As(err, &reqErr) {
			s.Logger.Warn("RESERVE", fmt.Sprintf("Rejected reservation for user %s: %v", userID, err))
		} else {
			s.Logger.Error("RESERVE", fmt.Sprintf("Reservation for user %s failed: %v", userID, err))
		}
		return nil, err
	}

	result := &models.ReservationResult{
		ReservationID: reservation.ID,
		CreatedAt:     reservation.CreatedAt,
		TicketIDs:     make([]int64, 0, len(created)),
	}
	for _, t := range created {
		result.TicketIDs = append(result.TicketIDs, t.ID)
	}

	if len(created) == 0 {
		s.Logger.LogReservation("CREATE", reservation.ID, "empty reservation, nothing booked")
	} else {
		s.Logger.LogReservation("CREATE", reservation.ID, fmt.Sprintf("%d tickets booked", len(created)))
	}
	s.publish(ctx, models.EventReservationCreated, reservation.ID, userID, created)
	return result, nil
}

// CancelReservation deletes a reservation owned by userID together with its
// tickets, freeing the seats.
func (s *ReservationService) CancelReservation(ctx context.Context, id int64, userID string) error {
	var tickets []models.Ticket

	err := s.Tx.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		reservation, err := s.DB.GetForUser(ctx, tx, id, userID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return &models.NotFoundError{Entity: "reservation", ID: id}
			}
			return fmt.Errorf("failed to load reservation %d: %w", id, err)
		}
		tickets = reservation.Tickets
		if err := s.DB.DeleteReservation(ctx, tx, id); err != nil {
			return fmt.Errorf("failed to delete reservation %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.Logger.LogReservation("CANCEL", id, fmt.Sprintf("%d tickets released", len(tickets)))
	s.publish(ctx, models.EventReservationCancelled, id, userID, tickets)
	return nil
}

func (s *ReservationService) ListReservations(ctx context.Context, userID string, limit, offset int) ([]models.ReservationView, int, error) {
	reservations, count, err := s.DB.ListForUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", err)
	}

	views, err := s.views(ctx, reservations)
	if err != nil {
		return nil, 0, err
	}
	return views, count, nil
}

func (s *ReservationService) GetReservation(ctx context.Context, id int64, userID string) (*models.ReservationView, error) {
	reservation, err := s.DB.GetForUser(ctx, nil, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Entity: "reservation", ID: id}
		}
		return nil, fmt.Errorf("failed to load reservation %d: %w", id, err)
	}

	views, err := s.views(ctx, []models.Reservation{*reservation})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *ReservationService) views(ctx context.Context, reservations []models.Reservation) ([]models.ReservationView, error) {
	views := make([]models.ReservationView, 0, len(reservations))
	if len(reservations) == 0 {
		return views, nil
	}

	ids := make([]int64, 0, len(reservations))
	for _, r := range reservations {
		ids = append(ids, r.ID)
	}
	grouped, err := s.Tickets.ViewsByReservation(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, r := range reservations {
		tickets := grouped[r.ID]
		if tickets == nil {
			tickets = []models.TicketView{}
		}
		views = append(views, models.ReservationView{ID: r.ID, CreatedAt: r.CreatedAt, Tickets: tickets})
	}
	return views, nil
}

// publish runs after commit. Delivery failures are logged and never undo
// the reservation.
func (s *ReservationService) publish(ctx context.Context, eventType string, reservationID int64, userID string, tickets []models.Ticket) {
	if s.Events == nil {
		return
	}

	event := models.ReservationEvent{
		Type:          eventType,
		ReservationID: reservationID,
		UserID:        userID,
		Tickets:       make([]models.TakenTicket, 0, len(tickets)),
		Timestamp:     time.Now().UTC(),
	}
	for _, t := range tickets {
		event.Tickets = append(event.Tickets, models.TakenTicket{
			TicketID:      t.ID,
			PerformanceID: t.PerformanceID,
			Row:           t.Row,
			Seat:          t.Seat,
		})
	}

	if err := s.Events.PublishReservationEvent(ctx, event); err != nil {
		s.Logger.Error("KAFKA", fmt.Sprintf("Failed to publish %s for reservation %d: %v", eventType, reservationID, err))
	}
}
