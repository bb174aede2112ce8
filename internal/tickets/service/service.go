package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"

	"ms-theatre/internal/database"
	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
	ticket_db "ms-theatre/internal/tickets/db"
	qr "ms-theatre/internal/tickets/qr_generator"
)

type TicketDBLayer interface {
	GetHallGeometry(ctx context.Context, idb bun.IDB, performanceID int64) (*models.HallGeometry, error)
	SeatTaken(ctx context.Context, idb bun.IDB, row, seat int, performanceID int64) (bool, error)
	CreateTicket(ctx context.Context, idb bun.IDB, ticket *models.Ticket) error
	TakenSeats(ctx context.Context, idb bun.IDB, performanceID int64) ([]models.TakenSeat, error)
	ListPerformanceAvailability(ctx context.Context, idb bun.IDB, f ticket_db.PerformanceFilter) ([]models.PerformanceListItem, error)
	ListTicketsForUser(ctx context.Context, userID string) ([]models.Ticket, error)
	GetTicketForUser(ctx context.Context, id int64, userID string) (*models.Ticket, error)
	GetTicketByID(ctx context.Context, id int64) (*models.Ticket, error)
	ListTicketsByReservations(ctx context.Context, reservationIDs []int64) ([]models.Ticket, error)
}

type TicketService struct {
	DB     TicketDBLayer
	QR     *qr.QRGenerator
	Logger *logger.Logger
}

func NewTicketService(db TicketDBLayer, qrGen *qr.QRGenerator, log *logger.Logger) *TicketService {
	return &TicketService{DB: db, QR: qrGen, Logger: log}
}

// CheckRange verifies row and seat independently against the hall geometry.
func CheckRange(g models.HallGeometry, row, seat int) error {
	if row < 1 || row > g.Rows {
		return &models.OutOfRangeError{Field: "row", Value: row, Max: g.Rows}
	}
	if seat < 1 || seat > g.SeatsInRow {
		return &models.OutOfRangeError{Field: "seat", Value: seat, Max: g.SeatsInRow}
	}
	return nil
}

// ValidateAndReserve stages one ticket inside the caller's transaction.
// Checks run in a fixed order: the performance must exist, the seat must be
// inside the hall, and the seat must be free. The insert itself is the final
// arbiter: a unique violation from storage means another transaction claimed
// the seat first and is reported as *models.SeatTakenError.
func (s *TicketService) ValidateAndReserve(ctx context.Context, idb bun.IDB, req models.TicketRequest, reservationID int64) (*models.Ticket, error) {
	geometry, err := s.DB.GetHallGeometry(ctx, idb, req.PerformanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Entity: "performance", ID: req.PerformanceID}
		}
		return nil, fmt.Errorf("failed to load hall for performance %d: %w", req.PerformanceID, err)
	}

	if err := CheckRange(*geometry, req.Row, req.Seat); err != nil {
		return nil, err
	}

	taken, err := s.DB.SeatTaken(ctx, idb, req.Row, req.Seat, req.PerformanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to check seat: %w", err)
	}
	seatTaken := &models.SeatTakenError{Row: req.Row, Seat: req.Seat, PerformanceID: req.PerformanceID}
	if taken {
		return nil, seatTaken
	}

	ticket := &models.Ticket{
		Row:           req.Row,
		Seat:          req.Seat,
		PerformanceID: req.PerformanceID,
		ReservationID: reservationID,
	}
	if err := s.DB.CreateTicket(ctx, idb, ticket); err != nil {
		if database.IsUniqueViolation(err) {
			s.Logger.Warn("TICKET", fmt.Sprintf("Seat %d/%d of performance %d claimed concurrently", req.Row, req.Seat, req.PerformanceID))
			return nil, seatTaken
		}
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	return ticket, nil
}

// Availability derives the free seat count and the taken places from the
// committed tickets of one performance. Both numbers come from the same read,
// so TicketsAvailable + TicketsBooked always equals Capacity.
func (s *TicketService) Availability(ctx context.Context, idb bun.IDB, performanceID int64) (*models.Availability, error) {
	geometry, err := s.DB.GetHallGeometry(ctx, idb, performanceID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Entity: "performance", ID: performanceID}
		}
		return nil, fmt.Errorf("failed to load hall for performance %d: %w", performanceID, err)
	}

	taken, err := s.DB.TakenSeats(ctx, idb, performanceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list taken seats: %w", err)
	}

	capacity := geometry.Capacity()
	return &models.Availability{
		PerformanceID:    performanceID,
		Capacity:         capacity,
		TicketsBooked:    len(taken),
		TicketsAvailable: capacity - len(taken),
		TakenPlaces:      taken,
	}, nil
}

func (s *TicketService) ListPerformances(ctx context.Context, playID int64) ([]models.PerformanceListItem, error) {
	items, err := s.DB.ListPerformanceAvailability(ctx, nil, ticket_db.PerformanceFilter{PlayID: playID})
	if err != nil {
		return nil, fmt.Errorf("failed to list performances: %w", err)
	}
	return items, nil
}

// TicketViews attaches the performance list shape to every ticket.
func (s *TicketService) TicketViews(ctx context.Context, tickets []models.Ticket) ([]models.TicketView, error) {
	views := make([]models.TicketView, 0, len(tickets))
	if len(tickets) == 0 {
		return views, nil
	}

	seen := map[int64]bool{}
	var ids []int64
	for _, t := range tickets {
		if !seen[t.PerformanceID] {
			seen[t.PerformanceID] = true
			ids = append(ids, t.PerformanceID)
		}
	}

	items, err := s.DB.ListPerformanceAvailability(ctx, nil, ticket_db.PerformanceFilter{IDs: ids})
	if err != nil {
		return nil, fmt.Errorf("failed to load performances: %w", err)
	}
	byID := make(map[int64]*models.PerformanceListItem, len(items))
	for i := range items {
		byID[items[i].ID] = &items[i]
	}

	for _, t := range tickets {
		views = append(views, models.TicketView{
			ID:          t.ID,
			Row:         t.Row,
			Seat:        t.Seat,
			Reservation: t.ReservationID,
			Performance: byID[t.PerformanceID],
		})
	}
	return views, nil
}

// ViewsByReservation groups ticket views under their reservation id.
func (s *TicketService) ViewsByReservation(ctx context.Context, reservationIDs []int64) (map[int64][]models.TicketView, error) {
	tickets, err := s.DB.ListTicketsByReservations(ctx, reservationIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reservation tickets: %w", err)
	}
	views, err := s.TicketViews(ctx, tickets)
	if err != nil {
		return nil, err
	}
	grouped := make(map[int64][]models.TicketView, len(reservationIDs))
	for _, v := range views {
		grouped[v.Reservation] = append(grouped[v.Reservation], v)
	}
	return grouped, nil
}

func (s *TicketService) ListForUser(ctx context.Context, userID string) ([]models.TicketView, error) {
	tickets, err := s.DB.ListTicketsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tickets for user %s: %w", userID, err)
	}
	return s.TicketViews(ctx, tickets)
}

func (s *TicketService) GetForUser(ctx context.Context, id int64, userID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketForUser(ctx, id, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Entity: "ticket", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch ticket %d: %w", id, err)
	}
	return ticket, nil
}

func (s *TicketService) ViewForUser(ctx context.Context, id int64, userID string) (*models.TicketView, error) {
	ticket, err := s.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	views, err := s.TicketViews(ctx, []models.Ticket{*ticket})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// QRCode renders the encrypted QR image for a ticket the user owns.
func (s *TicketService) QRCode(ctx context.Context, id int64, userID string) ([]byte, error) {
	ticket, err := s.GetForUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	png, err := s.QR.GenerateEncryptedQR(*ticket)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR: %w", err)
	}
	return png, nil
}

// Verify decrypts a scanned token and confirms the ticket still exists with
// the same seat. Cancelled reservations make their tickets fail verification.
func (s *TicketService) Verify(ctx context.Context, token string) (*models.TicketView, error) {
	payload, err := s.QR.DecryptQRData(token)
	if err != nil {
		return nil, &models.ValidationError{Field: "token", Reason: err.Error()}
	}

	ticket, err := s.DB.GetTicketByID(ctx, payload.TicketID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &models.NotFoundError{Entity: "ticket", ID: payload.TicketID}
		}
		return nil, fmt.Errorf("failed to fetch ticket %d: %w", payload.TicketID, err)
	}
	if ticket.Row != payload.Row || ticket.Seat != payload.Seat || ticket.PerformanceID != payload.PerformanceID {
		s.Logger.LogSecurity("QR_MISMATCH", fmt.Sprintf("ticket %d does not match scanned payload", ticket.ID))
		return nil, &models.ValidationError{Field: "token", Reason: "ticket does not match scanned code"}
	}

	views, err := s.TicketViews(ctx, []models.Ticket{*ticket})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}
