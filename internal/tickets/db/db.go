package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-theatre/internal/models"
)

// DB is the ticket repository. Every method takes the connection to run on so
// callers can pass the transaction they opened; nil means the pooled Bun handle.
type DB struct {
	Bun *bun.DB
}

func (d *DB) conn(idb bun.IDB) bun.IDB {
	if idb != nil {
		return idb
	}
	return d.Bun
}

// GetHallGeometry reads the hall currently linked to the performance.
// Returns sql.ErrNoRows when the performance does not exist.
func (d *DB) GetHallGeometry(ctx context.Context, idb bun.IDB, performanceID int64) (*models.HallGeometry, error) {
	var g models.HallGeometry
	err := d.conn(idb).NewSelect().
		TableExpr("performances AS p").
		ColumnExpr("p.id AS performance_id").
		ColumnExpr("h.id AS hall_id").
		ColumnExpr("h.? AS ?", bun.Ident("rows"), bun.Ident("rows")).
		ColumnExpr("h.seats_in_row AS seats_in_row").
		Join("JOIN theatre_halls AS h ON h.id = p.theatre_hall_id").
		Where("p.id = ?", performanceID).
		Limit(1).
		Scan(ctx, &g)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (d *DB) SeatTaken(ctx context.Context, idb bun.IDB, row, seat int, performanceID int64) (bool, error) {
	return d.conn(idb).NewSelect().
		Model((*models.Ticket)(nil)).
		Where("ticket.? = ?", bun.Ident("row"), row).
		Where("ticket.seat = ?", seat).
		Where("ticket.performance_id = ?", performanceID).
		Exists(ctx)
}

func (d *DB) CreateTicket(ctx context.Context, idb bun.IDB, ticket *models.Ticket) error {
	_, err := d.conn(idb).NewInsert().Model(ticket).Exec(ctx)
	return err
}

func (d *DB) TakenSeats(ctx context.Context, idb bun.IDB, performanceID int64) ([]models.TakenSeat, error) {
	seats := make([]models.TakenSeat, 0)
	err := d.conn(idb).NewSelect().
		Model((*models.Ticket)(nil)).
		ColumnExpr("ticket.? AS ?", bun.Ident("row"), bun.Ident("row")).
		ColumnExpr("ticket.seat AS seat").
		Where("ticket.performance_id = ?", performanceID).
		OrderExpr("ticket.? ASC, ticket.seat ASC", bun.Ident("row")).
		Scan(ctx, &seats)
	if err != nil {
		return nil, err
	}
	return seats, nil
}

// PerformanceFilter narrows ListPerformanceAvailability. Zero values disable a filter.
type PerformanceFilter struct {
	PlayID int64
	IDs    []int64
}

// ListPerformanceAvailability computes tickets_available per performance in
// one aggregate query over committed tickets.
func (d *DB) ListPerformanceAvailability(ctx context.Context, idb bun.IDB, f PerformanceFilter) ([]models.PerformanceListItem, error) {
	items := make([]models.PerformanceListItem, 0)
	q := d.conn(idb).NewSelect().
		TableExpr("performances AS p").
		ColumnExpr("p.id AS id").
		ColumnExpr("p.show_time AS show_time").
		ColumnExpr("pl.title AS play_title").
		ColumnExpr("h.name AS theatre_hall_name").
		ColumnExpr("h.? * h.seats_in_row AS theatre_hall_capacity", bun.Ident("rows")).
		ColumnExpr("h.? * h.seats_in_row - COUNT(t.id) AS tickets_available", bun.Ident("rows")).
		Join("JOIN plays AS pl ON pl.id = p.play_id").
		Join("JOIN theatre_halls AS h ON h.id = p.theatre_hall_id").
		Join("LEFT JOIN tickets AS t ON t.performance_id = p.id").
		GroupExpr("p.id, p.show_time, pl.title, h.name, h.?, h.seats_in_row", bun.Ident("rows")).
		OrderExpr("p.show_time ASC, p.id ASC")

	if f.PlayID != 0 {
		q = q.Where("p.play_id = ?", f.PlayID)
	}
	if len(f.IDs) > 0 {
		q = q.Where("p.id IN (?)", bun.In(f.IDs))
	}

	if err := q.Scan(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ListTicketsForUser returns the caller's tickets ordered by performance.
func (d *DB) ListTicketsForUser(ctx context.Context, userID string) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0)
	err := d.Bun.NewSelect().
		Model(&tickets).
		Join("JOIN reservations AS r ON r.id = ticket.reservation_id").
		Where("r.user_id = ?", userID).
		OrderExpr("ticket.performance_id ASC, ticket.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// GetTicketForUser returns sql.ErrNoRows for tickets owned by someone else.
func (d *DB) GetTicketForUser(ctx context.Context, id int64, userID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Join("JOIN reservations AS r ON r.id = ticket.reservation_id").
		Where("ticket.id = ?", id).
		Where("r.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) GetTicketByID(ctx context.Context, id int64) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) ListTicketsByReservations(ctx context.Context, reservationIDs []int64) ([]models.Ticket, error) {
	tickets := make([]models.Ticket, 0)
	if len(reservationIDs) == 0 {
		return tickets, nil
	}
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("ticket.reservation_id IN (?)", bun.In(reservationIDs)).
		OrderExpr("ticket.id ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}
