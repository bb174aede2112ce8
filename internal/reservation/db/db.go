package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-theatre/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) conn(idb bun.IDB) bun.IDB {
	if idb != nil {
		return idb
	}
	return d.Bun
}

func (d *DB) CreateReservation(ctx context.Context, idb bun.IDB, reservation *models.Reservation) error {
	_, err := d.conn(idb).NewInsert().Model(reservation).Exec(ctx)
	return err
}

// ListForUser returns one page of the user's reservations, newest first, and
// the total count.
func (d *DB) ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Reservation, int, error) {
	reservations := make([]models.Reservation, 0)
	count, err := d.Bun.NewSelect().
		Model(&reservations).
		Where("reservation.user_id = ?", userID).
		OrderExpr("reservation.created_at DESC, reservation.id DESC").
		Limit(limit).
		Offset(offset).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, err
	}
	return reservations, count, nil
}

// GetForUser loads the reservation with its tickets. Returns sql.ErrNoRows when
// the reservation is missing or belongs to another user.
func (d *DB) GetForUser(ctx context.Context, idb bun.IDB, id int64, userID string) (*models.Reservation, error) {
	var reservation models.Reservation
	err := d.conn(idb).NewSelect().
		Model(&reservation).
		Relation("Tickets", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("ticket.id ASC")
		}).
		Where("reservation.id = ?", id).
		Where("reservation.user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

// DeleteReservation removes the reservation; its tickets go with it through
// the foreign key cascade.
func (d *DB) DeleteReservation(ctx context.Context, idb bun.IDB, id int64) error {
	_, err := d.conn(idb).NewDelete().
		Model((*models.Reservation)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
