package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"ms-theatre/internal/models"
)

func CreateHall(t *testing.T, db bun.IDB, name string, rows, seats int) *models.TheatreHall {
	t.Helper()
	hall := &models.TheatreHall{Name: name, Rows: rows, SeatsInRow: seats}
	_, err := db.NewInsert().Model(hall).Exec(context.Background())
	require.NoError(t, err)
	return hall
}

func CreatePlay(t *testing.T, db bun.IDB, title string) *models.Play {
	t.Helper()
	play := &models.Play{Title: title, Description: title + " description"}
	_, err := db.NewInsert().Model(play).Exec(context.Background())
	require.NoError(t, err)
	return play
}

func CreatePerformance(t *testing.T, db bun.IDB, playID, hallID int64, showTime time.Time) *models.Performance {
	t.Helper()
	perf := &models.Performance{PlayID: playID, TheatreHallID: hallID, ShowTime: showTime.UTC()}
	_, err := db.NewInsert().Model(perf).Exec(context.Background())
	require.NoError(t, err)
	return perf
}

// Performance creates a hall of the given size, a play and one performance.
func Performance(t *testing.T, db bun.IDB, rows, seats int) *models.Performance {
	t.Helper()
	hall := CreateHall(t, db, "Main Stage", rows, seats)
	play := CreatePlay(t, db, "Hamlet")
	return CreatePerformance(t, db, play.ID, hall.ID, time.Date(2030, 1, 1, 19, 0, 0, 0, time.UTC))
}

func CreateReservation(t *testing.T, db bun.IDB, userID string) *models.Reservation {
	t.Helper()
	res := &models.Reservation{UserID: userID, CreatedAt: time.Now().UTC()}
	_, err := db.NewInsert().Model(res).Exec(context.Background())
	require.NoError(t, err)
	return res
}

func CreateTicket(t *testing.T, db bun.IDB, row, seat int, performanceID, reservationID int64) *models.Ticket {
	t.Helper()
	ticket := &models.Ticket{Row: row, Seat: seat, PerformanceID: performanceID, ReservationID: reservationID}
	_, err := db.NewInsert().Model(ticket).Exec(context.Background())
	require.NoError(t, err)
	return ticket
}

func CountTickets(t *testing.T, db bun.IDB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*models.Ticket)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}

func CountReservations(t *testing.T, db bun.IDB) int {
	t.Helper()
	n, err := db.NewSelect().Model((*models.Reservation)(nil)).Count(context.Background())
	require.NoError(t, err)
	return n
}
