package models

import (
	"time"

	"github.com/uptrace/bun"
)

type Reservation struct {
	bun.BaseModel `bun:"table:reservations,alias:reservation"`

	ID        int64     `bun:"id,pk,autoincrement"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UserID    string    `bun:"user_id,notnull"`

	Tickets []Ticket `bun:"rel:has-many,join:id=reservation_id"`
}

// Ticket claims one seat of one performance. The (row, seat, performance_id)
// triple carries a unique constraint in the schema.
type Ticket struct {
	bun.BaseModel `bun:"table:tickets,alias:ticket"`

	ID            int64 `bun:"id,pk,autoincrement"`
	Row           int   `bun:"row,notnull,unique:tickets_row_seat_performance_key"`
	Seat          int   `bun:"seat,notnull,unique:tickets_row_seat_performance_key"`
	PerformanceID int64 `bun:"performance_id,notnull,unique:tickets_row_seat_performance_key"`
	ReservationID int64 `bun:"reservation_id,notnull"`

	Performance *Performance `bun:"rel:belongs-to,join:performance_id=id"`
	Reservation *Reservation `bun:"rel:belongs-to,join:reservation_id=id"`
}

// TicketRequest is one seat selection inside a reservation request. Bounds
// are checked against the hall by the allocator, not by struct tags.
type TicketRequest struct {
	Row           int   `json:"row"`
	Seat          int   `json:"seat"`
	PerformanceID int64 `json:"performance"`
}

type ReservationRequest struct {
	Tickets []TicketRequest `json:"tickets"`
}

// ReservationResult lists the created ticket ids in the order they were requested.
type ReservationResult struct {
	ReservationID int64     `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	TicketIDs     []int64   `json:"ticket_ids"`
}

// HallGeometry is the current seating layout behind a performance.
type HallGeometry struct {
	PerformanceID int64 `bun:"performance_id"`
	HallID        int64 `bun:"hall_id"`
	Rows          int   `bun:"rows"`
	SeatsInRow    int   `bun:"seats_in_row"`
}

func (g HallGeometry) Capacity() int {
	return g.Rows * g.SeatsInRow
}

type TakenSeat struct {
	Row  int `bun:"row" json:"row"`
	Seat int `bun:"seat" json:"seat"`
}

// Availability is derived at read time from committed tickets and is never stored.
type Availability struct {
	PerformanceID    int64       `json:"performance_id"`
	Capacity         int         `json:"capacity"`
	TicketsBooked    int         `json:"tickets_booked"`
	TicketsAvailable int         `json:"tickets_available"`
	TakenPlaces      []TakenSeat `json:"taken_places"`
}

// ReservationEvent is published after a reservation commits or is cancelled.
type ReservationEvent struct {
	Type          string        `json:"type"`
	ReservationID int64         `json:"reservation_id"`
	UserID        string        `json:"user_id"`
	Tickets       []TakenTicket `json:"tickets"`
	Timestamp     time.Time     `json:"timestamp"`
}

type TakenTicket struct {
	TicketID      int64 `json:"ticket_id"`
	PerformanceID int64 `json:"performance_id"`
	Row           int   `json:"row"`
	Seat          int   `json:"seat"`
}

const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
)
