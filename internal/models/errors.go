package models

import (
	"errors"
	"fmt"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrUnauthenticated  = errors.New("authentication credentials were not provided")
)

// OutOfRangeError reports a row or seat outside the hall currently linked to a performance.
type OutOfRangeError struct {
	Field string
	Value int
	Max   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("%s number must be in available range: (1, %d), got %d", e.Field, e.Max, e.Value)
}

// SeatTakenError is returned whether the conflict was found by the pre-check or
// raised by the storage unique constraint at write time.
type SeatTakenError struct {
	Row           int
	Seat          int
	PerformanceID int64
}

func (e *SeatTakenError) Error() string {
	return fmt.Sprintf("seat %d in row %d is already taken for performance %d", e.Seat, e.Row, e.PerformanceID)
}

type NotFoundError struct {
	Entity string
	ID     interface{}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// ConflictError covers uniqueness violations outside the seat space, such as a
// duplicate play title.
type ConflictError struct {
	Entity string
	Field  string
	Value  string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %q already exists", e.Entity, e.Field, e.Value)
}

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// TicketRequestError pins a failure to one entry of a reservation batch.
type TicketRequestError struct {
	Index  int
	Field  string
	Reason string
	Err    error
}

func (e *TicketRequestError) Error() string {
	return fmt.Sprintf("tickets[%d].%s: %s", e.Index, e.Field, e.Reason)
}

func (e *TicketRequestError) Unwrap() error {
	return e.Err
}

// IsTicketRejection reports whether err rejects a seat request on its merits:
// out of range, already taken, or an unknown performance. Anything else is a
// server-side failure.
func IsTicketRejection(err error) bool {
	var (
		outOfRange *OutOfRangeError
		seatTaken  *SeatTakenError
		notFound   *NotFoundError
	)
	return errors.As(err, &outOfRange) || errors.As(err, &seatTaken) || errors.As(err, &notFound)
}

// NewTicketRequestError derives the offending field from the underlying error.
func NewTicketRequestError(index int, err error) *TicketRequestError {
	field := "non_field_errors"
	var outOfRange *OutOfRangeError
	var notFound *NotFoundError
	switch {
	case errors.As(err, &outOfRange):
		field = outOfRange.Field
	case errors.As(err, &notFound):
		field = "performance"
	}
	return &TicketRequestError{Index: index, Field: field, Reason: err.Error(), Err: err}
}
