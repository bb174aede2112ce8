package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublishReservationEvent(t *testing.T) {
	w := &fakeWriter{}
	var out bytes.Buffer
	p := &Producer{writer: w, topic: "reservation-events", logger: logger.New(&out)}

	event := models.ReservationEvent{
		Type:          models.EventReservationCreated,
		ReservationID: 42,
		UserID:        "user-1",
		Tickets:       []models.TakenTicket{{TicketID: 7, PerformanceID: 3, Row: 2, Seat: 5}},
		Timestamp:     time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishReservationEvent(context.Background(), event))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "reservation.created", string(msg.Headers[0].Value))

	var decoded models.ReservationEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, event, decoded)
	assert.Contains(t, out.String(), "reservation=42")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublishReservationEventError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := &Producer{writer: w, topic: "reservation-events", logger: logger.Discard()}

	err := p.PublishReservationEvent(context.Background(), models.ReservationEvent{Type: models.EventReservationCancelled, ReservationID: 1})
	assert.ErrorContains(t, err, "broker down")
}

func TestEnsureTopicsExistNoBrokers(t *testing.T) {
	assert.Error(t, EnsureTopicsExist(nil, []string{"t"}, logger.Discard()))
}
