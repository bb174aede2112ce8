package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"ms-theatre/internal/logger"
	"ms-theatre/internal/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	writer messageWriter
	topic  string
	logger *logger.Logger
}

func NewProducer(brokers []string, topic string, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return &Producer{writer: writer, topic: topic, logger: log}
}

// PublishReservationEvent keys messages by reservation id so the created and
// cancelled events of one reservation stay ordered on a partition.
func (p *Producer) PublishReservationEvent(ctx context.Context, event models.ReservationEvent) error {
	msgBytes, err := json.Marshal(event)
	if err != nil {
		return err
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ReservationID, 10)),
		Value: msgBytes,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s for reservation %d: %w", event.Type, event.ReservationID, err)
	}
	p.logger.LogKafka("PUBLISH", p.topic, fmt.Sprintf("%s reservation=%d", event.Type, event.ReservationID))
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
