package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const producerName = "ordercore"

// kafkaWriter is the subset of kafka.Writer the publisher uses.
type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher ships order events to a single topic, keyed by order id so
// per-order ordering is preserved within a partition.
type KafkaPublisher struct {
	writer kafkaWriter
	logger *slog.Logger
}

// NewKafkaPublisher builds the publisher over the given brokers and topic.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			Async:        true,
		},
		logger: logger,
	}
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func (p *KafkaPublisher) OrderCreated(ctx context.Context, payload OrderCreatedPayload) {
	payload.Envelope = p.stamp(payload.Envelope, TypeOrderCreated)
	p.emit(ctx, payload.OrderID, payload)
}

func (p *KafkaPublisher) OrderStatusUpdated(ctx context.Context, payload StatusUpdatedPayload) {
	payload.Envelope = p.stamp(payload.Envelope, TypeOrderStatusUpdated)
	p.emit(ctx, payload.OrderID, payload)
}

func (p *KafkaPublisher) OrderCancelled(ctx context.Context, payload StatusUpdatedPayload) {
	payload.Envelope = p.stamp(payload.Envelope, TypeOrderCancelled)
	p.emit(ctx, payload.OrderID, payload)
}

func (p *KafkaPublisher) stamp(env Envelope, eventType string) Envelope {
	env.EventID = uuid.NewString()
	env.EventType = eventType
	env.OccurredAt = time.Now().UTC()
	env.Producer = producerName
	return env
}

func (p *KafkaPublisher) emit(ctx context.Context, orderID int64, payload any) {
	value, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("marshal event failed", slog.String("error", err.Error()))
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(orderID, 10)),
		Value: value,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		// Best effort only: the order mutation already committed.
		p.logger.Error("publish event failed",
			slog.Int64("order_id", orderID),
			slog.String("error", err.Error()))
	}
}
