package repository

import (
	"context"

	"FinCast/internal/domain/models"
	domrepo "FinCast/internal/domain/repository"
	pkgkafka "FinCast/pkg/kafka"
	applogger "FinCast/pkg/logger"
)

// messageProducer is the subset of pkg/kafka.Producer the publishers need.
type messageProducer interface {
	Send(ctx context.Context, topic string, msgs ...pkgkafka.Message) error
}

// KafkaEventPublisher publishes forecast events to Kafka, keyed by user so
// one user's events stay ordered on a partition.
type KafkaEventPublisher struct {
	producer messageProducer
	topic    string
}

func NewKafkaEventPublisher(producer messageProducer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) Publish(ctx context.Context, ev *models.ForecastEvent) error {
	key := ev.UserID
	if key == "" {
		key = ev.ID
	}
	return p.producer.Send(ctx, p.topic, pkgkafka.Message{
		Key:     []byte(key),
		Value:   ev,
		Headers: map[string]string{pkgkafka.TraceHeader: ev.ID},
	})
}

// Close is a no-op: the producer is shared and closed by its owner.
func (p *KafkaEventPublisher) Close() error {
	return nil
}

// KafkaLogPublisher ships aggregated log batches from the logger collector.
type KafkaLogPublisher struct {
	producer messageProducer
}

func NewKafkaLogPublisher(producer messageProducer) *KafkaLogPublisher {
	return &KafkaLogPublisher{producer: producer}
}

func (p *KafkaLogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Send(ctx, topic, pkgkafka.Message{Value: payload})
}

var (
	_ domrepo.EventPublisher = (*KafkaEventPublisher)(nil)
	_ applogger.Publisher    = (*KafkaLogPublisher)(nil)
	_ messageProducer        = (*pkgkafka.Producer)(nil)
)
