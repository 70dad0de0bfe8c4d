package repository

import (
	"context"

	"BotRadar/internal/domain/models"
	domrepo "BotRadar/internal/domain/repository"
	pkgkafka "BotRadar/pkg/kafka"
)

// topicProducer is the slice of *kafka.Producer the publisher needs.
type topicProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// KafkaClassificationPublisher writes classifications keyed by symbol so
// every event of a market lands on one partition in order.
type KafkaClassificationPublisher struct {
	producer topicProducer
	topic    string
}

var _ domrepo.ClassificationPublisher = (*KafkaClassificationPublisher)(nil)

func NewKafkaClassificationPublisher(producer *pkgkafka.Producer, topic string) *KafkaClassificationPublisher {
	return &KafkaClassificationPublisher{producer: producer, topic: topic}
}

func classificationKey(ev *models.ClassificationEvent) []byte {
	return []byte(ev.Venue + ":" + ev.Symbol)
}

func (p *KafkaClassificationPublisher) Publish(ctx context.Context, ev *models.ClassificationEvent) error {
	return p.producer.Publish(ctx, p.topic, classificationKey(ev), ev)
}

func (p *KafkaClassificationPublisher) PublishBatch(ctx context.Context, evs []*models.ClassificationEvent) error {
	if len(evs) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, 0, len(evs))
	for _, ev := range evs {
		if ev == nil {
			continue
		}
		msgs = append(msgs, pkgkafka.Message{Key: classificationKey(ev), Value: ev})
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

// Close leaves the producer open; it is shared and closed by the app.
func (p *KafkaClassificationPublisher) Close() error { return nil }
