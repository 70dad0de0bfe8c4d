package repository

import (
	"context"

	"BotRadar/internal/domain/models"
	domrepo "BotRadar/internal/domain/repository"
)

type listQueue interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
	PublishBatch(ctx context.Context, msgType string, payloads []interface{}) error
}

// RedisClassificationPublisher pushes classifications onto a capped redis
// list for dashboards that poll the most recent events.
type RedisClassificationPublisher struct {
	q listQueue
}

var _ domrepo.ClassificationPublisher = (*RedisClassificationPublisher)(nil)

func NewRedisClassificationPublisher(q listQueue) *RedisClassificationPublisher {
	return &RedisClassificationPublisher{q: q}
}

func (p *RedisClassificationPublisher) Publish(ctx context.Context, ev *models.ClassificationEvent) error {
	return p.q.PublishMessage(ctx, models.ClassificationMessageType, ev)
}

func (p *RedisClassificationPublisher) PublishBatch(ctx context.Context, evs []*models.ClassificationEvent) error {
	if len(evs) == 0 {
		return nil
	}
	payloads := make([]interface{}, 0, len(evs))
	for _, ev := range evs {
		if ev != nil {
			payloads = append(payloads, ev)
		}
	}
	return p.q.PublishBatch(ctx, models.ClassificationMessageType, payloads)
}

func (p *RedisClassificationPublisher) Close() error { return nil }
