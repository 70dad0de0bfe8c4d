package repository

import (
	"context"
	"time"

	"BotRadar/internal/domain/models"
)

// MarketStream is a venue feed that yields normalized trades.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.TradeEvent, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// ClassificationPublisher forwards classifications to downstream alerting/display tools.
type ClassificationPublisher interface {
	Publish(ctx context.Context, ev *models.ClassificationEvent) error
	PublishBatch(ctx context.Context, evs []*models.ClassificationEvent) error
	Close() error
}

// ActorStore persists periodic actor snapshots.
type ActorStore interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, at time.Time, actors []models.DetectedActor) error
	History(ctx context.Context, actorID string, limit int) ([]models.ActorSnapshotRow, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordTradeAnalyzed(venue, symbol string)
	RecordClassification(pattern models.PatternType)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	RecordActors(status models.Status, n int)
	RecordQueueDepth(shard string, n int)
}
