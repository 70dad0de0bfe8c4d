package usecase

import (
	"context"
	"time"

	"BotRadar/internal/domain/models"
	domrepo "BotRadar/internal/domain/repository"
	"BotRadar/internal/services/detection"
	"BotRadar/pkg/logger"
)

// Snapshotter periodically persists the actor catalog, refreshes the
// actors-by-status gauge and evicts actors past retention.
type Snapshotter struct {
	source    ActorSource
	registry  *detection.Registry
	store     domrepo.ActorStore
	metrics   domrepo.Metrics
	log       *logger.Logger
	interval  time.Duration
	retention time.Duration
	now       func() time.Time
}

// NewSnapshotter builds a snapshotter; store may be nil to only evict and
// report gauges.
func NewSnapshotter(source ActorSource, registry *detection.Registry, store domrepo.ActorStore, metrics domrepo.Metrics, log *logger.Logger, interval, retention time.Duration) *Snapshotter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Snapshotter{
		source:    source,
		registry:  registry,
		store:     store,
		metrics:   metrics,
		log:       log.Component("snapshotter"),
		interval:  interval,
		retention: retention,
		now:       time.Now,
	}
}

// Run ticks until ctx ends, then takes one final snapshot.
func (s *Snapshotter) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = s.Tick(final)
			cancel()
			return
		case <-ticker.C:
			_ = s.Tick(ctx)
		}
	}
}

// Tick runs one snapshot cycle. Eviction happens after the save so the last
// state of an evicted actor is persisted.
func (s *Snapshotter) Tick(ctx context.Context) error {
	now := s.now()
	actors := s.source.Snapshot(now)

	counts := map[models.Status]int{models.StatusActive: 0, models.StatusDormant: 0, models.StatusGone: 0}
	for _, a := range actors {
		counts[a.Status]++
	}
	for st, n := range counts {
		s.metrics.RecordActors(st, n)
	}

	var saveErr error
	if s.store != nil && len(actors) > 0 {
		start := time.Now()
		saveErr = s.store.SaveSnapshot(ctx, now, actors)
		s.metrics.RecordLatency("snapshot_save", time.Since(start).Seconds())
		if saveErr != nil {
			s.metrics.RecordError("snapshot_save")
			s.log.Error("save snapshot", logger.Int("actors", len(actors)), logger.Error(saveErr))
		}
	}

	if evicted := s.registry.Evict(now, s.retention); evicted > 0 {
		s.log.Info("evicted actors", logger.Int("count", evicted))
	}
	return saveErr
}
