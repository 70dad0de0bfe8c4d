package usecase

import (
	"context"
	"sync"
	"time"

	"BotRadar/internal/domain/models"
)

const t0 = 1700000000.0

// mmFlow alternates sides every second around notional, which the
// market-maker detector matches once ten events are buffered.
func mmFlow(venue, symbol string, notional float64, n int) []models.TradeEvent {
	evs := make([]models.TradeEvent, 0, n)
	for i := 0; i < n; i++ {
		side := models.SideBuy
		if i%2 == 1 {
			side = models.SideSell
		}
		evs = append(evs, models.NewTradeEvent(venue, symbol, notional, 1, side, t0+float64(i), "", false))
	}
	return evs
}

func clockAt(secs float64) func() time.Time {
	return func() time.Time { return time.Unix(int64(secs), 0) }
}

type memPublisher struct {
	mu     sync.Mutex
	events []*models.ClassificationEvent
	closed bool
}

func (p *memPublisher) Publish(ctx context.Context, ev *models.ClassificationEvent) error {
	return p.PublishBatch(ctx, []*models.ClassificationEvent{ev})
}

func (p *memPublisher) PublishBatch(_ context.Context, evs []*models.ClassificationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evs...)
	return nil
}

func (p *memPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *memPublisher) snapshot() []*models.ClassificationEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*models.ClassificationEvent(nil), p.events...)
}

type memStore struct {
	mu    sync.Mutex
	saves [][]models.DetectedActor
	rows  map[string][]models.ActorSnapshotRow
	err   error
}

func (s *memStore) Init(context.Context) error   { return nil }
func (s *memStore) Health(context.Context) error { return s.err }
func (s *memStore) Close() error                 { return nil }

func (s *memStore) SaveSnapshot(_ context.Context, at time.Time, actors []models.DetectedActor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saves = append(s.saves, actors)
	if s.rows == nil {
		s.rows = make(map[string][]models.ActorSnapshotRow)
	}
	for _, a := range actors {
		s.rows[a.ID] = append(s.rows[a.ID], models.ActorSnapshotRow{SnapshotAt: at, ActorID: a.ID, Status: a.Status})
	}
	return nil
}

func (s *memStore) History(_ context.Context, id string, limit int) ([]models.ActorSnapshotRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.rows[id]
	if len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows, s.err
}

func (s *memStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saves)
}
