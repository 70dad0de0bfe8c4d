package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"BotRadar/internal/domain/models"
	"BotRadar/pkg/metrics"
)

type fakeStream struct {
	mu         sync.Mutex
	reads      int
	reconnects int
	batches    [][]models.TradeEvent
	connected  bool
}

func (s *fakeStream) Connect(context.Context) error   { s.connected = true; return nil }
func (s *fakeStream) Subscribe(context.Context) error { return nil }
func (s *fakeStream) Close() error                    { s.connected = false; return nil }
func (s *fakeStream) IsConnected() bool               { return s.connected }

func (s *fakeStream) Reconnect(context.Context) error {
	s.mu.Lock()
	s.reconnects++
	s.mu.Unlock()
	return nil
}

// Read replays one batch per call and then closes, simulating a drop.
func (s *fakeStream) Read(ctx context.Context) (<-chan *models.TradeEvent, <-chan error) {
	s.mu.Lock()
	var batch []models.TradeEvent
	if s.reads < len(s.batches) {
		batch = s.batches[s.reads]
	}
	s.reads++
	s.mu.Unlock()

	trades := make(chan *models.TradeEvent)
	errs := make(chan error, 1)
	go func() {
		defer close(trades)
		defer close(errs)
		for i := range batch {
			select {
			case trades <- &batch[i]:
			case <-ctx.Done():
				return
			}
		}
		if batch == nil {
			<-ctx.Done()
		}
	}()
	return trades, errs
}

type sinkFunc func(context.Context, models.TradeEvent) error

func (f sinkFunc) Process(ctx context.Context, ev models.TradeEvent) error { return f(ctx, ev) }

func TestTradeCollector_ReconnectsAndForwards(t *testing.T) {
	ev := models.NewTradeEvent("binance", "BTCUSDT", 10, 1, models.SideBuy, 1700000000, "1", false)
	stream := &fakeStream{batches: [][]models.TradeEvent{{ev, ev}, {ev}}}

	var mu sync.Mutex
	got := 0
	done := make(chan struct{})
	sink := sinkFunc(func(context.Context, models.TradeEvent) error {
		mu.Lock()
		defer mu.Unlock()
		got++
		if got == 3 {
			close(done)
		}
		return nil
	})

	c := NewTradeCollector(stream, sink, metrics.Nop{}, nil)
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("collector forwarded %d trades", got)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	stream.mu.Lock()
	defer stream.mu.Unlock()
	if stream.reconnects < 1 {
		t.Fatalf("expected a reconnect after the first drop")
	}
	if c.IsConnected() {
		t.Fatalf("stream still connected after shutdown")
	}
}
