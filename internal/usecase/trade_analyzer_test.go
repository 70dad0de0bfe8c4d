package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"BotRadar/internal/domain/models"
	"BotRadar/internal/services/detection"
	"BotRadar/pkg/metrics"
)

func newAnalyzer(pub *memPublisher, shards int) *TradeAnalyzer {
	cfg := AnalyzerConfig{Shards: shards, QueueSize: 8, Detection: detection.DefaultConfig()}
	if pub == nil {
		return NewTradeAnalyzer(cfg, nil, metrics.Nop{}, nil, WithAnalyzerClock(clockAt(t0+30)))
	}
	return NewTradeAnalyzer(cfg, pub, metrics.Nop{}, nil, WithAnalyzerClock(clockAt(t0+30)))
}

func TestTradeAnalyzer_ShardsShareRegistry(t *testing.T) {
	pub := &memPublisher{}
	a := newAnalyzer(pub, 4)
	ctx := context.Background()

	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	for _, sym := range symbols {
		for _, ev := range mmFlow("binance", sym, 500, 20) {
			if err := a.Submit(ctx, ev); err != nil {
				t.Fatalf("Submit: %v", err)
			}
		}
	}
	if err := a.Close(ctx); err != nil {
		t.Fatalf("Close: %v", err)
	}

	actors := a.ActiveActors()
	if len(actors) != len(symbols) {
		t.Fatalf("want %d actors, got %d", len(symbols), len(actors))
	}
	for _, act := range actors {
		if act.PatternType != models.PatternMarketMaker || act.TradeCount != 11 {
			t.Fatalf("unexpected actor %+v", act)
		}
	}
	if got := len(pub.snapshot()); got != 11*len(symbols) {
		t.Fatalf("published %d classifications, want %d", got, 11*len(symbols))
	}
	ev := pub.snapshot()[0]
	if ev.Venue != "binance" || ev.ActorID == "" || ev.PatternType != models.PatternMarketMaker {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestTradeAnalyzer_SubmitAfterClose(t *testing.T) {
	a := newAnalyzer(nil, 1)
	_ = a.Close(context.Background())
	ev := mmFlow("binance", "BTCUSDT", 500, 1)[0]
	if err := a.Submit(context.Background(), ev); !errors.Is(err, ErrAnalyzerClosed) {
		t.Fatalf("want ErrAnalyzerClosed, got %v", err)
	}
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestTradeAnalyzer_RejectsInvalid(t *testing.T) {
	a := newAnalyzer(nil, 1)
	defer a.Close(context.Background())
	ev := mmFlow("binance", "BTCUSDT", 500, 1)[0]
	ev.Side = "hold"
	if err := a.Submit(context.Background(), ev); !errors.Is(err, models.ErrInvalidEvent) {
		t.Fatalf("want ErrInvalidEvent, got %v", err)
	}
}

// blockingPublisher holds the publisher goroutine so the bounded channel
// fills and further classifications are dropped instead of stalling shards.
type blockingPublisher struct {
	memPublisher
	release chan struct{}
}

func (p *blockingPublisher) PublishBatch(ctx context.Context, evs []*models.ClassificationEvent) error {
	<-p.release
	return p.memPublisher.PublishBatch(ctx, evs)
}

func TestTradeAnalyzer_PublishNeverBlocksShards(t *testing.T) {
	pub := &blockingPublisher{release: make(chan struct{})}
	cfg := AnalyzerConfig{Shards: 1, QueueSize: 4, PublishBuffer: 1, Detection: detection.DefaultConfig()}
	a := NewTradeAnalyzer(cfg, pub, metrics.Nop{}, nil)

	done := make(chan struct{})
	go func() {
		for _, ev := range mmFlow("binance", "BTCUSDT", 500, 200) {
			_ = a.Submit(context.Background(), ev)
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatalf("submit stalled behind a blocked publisher")
	}
	close(pub.release)
	if err := a.Close(context.Background()); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := len(pub.snapshot()); n == 0 || n >= 191 {
		t.Fatalf("expected some but not all classifications published, got %d", n)
	}
}

func TestTradeAnalyzer_SubmitHonoursContext(t *testing.T) {
	cfg := AnalyzerConfig{Shards: 1, QueueSize: 1, Detection: detection.DefaultConfig()}
	a := NewTradeAnalyzer(cfg, nil, metrics.Nop{}, nil)
	defer a.Close(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ev := mmFlow("binance", "BTCUSDT", 500, 1)[0]
	// With a cancelled context Submit returns either nil (queue had room) or
	// ctx.Err(), never blocks.
	for i := 0; i < 10; i++ {
		if err := a.Submit(ctx, ev); err != nil && !errors.Is(err, context.Canceled) {
			t.Fatalf("unexpected error %v", err)
		}
	}
}
