package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"BotRadar/internal/domain/models"
	"BotRadar/pkg/metrics"
)

type recordingSubmitter struct {
	got []models.TradeEvent
	err error
}

func (r *recordingSubmitter) Submit(_ context.Context, ev models.TradeEvent) error {
	if r.err != nil {
		return r.err
	}
	r.got = append(r.got, ev)
	return nil
}

func validTrade(symbol string) models.TradeEvent {
	return models.NewTradeEvent("binance", symbol, 100, 1, models.SideBuy, 1700000000, "t1", false)
}

func TestPipeline_ForwardsValid(t *testing.T) {
	sub := &recordingSubmitter{}
	p := NewRealtimePipeline(sub, metrics.Nop{})
	for i := 0; i < 5; i++ {
		if err := p.Process(context.Background(), validTrade("BTCUSDT")); err != nil {
			t.Fatalf("Process: %v", err)
		}
	}
	if len(sub.got) != 5 {
		t.Fatalf("throttle must be off by default, forwarded %d", len(sub.got))
	}
}

func TestPipeline_RejectsInvalid(t *testing.T) {
	sub := &recordingSubmitter{}
	p := NewRealtimePipeline(sub, metrics.Nop{})
	ev := validTrade("")
	if err := p.Process(context.Background(), ev); !errors.Is(err, models.ErrInvalidEvent) {
		t.Fatalf("want ErrInvalidEvent, got %v", err)
	}
	if len(sub.got) != 0 {
		t.Fatalf("invalid event forwarded")
	}
}

func TestPipeline_Throttle(t *testing.T) {
	now := time.Unix(1700000000, 0)
	sub := &recordingSubmitter{}
	p := NewRealtimePipeline(sub, metrics.Nop{},
		WithMaxRPS(2),
		WithPipelineClock(func() time.Time { return now }))

	_ = p.Process(context.Background(), validTrade("BTCUSDT"))
	_ = p.Process(context.Background(), validTrade("BTCUSDT")) // same instant, dropped
	_ = p.Process(context.Background(), validTrade("ETHUSDT")) // other key
	now = now.Add(600 * time.Millisecond)
	_ = p.Process(context.Background(), validTrade("BTCUSDT"))

	if len(sub.got) != 3 {
		t.Fatalf("forwarded %d, want 3", len(sub.got))
	}
}

func TestPipeline_TransformAndSubmitError(t *testing.T) {
	sub := &recordingSubmitter{}
	p := NewRealtimePipeline(sub, metrics.Nop{}, WithTransform(func(ev models.TradeEvent) models.TradeEvent {
		ev.Symbol = strings.ToUpper(ev.Symbol)
		return ev
	}))
	if err := p.Process(context.Background(), validTrade("btcusdt")); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if sub.got[0].Symbol != "BTCUSDT" {
		t.Fatalf("transform not applied: %s", sub.got[0].Symbol)
	}

	closed := errors.New("closed")
	p = NewRealtimePipeline(&recordingSubmitter{err: closed}, metrics.Nop{})
	if err := p.Process(context.Background(), validTrade("BTCUSDT")); !errors.Is(err, closed) {
		t.Fatalf("submit error not wrapped: %v", err)
	}
}
