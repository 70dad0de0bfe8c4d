package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"BotRadar/internal/domain/models"
	domrepo "BotRadar/internal/domain/repository"
)

// Submitter is the downstream the pipeline feeds, normally the trade analyzer.
type Submitter interface {
	Submit(ctx context.Context, ev models.TradeEvent) error
}

// RealtimePipeline sits between a trade source and the analyzer. It validates,
// optionally rewrites and throttles events before submitting them.
type RealtimePipeline struct {
	next      Submitter
	metrics   domrepo.Metrics
	maxRPS    int
	transform func(models.TradeEvent) models.TradeEvent
	now       func() time.Time

	mu       sync.Mutex
	lastSeen map[string]time.Time
}

type PipelineOption func(*RealtimePipeline)

// WithMaxRPS caps accepted trades per second per (venue, symbol). Zero, the
// default, keeps every trade: dropping trades changes what detectors see.
func WithMaxRPS(n int) PipelineOption {
	return func(p *RealtimePipeline) {
		if n >= 0 {
			p.maxRPS = n
		}
	}
}

// WithTransform rewrites each event before validation of the result.
func WithTransform(fn func(models.TradeEvent) models.TradeEvent) PipelineOption {
	return func(p *RealtimePipeline) { p.transform = fn }
}

func WithPipelineClock(now func() time.Time) PipelineOption {
	return func(p *RealtimePipeline) {
		if now != nil {
			p.now = now
		}
	}
}

func NewRealtimePipeline(next Submitter, metrics domrepo.Metrics, opts ...PipelineOption) *RealtimePipeline {
	p := &RealtimePipeline{
		next:     next,
		metrics:  metrics,
		now:      time.Now,
		lastSeen: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process validates ev and hands it to the analyzer. Throttled events are
// dropped silently and counted; invalid ones return models.ErrInvalidEvent.
func (p *RealtimePipeline) Process(ctx context.Context, ev models.TradeEvent) error {
	start := p.now()
	if p.transform != nil {
		ev = p.transform(ev)
	}
	if err := ev.Validate(); err != nil {
		p.metrics.RecordError("pipeline_validate")
		return err
	}
	if !p.allow(ev.Key(), start) {
		p.metrics.RecordError("pipeline_throttle")
		return nil
	}
	if err := p.next.Submit(ctx, ev); err != nil {
		p.metrics.RecordError("pipeline_submit")
		return fmt.Errorf("pipeline submit: %w", err)
	}
	p.metrics.RecordLatency("pipeline_submit", p.now().Sub(start).Seconds())
	return nil
}

func (p *RealtimePipeline) allow(key string, now time.Time) bool {
	if p.maxRPS <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last, ok := p.lastSeen[key]
	if ok && now.Sub(last) < time.Second/time.Duration(p.maxRPS) {
		return false
	}
	p.lastSeen[key] = now
	return true
}
