package usecase

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"BotRadar/internal/domain/models"
	domrepo "BotRadar/internal/domain/repository"
	"BotRadar/internal/services/detection"
	"BotRadar/pkg/logger"
)

// ErrAnalyzerClosed is returned by Submit after Close.
var ErrAnalyzerClosed = errors.New("trade analyzer closed")

const publishBatchSize = 100

// AnalyzerConfig sizes the analyzer.
type AnalyzerConfig struct {
	Shards        int
	QueueSize     int
	PublishBuffer int
	Detection     detection.Config
}

// TradeAnalyzer fans trades out to shard engines by hash(venue, symbol), so
// every key is owned by one goroutine. All shards share one registry.
// Matches are handed to a publisher goroutine through a bounded channel.
type TradeAnalyzer struct {
	log      *logger.Logger
	metrics  domrepo.Metrics
	registry *detection.Registry
	shards   []*shard
	pub      domrepo.ClassificationPublisher
	pubCh    chan *models.ClassificationEvent

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
	pubWG  sync.WaitGroup
}

type shard struct {
	name   string
	engine *detection.Engine
	in     chan models.TradeEvent
}

type AnalyzerOption func(*analyzerOptions)

type analyzerOptions struct {
	now func() time.Time
}

// WithAnalyzerClock sets the clock used for liveness queries.
func WithAnalyzerClock(now func() time.Time) AnalyzerOption {
	return func(o *analyzerOptions) { o.now = now }
}

// NewTradeAnalyzer starts the shard loops. pub may be nil to disable output.
func NewTradeAnalyzer(cfg AnalyzerConfig, pub domrepo.ClassificationPublisher, metrics domrepo.Metrics, log *logger.Logger, opts ...AnalyzerOption) *TradeAnalyzer {
	var o analyzerOptions
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.Shards <= 0 {
		cfg.Shards = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.PublishBuffer <= 0 {
		cfg.PublishBuffer = 1024
	}
	if log == nil {
		log = logger.Nop()
	}

	a := &TradeAnalyzer{
		log:      log.Component("analyzer"),
		metrics:  metrics,
		registry: detection.NewRegistry(),
		pub:      pub,
	}
	engineOpts := []detection.EngineOption{detection.WithRegistry(a.registry)}
	if o.now != nil {
		engineOpts = append(engineOpts, detection.WithClock(o.now))
	}
	for i := 0; i < cfg.Shards; i++ {
		s := &shard{
			name:   strconv.Itoa(i),
			engine: detection.NewEngine(cfg.Detection, engineOpts...),
			in:     make(chan models.TradeEvent, cfg.QueueSize),
		}
		a.shards = append(a.shards, s)
		a.wg.Add(1)
		go a.run(s)
	}
	if pub != nil {
		a.pubCh = make(chan *models.ClassificationEvent, cfg.PublishBuffer)
		a.pubWG.Add(1)
		go a.publishLoop()
	}
	a.log.Info("trade analyzer started", logger.Int("shards", cfg.Shards), logger.Int("queue_size", cfg.QueueSize))
	return a
}

func (a *TradeAnalyzer) shardFor(ev models.TradeEvent) *shard {
	h := xxhash.Sum64String(ev.Venue + "\x00" + ev.Symbol)
	return a.shards[h%uint64(len(a.shards))]
}

// Submit validates ev and queues it on its shard, blocking while the queue is
// full. It returns ctx.Err() if ctx ends first.
func (a *TradeAnalyzer) Submit(ctx context.Context, ev models.TradeEvent) error {
	if err := ev.Validate(); err != nil {
		a.metrics.RecordError("invalid_event")
		return err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ErrAnalyzerClosed
	}
	s := a.shardFor(ev)
	select {
	case s.in <- ev:
		a.metrics.RecordQueueDepth(s.name, len(s.in))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *TradeAnalyzer) run(s *shard) {
	defer a.wg.Done()
	for ev := range s.in {
		start := time.Now()
		cls, err := s.engine.AnalyzeTrade(ev)
		a.metrics.RecordLatency("analyze_trade", time.Since(start).Seconds())
		if err != nil {
			a.metrics.RecordError("analyze")
			a.log.Warn("analyze trade", logger.String("symbol", ev.Symbol), logger.Error(err))
			continue
		}
		a.metrics.RecordTradeAnalyzed(ev.Venue, ev.Symbol)
		if cls == nil {
			continue
		}
		a.metrics.RecordClassification(cls.PatternType)
		a.emit(newClassificationEvent(cls, ev))
	}
}

func newClassificationEvent(cls *models.Classification, ev models.TradeEvent) *models.ClassificationEvent {
	return &models.ClassificationEvent{
		ActorID:       cls.ActorID,
		PatternType:   cls.PatternType,
		Subtype:       cls.Subtype,
		Venue:         ev.Venue,
		Symbol:        ev.Symbol,
		Confidence:    cls.Confidence,
		DirectionBias: cls.DirectionBias,
		TradeID:       ev.TradeID,
		Timestamp:     ev.Timestamp,
	}
}

// emit never blocks the shard loop; a full channel drops the event.
func (a *TradeAnalyzer) emit(ce *models.ClassificationEvent) {
	if a.pubCh == nil {
		return
	}
	select {
	case a.pubCh <- ce:
	default:
		a.metrics.RecordError("publish_drop")
	}
}

func (a *TradeAnalyzer) publishLoop() {
	defer a.pubWG.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	batch := make([]*models.ClassificationEvent, 0, publishBatchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := a.pub.PublishBatch(ctx, batch)
		cancel()
		if err != nil {
			a.metrics.RecordError("publish")
			a.log.Error("publish classifications", logger.Int("count", len(batch)), logger.Error(err))
		}
		batch = batch[:0]
	}

	for {
		select {
		case ce, ok := <-a.pubCh:
			if !ok {
				flush()
				return
			}
			batch = append(batch, ce)
			if len(batch) >= publishBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// Close stops accepting trades, drains every shard queue and flushes pending
// classifications. It is safe to call more than once.
func (a *TradeAnalyzer) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	for _, s := range a.shards {
		close(s.in)
	}
	a.mu.Unlock()

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		if a.pubCh != nil {
			close(a.pubCh)
			a.pubWG.Wait()
		}
		close(done)
	}()
	select {
	case <-done:
		a.log.Info("trade analyzer drained")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Engine returns a shard engine for queries. All shards share the registry
// and liveness windows, so any of them answers the same.
func (a *TradeAnalyzer) Engine() *detection.Engine { return a.shards[0].engine }

func (a *TradeAnalyzer) Registry() *detection.Registry { return a.registry }

// ActiveActors returns Active and Dormant actors across all shards.
func (a *TradeAnalyzer) ActiveActors() []models.DetectedActor { return a.Engine().ActiveActors() }
