package detection

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"BotRadar/internal/domain/models"
)

const (
	// DefaultMinWindow is the history depth below which nothing is classified.
	DefaultMinWindow = 10
	// detectorWindow is the deepest lookback any detector uses.
	detectorWindow = 50
)

// Config holds the engine tunables.
type Config struct {
	HistoryCapacity int
	MinWindow       int
	Institutional   InstitutionalConfig
	Liveness        Liveness
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		HistoryCapacity: DefaultHistoryCapacity,
		MinWindow:       DefaultMinWindow,
		Institutional:   DefaultInstitutionalConfig(),
		Liveness:        DefaultLiveness(),
	}
}

// DefaultDetectors returns the detector chain in priority order. The
// interval detector is last since it matches almost any bot.
func DefaultDetectors(cfg Config) []Detector {
	return []Detector{
		NewMarketMakerDetector(),
		NewIcebergDetector(),
		NewScalperDetector(),
		NewInstitutionalDetector(cfg.Institutional),
		NewWashTradeDetector(),
		NewIntervalDetector(),
	}
}

// Engine runs the detector chain over a rolling per-key history and feeds
// matches into a Registry. Several engines may share one registry as long
// as each (venue, symbol) is fed to exactly one of them.
type Engine struct {
	cfg       Config
	mu        sync.Mutex // guards history
	history   *History
	registry  *Registry
	detectors []Detector
	now       func() time.Time
}

type EngineOption func(*Engine)

// WithRegistry shares an existing registry instead of creating one.
func WithRegistry(r *Registry) EngineOption {
	return func(e *Engine) {
		if r != nil {
			e.registry = r
		}
	}
}

// WithClock overrides time.Now for liveness queries.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDetectors replaces the default detector chain.
func WithDetectors(ds ...Detector) EngineOption {
	return func(e *Engine) {
		if len(ds) > 0 {
			e.detectors = ds
		}
	}
}

// NewEngine creates an engine. Zero-valued config fields fall back to defaults.
func NewEngine(cfg Config, opts ...EngineOption) *Engine {
	def := DefaultConfig()
	if cfg.HistoryCapacity <= 0 {
		cfg.HistoryCapacity = def.HistoryCapacity
	}
	if cfg.MinWindow <= 0 {
		cfg.MinWindow = def.MinWindow
	}
	if cfg.Liveness.Active <= 0 || cfg.Liveness.Dormant <= cfg.Liveness.Active {
		cfg.Liveness = def.Liveness
	}
	if cfg.Institutional.MinNotional <= 0 {
		cfg.Institutional = def.Institutional
	}
	e := &Engine{
		cfg:     cfg,
		history: NewHistory(cfg.HistoryCapacity),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if e.detectors == nil {
		e.detectors = DefaultDetectors(cfg)
	}
	return e
}

// AnalyzeTrade appends ev to history and runs the detector chain. The first
// detector to match wins. A nil classification with a nil error means no
// detector fired; invalid events are rejected before touching any state.
func (e *Engine) AnalyzeTrade(ev models.TradeEvent) (*models.Classification, error) {
	if err := ev.Validate(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.history.Append(ev)
	if e.history.Len(ev.Venue, ev.Symbol) < e.cfg.MinWindow {
		e.mu.Unlock()
		return nil, nil
	}
	w := Window{
		Venue:  ev.Venue,
		Symbol: ev.Symbol,
		Events: e.history.Window(ev.Venue, ev.Symbol, detectorWindow),
	}
	e.mu.Unlock()

	for _, d := range e.detectors {
		out, ok := d.TryDetect(w)
		if !ok {
			continue
		}
		id := ActorID(d.Name(), ev.Venue, ev.Symbol, out.Signature)
		actor := e.registry.CreateOrMerge(id, out, ev)
		return &models.Classification{
			ActorID:       actor.ID,
			PatternType:   actor.PatternType,
			Subtype:       actor.Subtype,
			Confidence:    actor.Confidence,
			DirectionBias: actor.DirectionBias,
		}, nil
	}
	return nil, nil
}

// ActiveActors returns actors that are active or dormant right now.
func (e *Engine) ActiveActors() []models.DetectedActor {
	return e.ActiveActorsAt(e.now())
}

// ActiveActorsAt returns active and dormant actors as of now, most recently
// seen first.
func (e *Engine) ActiveActorsAt(now time.Time) []models.DetectedActor {
	all := e.Snapshot(now)
	out := all[:0]
	for _, a := range all {
		if a.Status != models.StatusGone {
			out = append(out, a)
		}
	}
	return out
}

// Snapshot returns every actor, gone ones included, with status computed at
// now and sorted by last_seen descending.
func (e *Engine) Snapshot(now time.Time) []models.DetectedActor {
	actors := e.registry.Snapshot()
	for i := range actors {
		actors[i].Status = e.cfg.Liveness.Status(actors[i].LastSeen, now)
	}
	sortActors(actors)
	return actors
}

// Actor looks up one actor with its status at now.
func (e *Engine) Actor(id string, now time.Time) (models.DetectedActor, error) {
	a, ok := e.registry.Get(id)
	if !ok {
		return models.DetectedActor{}, fmt.Errorf("actor %s: %w", id, ErrUnknownActor)
	}
	a.Status = e.cfg.Liveness.Status(a.LastSeen, now)
	return a, nil
}

func (e *Engine) Registry() *Registry { return e.registry }

func (e *Engine) Liveness() Liveness { return e.cfg.Liveness }

// HistoryKeys reports how many (venue, symbol) pairs this engine tracks.
func (e *Engine) HistoryKeys() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.history.Keys()
}

func sortActors(actors []models.DetectedActor) {
	sort.Slice(actors, func(i, j int) bool {
		if actors[i].LastSeen != actors[j].LastSeen {
			return actors[i].LastSeen > actors[j].LastSeen
		}
		return actors[i].ID < actors[j].ID
	})
}
