package detection

import (
	"math"
	"sync"
	"time"

	"BotRadar/internal/domain/models"
)

const (
	maxConfidence    = 0.99
	maxSampleTrades  = 10
	defaultRetention = 24 * time.Hour
)

// Registry owns every DetectedActor. Writers hold the lock only for the
// duration of one create-or-merge; readers get copies.
type Registry struct {
	mu     sync.RWMutex
	actors map[string]*models.DetectedActor
}

func NewRegistry() *Registry {
	return &Registry{actors: make(map[string]*models.DetectedActor)}
}

// CreateOrMerge applies one detector match for ev to the actor id and
// returns a copy of the updated record.
func (r *Registry) CreateOrMerge(id string, out Output, ev models.TradeEvent) models.DetectedActor {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.actors[id]
	if !ok {
		a = &models.DetectedActor{
			ID:                  id,
			PatternType:         out.Pattern,
			Subtype:             out.Subtype,
			Venue:               ev.Venue,
			Symbol:              ev.Symbol,
			FirstSeen:           ev.Timestamp,
			LastSeen:            ev.Timestamp,
			TradeCount:          1,
			TotalVolumeNotional: ev.Notional,
			Confidence:          clampConfidence(out.Confidence),
		}
		r.actors[id] = a
	} else {
		a.TradeCount++
		a.TotalVolumeNotional += ev.Notional
		// out-of-order feeds must not move last_seen backwards
		if ev.Timestamp > a.LastSeen {
			a.LastSeen = ev.Timestamp
		}
		if out.ConfidenceStep > 0 {
			a.Confidence = clampConfidence(math.Min(a.Confidence+out.ConfidenceStep, out.ConfidenceCap))
		} else {
			a.Confidence = clampConfidence(out.Confidence)
		}
	}
	a.AvgTradeSize = out.AvgTradeSize
	a.AvgIntervalSeconds = out.AvgIntervalSeconds
	a.DirectionBias = clampBias(out.DirectionBias)

	a.SampleTrades = append(a.SampleTrades, ev)
	if n := len(a.SampleTrades); n > maxSampleTrades {
		a.SampleTrades = append(a.SampleTrades[:0:0], a.SampleTrades[n-maxSampleTrades:]...)
	}
	return copyActor(a)
}

// Get returns a copy of the actor, if known.
func (r *Registry) Get(id string) (models.DetectedActor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.actors[id]
	if !ok {
		return models.DetectedActor{}, false
	}
	return copyActor(a), true
}

// Snapshot copies every actor. Order is unspecified.
func (r *Registry) Snapshot() []models.DetectedActor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.DetectedActor, 0, len(r.actors))
	for _, a := range r.actors {
		out = append(out, copyActor(a))
	}
	return out
}

// Evict drops actors whose age reached retention and returns how many
// were removed. A non-positive retention uses the 24h default.
func (r *Registry) Evict(now time.Time, retention time.Duration) int {
	if retention <= 0 {
		retention = defaultRetention
	}
	cutoff := epochSeconds(now) - retention.Seconds()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, a := range r.actors {
		if a.LastSeen <= cutoff {
			delete(r.actors, id)
			n++
		}
	}
	return n
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actors)
}

func copyActor(a *models.DetectedActor) models.DetectedActor {
	c := *a
	if len(a.SampleTrades) > 0 {
		c.SampleTrades = append([]models.TradeEvent(nil), a.SampleTrades...)
	}
	return c
}

func clampConfidence(c float64) float64 {
	if math.IsNaN(c) || c < 0 {
		return 0
	}
	return math.Min(c, maxConfidence)
}

func clampBias(b float64) float64 {
	if math.IsNaN(b) {
		return 0
	}
	return math.Max(-1, math.Min(1, b))
}
