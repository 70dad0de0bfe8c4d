package detection

import (
	"math"
	"strconv"
	"strings"

	"BotRadar/internal/domain/models"
	"BotRadar/internal/services/features"
)

const (
	institutionalBucket         = 10000.0
	institutionalBaseConfidence = 0.6
	institutionalStep           = 0.05
	institutionalMaxConfidence  = 0.95
)

// InstitutionalConfig tunes the large-block heuristic. It is a coarse guess
// (big prints in a given asset during a given session), not a validated
// attribution.
type InstitutionalConfig struct {
	MinNotional  float64
	StartHourUTC int
	EndHourUTC   int
	AssetFilter  string
}

// DefaultInstitutionalConfig is $50k+ BTC prints between 13:00 and 16:00 UTC.
func DefaultInstitutionalConfig() InstitutionalConfig {
	return InstitutionalConfig{
		MinNotional:  50000,
		StartHourUTC: 13,
		EndHourUTC:   16,
		AssetFilter:  "BTC",
	}
}

// InstitutionalDetector flags single large blocks. Its confidence grows with
// every repeat of the same size bucket rather than being recomputed.
type InstitutionalDetector struct {
	cfg InstitutionalConfig
}

func NewInstitutionalDetector(cfg InstitutionalConfig) *InstitutionalDetector {
	return &InstitutionalDetector{cfg: cfg}
}

func (d *InstitutionalDetector) Name() string { return string(models.PatternInstitutional) }

func (d *InstitutionalDetector) inSession(hour int) bool {
	start, end := d.cfg.StartHourUTC, d.cfg.EndHourUTC
	if start == end {
		return true
	}
	if start < end {
		return hour >= start && hour < end
	}
	// session wraps midnight
	return hour >= start || hour < end
}

func (d *InstitutionalDetector) matchesAsset(symbol string) bool {
	if d.cfg.AssetFilter == "" {
		return true
	}
	return strings.Contains(strings.ToUpper(symbol), strings.ToUpper(d.cfg.AssetFilter))
}

func (d *InstitutionalDetector) TryDetect(w Window) (Output, bool) {
	cur := w.Latest()
	if cur.Notional <= d.cfg.MinNotional {
		return Output{}, false
	}
	if !d.inSession(cur.Time().Hour()) || !d.matchesAsset(w.Symbol) {
		return Output{}, false
	}

	blocks := make([]models.TradeEvent, 0, 4)
	for i := range w.Events {
		if w.Events[i].Notional > d.cfg.MinNotional {
			blocks = append(blocks, w.Events[i])
		}
	}
	bucket := int64(math.Floor(cur.Notional / institutionalBucket))
	return Output{
		Pattern:            models.PatternInstitutional,
		Signature:          strconv.FormatInt(bucket, 10),
		Confidence:         institutionalBaseConfidence,
		ConfidenceStep:     institutionalStep,
		ConfidenceCap:      institutionalMaxConfidence,
		DirectionBias:      features.DirectionBias(blocks),
		AvgTradeSize:       features.Mean(features.Notionals(blocks)),
		AvgIntervalSeconds: features.MeanInterval(blocks),
	}, true
}
