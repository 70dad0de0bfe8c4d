package detection

import (
	"math"

	"BotRadar/internal/domain/models"
	"BotRadar/internal/services/features"
)

const (
	intervalLookback      = 20
	intervalMaxRelStdDev  = 0.2
	intervalMinMean       = 0.1
	intervalMinConfidence = 0.5
)

// IntervalDetector is the catch-all: any flow arriving on a tight, non-trivial
// clock is some kind of bot. The mean interval picks the subtype.
type IntervalDetector struct{}

func NewIntervalDetector() *IntervalDetector { return &IntervalDetector{} }

func (d *IntervalDetector) Name() string { return string(models.PatternInterval) }

func intervalSubtype(mean float64) string {
	switch {
	case mean < 2:
		return models.SubtypeMarketMaker
	case mean < 30:
		return models.SubtypeScalper
	case mean < 300:
		return models.SubtypeGridBot
	default:
		return models.SubtypeMomentumChaser
	}
}

func (d *IntervalDetector) TryDetect(w Window) (Output, bool) {
	evs := w.Last(intervalLookback)
	ivs := features.Intervals(evs)
	if len(ivs) == 0 {
		return Output{}, false
	}
	mean := features.Mean(ivs)
	if mean <= intervalMinMean {
		return Output{}, false
	}
	std := features.StdDev(ivs)
	if std >= intervalMaxRelStdDev*mean {
		return Output{}, false
	}
	subtype := intervalSubtype(mean)
	return Output{
		Pattern:            models.PatternInterval,
		Subtype:            subtype,
		Signature:          subtype,
		Confidence:         math.Max(intervalMinConfidence, 1-std/mean),
		DirectionBias:      features.DirectionBias(evs),
		AvgTradeSize:       features.Mean(features.Notionals(evs)),
		AvgIntervalSeconds: mean,
	}, true
}
