package detection

import (
	"math"

	"BotRadar/internal/domain/models"
	"BotRadar/internal/services/features"
)

const (
	scalperLookback      = 30
	scalperMaxPairWindow = 60.0
	scalperSizeTolerance = 0.2
	scalperMinPairs      = 3
	scalperMaxConfidence = 0.85
	// not measured; a round-trip placeholder
	scalperAvgInterval = 5.0
)

// ScalperDetector counts quick in-and-out round trips: opposite-side trades
// of similar size within a minute of each other.
type ScalperDetector struct{}

func NewScalperDetector() *ScalperDetector { return &ScalperDetector{} }

func (d *ScalperDetector) Name() string { return string(models.PatternScalper) }

func (d *ScalperDetector) TryDetect(w Window) (Output, bool) {
	evs := w.Last(scalperLookback)
	paired := make([]bool, len(evs))
	pairs := 0
	for i := 0; i < len(evs); i++ {
		for j := i + 1; j < len(evs); j++ {
			if evs[i].Side == evs[j].Side {
				continue
			}
			if math.Abs(evs[j].Timestamp-evs[i].Timestamp) >= scalperMaxPairWindow {
				continue
			}
			si, sj := evs[i].Notional, evs[j].Notional
			if math.Abs(si-sj)/math.Max(si, 1) >= scalperSizeTolerance {
				continue
			}
			pairs++
			paired[i], paired[j] = true, true
		}
	}
	if pairs < scalperMinPairs {
		return Output{}, false
	}

	legs := make([]models.TradeEvent, 0, len(evs))
	for i := range evs {
		if paired[i] {
			legs = append(legs, evs[i])
		}
	}
	return Output{
		Pattern:            models.PatternScalper,
		Signature:          d.Name(),
		Confidence:         math.Min(float64(pairs)/10, scalperMaxConfidence),
		DirectionBias:      features.DirectionBias(legs),
		AvgTradeSize:       features.Mean(features.Notionals(legs)),
		AvgIntervalSeconds: scalperAvgInterval,
	}, true
}
