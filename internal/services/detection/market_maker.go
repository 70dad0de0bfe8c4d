package detection

import (
	"math"

	"BotRadar/internal/domain/models"
	"BotRadar/internal/services/features"
)

const (
	mmLookback        = 20
	mmMinAlternation  = 0.7
	mmMaxMeanInterval = 5.0
	mmMaxSizeCV       = 0.3
	mmMaxConfidence   = 0.95
)

// MarketMakerDetector looks for tight two-sided flow: sides alternating,
// fast arrivals and near-constant clip sizes.
type MarketMakerDetector struct{}

func NewMarketMakerDetector() *MarketMakerDetector { return &MarketMakerDetector{} }

func (d *MarketMakerDetector) Name() string { return string(models.PatternMarketMaker) }

func (d *MarketMakerDetector) TryDetect(w Window) (Output, bool) {
	evs := w.Last(mmLookback)
	if len(evs) < 2 {
		return Output{}, false
	}
	alt := features.AlternationRatio(evs)
	if alt <= mmMinAlternation {
		return Output{}, false
	}
	meanInterval := features.MeanInterval(evs)
	if meanInterval >= mmMaxMeanInterval {
		return Output{}, false
	}
	sizes := features.Notionals(evs)
	cv, ok := features.CoefficientOfVariation(sizes)
	if !ok || cv >= mmMaxSizeCV {
		return Output{}, false
	}
	meanSize := features.Mean(sizes)
	return Output{
		Pattern:            models.PatternMarketMaker,
		Signature:          sizeSignature(meanSize),
		Confidence:         math.Min(alt, mmMaxConfidence),
		DirectionBias:      0, // two-sided by definition
		AvgTradeSize:       meanSize,
		AvgIntervalSeconds: meanInterval,
	}, true
}
