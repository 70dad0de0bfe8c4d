package detection

import (
	"math"

	"BotRadar/internal/domain/models"
)

const (
	washLookback      = 10
	washSizeTolerance = 0.01
	washMaxGapSeconds = 1.0
	washConfidence    = 0.9
)

// WashTradeDetector flags mirror trades: an opposite-side print of almost
// the same size less than a second before the incoming one.
type WashTradeDetector struct{}

func NewWashTradeDetector() *WashTradeDetector { return &WashTradeDetector{} }

func (d *WashTradeDetector) Name() string { return string(models.PatternWashTrader) }

func (d *WashTradeDetector) TryDetect(w Window) (Output, bool) {
	evs := w.Last(washLookback)
	cur := w.Latest()
	for i := len(evs) - 2; i >= 0; i-- {
		prev := evs[i]
		if prev.Side == cur.Side {
			continue
		}
		if math.Abs(prev.Notional-cur.Notional) >= washSizeTolerance*cur.Notional {
			continue
		}
		gap := math.Abs(cur.Timestamp - prev.Timestamp)
		if gap >= washMaxGapSeconds {
			continue
		}
		return Output{
			Pattern:            models.PatternWashTrader,
			Signature:          d.Name(),
			Confidence:         washConfidence,
			DirectionBias:      0,
			AvgTradeSize:       (prev.Notional + cur.Notional) / 2,
			AvgIntervalSeconds: gap,
		}, true
	}
	return Output{}, false
}
