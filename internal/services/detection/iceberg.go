package detection

import (
	"math"
	"strconv"

	"BotRadar/internal/domain/models"
	"BotRadar/internal/services/features"
)

const (
	icebergLookback      = 50
	icebergBucket        = 100.0
	icebergMinRepeats    = 5
	icebergSizeTolerance = 0.10
	icebergMinSideRatio  = 0.8
	icebergConfidence    = 0.9
)

// IcebergDetector looks for a hidden order being worked in repeated clips of
// the same rounded size, mostly on one side.
type IcebergDetector struct{}

func NewIcebergDetector() *IcebergDetector { return &IcebergDetector{} }

func (d *IcebergDetector) Name() string { return string(models.PatternIceberg) }

func roundedSize(notional float64) float64 {
	return math.Round(notional/icebergBucket) * icebergBucket
}

func (d *IcebergDetector) TryDetect(w Window) (Output, bool) {
	evs := w.Last(icebergLookback)
	size := roundedSize(w.Latest().Notional)
	if size < icebergBucket {
		return Output{}, false
	}

	// frequency of the incoming clip's rounded size within the lookback
	repeats := 0
	for i := range evs {
		if roundedSize(evs[i].Notional) == size {
			repeats++
		}
	}
	if repeats < icebergMinRepeats {
		return Output{}, false
	}

	similar := make([]models.TradeEvent, 0, repeats)
	for i := range evs {
		if math.Abs(evs[i].Notional-size) <= icebergSizeTolerance*size {
			similar = append(similar, evs[i])
		}
	}
	if len(similar) < icebergMinRepeats {
		return Output{}, false
	}

	buys := 0
	for i := range similar {
		if similar[i].Side == models.SideBuy {
			buys++
		}
	}
	sells := len(similar) - buys
	dominant := math.Max(float64(buys), float64(sells))
	ratio := dominant / float64(len(similar))
	if ratio < icebergMinSideRatio {
		return Output{}, false
	}
	bias := 1.0
	if sells > buys {
		bias = -1.0
	}

	return Output{
		Pattern:            models.PatternIceberg,
		Signature:          strconv.FormatFloat(size, 'f', 0, 64),
		Confidence:         ratio * icebergConfidence,
		DirectionBias:      bias,
		AvgTradeSize:       features.Mean(features.Notionals(similar)),
		AvgIntervalSeconds: features.MeanInterval(similar),
	}, true
}
