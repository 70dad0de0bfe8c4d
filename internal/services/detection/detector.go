package detection

import (
	"strconv"

	"BotRadar/internal/domain/models"
	"BotRadar/internal/services/features"
)

// Window is the slice of history a detector looks at. Events are oldest
// first and the last element is the trade being analyzed.
type Window struct {
	Venue  string
	Symbol string
	Events []models.TradeEvent
}

// Latest returns the trade that triggered the analysis.
func (w Window) Latest() models.TradeEvent { return w.Events[len(w.Events)-1] }

// Last returns the n most recent events (fewer if the window is shorter).
func (w Window) Last(n int) []models.TradeEvent {
	if n >= len(w.Events) {
		return w.Events
	}
	return w.Events[len(w.Events)-n:]
}

// Output is what a detector reports when it matches.
type Output struct {
	Pattern   models.PatternType
	Subtype   string
	Signature string

	Confidence float64
	// ConfidenceStep > 0 makes confidence accumulate on every merge instead of
	// being overwritten, up to ConfidenceCap.
	ConfidenceStep float64
	ConfidenceCap  float64

	DirectionBias      float64
	AvgTradeSize       float64
	AvgIntervalSeconds float64
}

// Detector classifies a window. Implementations keep no per-call state.
type Detector interface {
	// Name is the identity prefix of every actor the detector creates.
	Name() string
	TryDetect(w Window) (Output, bool)
}

// sizeSignature buckets a notional to two significant digits so small
// jitter in a recurring size maps to the same actor.
func sizeSignature(v float64) string {
	return strconv.FormatFloat(features.RoundSignificant(v, 2), 'f', -1, 64)
}
