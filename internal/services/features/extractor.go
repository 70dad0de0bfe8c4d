package features

import (
	"math"

	"BotRadar/internal/domain/models"
)

// Epsilon guards divisions; anything below it is treated as zero.
const Epsilon = 1e-9

// Notionals extracts notional values in window order.
func Notionals(events []models.TradeEvent) []float64 {
	out := make([]float64, len(events))
	for i := range events {
		out[i] = events[i].Notional
	}
	return out
}

// Intervals computes consecutive inter-arrival times t_i - t_{i-1}.
// It returns a slice of length len(events)-1, or nil if insufficient data.
func Intervals(events []models.TradeEvent) []float64 {
	if len(events) < 2 {
		return nil
	}
	out := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		out = append(out, events[i].Timestamp-events[i-1].Timestamp)
	}
	return out
}

// Mean returns the arithmetic mean, 0 for empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation.
func StdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := Mean(xs)
	acc := 0.0
	for _, x := range xs {
		d := x - m
		acc += d * d
	}
	return math.Sqrt(acc / float64(len(xs)))
}

// CoefficientOfVariation returns stddev/mean. ok is false when the mean is
// too close to zero for the ratio to mean anything.
func CoefficientOfVariation(xs []float64) (cv float64, ok bool) {
	m := Mean(xs)
	if math.Abs(m) < Epsilon {
		return 0, false
	}
	return StdDev(xs) / m, true
}

// AlternationRatio is the fraction of consecutive pairs whose side flips.
func AlternationRatio(events []models.TradeEvent) float64 {
	if len(events) < 2 {
		return 0
	}
	flips := 0
	for i := 1; i < len(events); i++ {
		if events[i].Side != events[i-1].Side {
			flips++
		}
	}
	return float64(flips) / float64(len(events)-1)
}

// DirectionBias returns (buys - sells) / n in [-1, 1].
func DirectionBias(events []models.TradeEvent) float64 {
	if len(events) == 0 {
		return 0
	}
	net := 0
	for i := range events {
		if events[i].Side == models.SideBuy {
			net++
		} else {
			net--
		}
	}
	return float64(net) / float64(len(events))
}

// MeanInterval is the mean spacing of events, 0 when fewer than two.
func MeanInterval(events []models.TradeEvent) float64 {
	return Mean(Intervals(events))
}

// RoundSignificant rounds v to the given number of significant digits.
// The power of ten is always applied as a whole number so integral results
// stay exact.
func RoundSignificant(v float64, digits int) float64 {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	exp := int(math.Floor(math.Log10(math.Abs(v)))) + 1 - digits
	if exp >= 0 {
		p := math.Pow10(exp)
		return math.Round(v/p) * p
	}
	p := math.Pow10(-exp)
	return math.Round(v*p) / p
}
