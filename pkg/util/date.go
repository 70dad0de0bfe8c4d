package util

import (
	"math"
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano and unix seconds (integer or fractional).
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseFloat(s, 64); err == nil && ts > 0 {
		return FromEpoch(NormalizeEpoch(ts)), true
	}
	return time.Time{}, false
}

// NormalizeEpoch converts an epoch in seconds, milliseconds, microseconds or
// nanoseconds to fractional seconds, guessing the unit from the magnitude.
// Anything below 1e11 is taken as seconds (valid until year 5138).
func NormalizeEpoch(v float64) float64 {
	switch a := math.Abs(v); {
	case a >= 1e17:
		return v / 1e9
	case a >= 1e14:
		return v / 1e6
	case a >= 1e11:
		return v / 1e3
	default:
		return v
	}
}

// EpochSeconds is t as fractional unix seconds.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FromEpoch converts fractional unix seconds to UTC time.
func FromEpoch(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	return time.Unix(int64(whole), int64(frac*1e9)).UTC()
}
