package detection

import (
	"time"

	"BotRadar/internal/domain/models"
)

// Liveness turns an actor's age into a status. Thresholds are inclusive on
// the lower bound: age == Active is already dormant.
type Liveness struct {
	Active  time.Duration
	Dormant time.Duration
}

// DefaultLiveness is 5 minutes active, 15 minutes until gone.
func DefaultLiveness() Liveness {
	return Liveness{Active: 300 * time.Second, Dormant: 900 * time.Second}
}

// Status computes the state for lastSeen (epoch seconds) at now. Actors seen
// "in the future" (clock skew between feeds) count as active.
func (l Liveness) Status(lastSeen float64, now time.Time) models.Status {
	age := epochSeconds(now) - lastSeen
	switch {
	case age < l.Active.Seconds():
		return models.StatusActive
	case age < l.Dormant.Seconds():
		return models.StatusDormant
	default:
		return models.StatusGone
	}
}

func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
