package detection

import (
	"testing"
	"time"

	"BotRadar/internal/domain/models"
)

func TestLivenessStatus(t *testing.T) {
	l := DefaultLiveness()
	const T = 1700000000.0
	cases := []struct {
		age  float64
		want models.Status
	}{
		{-30, models.StatusActive},
		{0, models.StatusActive},
		{200, models.StatusActive},
		{299.9, models.StatusActive},
		{300, models.StatusDormant},
		{600, models.StatusDormant},
		{899, models.StatusDormant},
		{900, models.StatusGone},
		{1000, models.StatusGone},
	}
	for _, c := range cases {
		now := at(T + c.age)
		if got := l.Status(T, now); got != c.want {
			t.Fatalf("age %v: got %s want %s", c.age, got, c.want)
		}
	}
}

func TestLivenessCustomThresholds(t *testing.T) {
	l := Liveness{Active: time.Minute, Dormant: 2 * time.Minute}
	if l.Status(0, time.Unix(61, 0)) != models.StatusDormant {
		t.Fatalf("expected dormant after one minute")
	}
	if l.Status(0, time.Unix(121, 0)) != models.StatusGone {
		t.Fatalf("expected gone after two minutes")
	}
}
