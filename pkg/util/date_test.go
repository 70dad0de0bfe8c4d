package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
	ms, ok := ParseTime(strconv.FormatInt(ts*1000, 10))
	if !ok || ms.Unix() != ts {
		t.Fatalf("milliseconds must normalize, got %v", ms)
	}
}

func TestParseTimeRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "yesterday", "-5"} {
		if _, ok := ParseTime(s); ok {
			t.Fatalf("ParseTime(%q) must fail", s)
		}
	}
}

func TestNormalizeEpoch(t *testing.T) {
	const sec = 1700000000.0
	cases := []float64{sec, sec * 1e3, sec * 1e6, sec * 1e9}
	for _, c := range cases {
		if got := NormalizeEpoch(c); got != sec {
			t.Fatalf("NormalizeEpoch(%v)=%v want %v", c, got, sec)
		}
	}
	if got := NormalizeEpoch(1700000000.25); got != 1700000000.25 {
		t.Fatalf("fractional seconds must pass through, got %v", got)
	}
}

func TestEpochRoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 5, 14, 0, 0, 500_000_000, time.UTC)
	got := FromEpoch(EpochSeconds(want))
	if d := got.Sub(want); d > time.Microsecond || d < -time.Microsecond {
		t.Fatalf("round trip drifted by %v", d)
	}
}

func TestNormalizeSymbol(t *testing.T) {
	for _, s := range []string{"btc-usdt", "BTC/USDT", " btc_usdt "} {
		if got := NormalizeSymbol(s); got != "BTCUSDT" {
			t.Fatalf("NormalizeSymbol(%q)=%q", s, got)
		}
	}
}

func TestNormalizeVenue(t *testing.T) {
	if got := NormalizeVenue(" Binance "); got != "binance" {
		t.Fatalf("NormalizeVenue=%q", got)
	}
}
