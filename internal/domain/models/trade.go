package models

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
)

// ErrInvalidEvent is returned when a trade event violates the ingestion invariants.
var ErrInvalidEvent = errors.New("invalid trade event")

// Side is the aggressor side of an executed trade.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// ParseSide accepts the usual venue spellings ("buy", "BUY", "b", "bid", ...).
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "buy", "b", "bid":
		return SideBuy, nil
	case "sell", "s", "ask", "offer":
		return SideSell, nil
	default:
		return "", fmt.Errorf("%w: unknown side %q", ErrInvalidEvent, s)
	}
}

// TradeEvent is a normalized executed trade. Producers build it once and the
// engine never mutates it.
type TradeEvent struct {
	Venue     string  `json:"venue"`
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Quantity  float64 `json:"quantity"`
	Notional  float64 `json:"notional"`
	Side      Side    `json:"side"`
	Timestamp float64 `json:"ts"` // epoch seconds
	TradeID   string  `json:"trade_id"`
	IsMaker   bool    `json:"is_maker"`
}

// NewTradeEvent builds an event and derives its notional value.
func NewTradeEvent(venue, symbol string, price, qty float64, side Side, ts float64, tradeID string, isMaker bool) TradeEvent {
	return TradeEvent{
		Venue:     venue,
		Symbol:    symbol,
		Price:     price,
		Quantity:  qty,
		Notional:  price * qty,
		Side:      side,
		Timestamp: ts,
		TradeID:   tradeID,
		IsMaker:   isMaker,
	}
}

// Time returns the event timestamp as time.Time (UTC).
func (t TradeEvent) Time() time.Time {
	sec, frac := math.Modf(t.Timestamp)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// Key identifies the history bucket the event belongs to.
func (t TradeEvent) Key() string { return t.Venue + "|" + t.Symbol }

// Validate checks the invariants the detectors rely on.
func (t TradeEvent) Validate() error {
	if t.Venue == "" {
		return fmt.Errorf("%w: venue empty", ErrInvalidEvent)
	}
	if t.Symbol == "" {
		return fmt.Errorf("%w: symbol empty", ErrInvalidEvent)
	}
	if t.Side != SideBuy && t.Side != SideSell {
		return fmt.Errorf("%w: side %q", ErrInvalidEvent, t.Side)
	}
	if !finite(t.Timestamp) || t.Timestamp <= 0 {
		return fmt.Errorf("%w: timestamp invalid", ErrInvalidEvent)
	}
	if !finite(t.Price) || !finite(t.Quantity) || !finite(t.Notional) {
		return fmt.Errorf("%w: non-finite price/quantity", ErrInvalidEvent)
	}
	if t.Price < 0 || t.Quantity < 0 || t.Notional < 0 {
		return fmt.Errorf("%w: negative price/quantity", ErrInvalidEvent)
	}
	return nil
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
