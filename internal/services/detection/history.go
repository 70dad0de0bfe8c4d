package detection

import "BotRadar/internal/domain/models"

// DefaultHistoryCapacity is the per-key ring size used when none is configured.
const DefaultHistoryCapacity = 1000

type historyKey struct {
	venue  string
	symbol string
}

// ring is a fixed-size buffer; head is the next write position.
type ring struct {
	buf  []models.TradeEvent
	head int
	size int
}

func (r *ring) push(ev models.TradeEvent) {
	r.buf[r.head] = ev
	r.head = (r.head + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// last copies the n most recent events, oldest first.
func (r *ring) last(n int) []models.TradeEvent {
	if n > r.size {
		n = r.size
	}
	if n <= 0 {
		return nil
	}
	out := make([]models.TradeEvent, n)
	start := (r.head - n + len(r.buf)) % len(r.buf)
	for i := 0; i < n; i++ {
		out[i] = r.buf[(start+i)%len(r.buf)]
	}
	return out
}

// History keeps the most recent trades per (venue, symbol).
// It is not safe for concurrent use; each key must be owned by one consumer.
type History struct {
	capacity int
	rings    map[historyKey]*ring
}

// NewHistory creates a store with the given per-key capacity.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{capacity: capacity, rings: make(map[historyKey]*ring)}
}

// Append records ev, overwriting the oldest entry of its key when full.
func (h *History) Append(ev models.TradeEvent) {
	k := historyKey{venue: ev.Venue, symbol: ev.Symbol}
	r, ok := h.rings[k]
	if !ok {
		r = &ring{buf: make([]models.TradeEvent, h.capacity)}
		h.rings[k] = r
	}
	r.push(ev)
}

// Window returns up to n most recent events for the key, oldest first.
func (h *History) Window(venue, symbol string, n int) []models.TradeEvent {
	r, ok := h.rings[historyKey{venue: venue, symbol: symbol}]
	if !ok {
		return nil
	}
	return r.last(n)
}

// Len reports how many events are buffered for the key.
func (h *History) Len(venue, symbol string) int {
	if r, ok := h.rings[historyKey{venue: venue, symbol: symbol}]; ok {
		return r.size
	}
	return 0
}

// Keys reports the number of tracked (venue, symbol) pairs.
func (h *History) Keys() int { return len(h.rings) }

// Capacity returns the per-key ring size.
func (h *History) Capacity() int { return h.capacity }
