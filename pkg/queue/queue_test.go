package queue

import (
	"encoding/json"
	"testing"
	"time"
)

type sample struct {
	ActorID string  `json:"actor_id"`
	Score   float64 `json:"score"`
}

func TestNewMessage_RoundTrip(t *testing.T) {
	now := time.Unix(1700000000, 0).UTC()
	m, err := newMessage("classification", sample{ActorID: "abc", Score: 0.7}, now)
	if err != nil {
		t.Fatalf("newMessage: %v", err)
	}
	if m.Type != "classification" || !m.Timestamp.Equal(now) {
		t.Fatalf("unexpected envelope: %+v", m)
	}
	got, err := ParsePayload[sample](m)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if got.ActorID != "abc" || got.Score != 0.7 {
		t.Fatalf("payload = %+v", got)
	}
}

func TestNewMessage_RawPassthrough(t *testing.T) {
	raw := json.RawMessage(`{"actor_id":"x"}`)
	m, err := newMessage("t", raw, time.Now())
	if err != nil || string(m.Payload) != string(raw) {
		t.Fatalf("raw payload changed: %s %v", m.Payload, err)
	}
}

func TestDecodeMessages_SkipsGarbage(t *testing.T) {
	good, _ := json.Marshal(Message{ID: "1", Type: "t", Payload: json.RawMessage(`{}`)})
	out := decodeMessages([]string{"not json", string(good)})
	if len(out) != 1 || out[0].ID != "1" {
		t.Fatalf("decoded = %+v", out)
	}
}

func TestNewMessage_MarshalError(t *testing.T) {
	if _, err := newMessage("t", make(chan int), time.Now()); err == nil {
		t.Fatalf("expected marshal error")
	}
}
