package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Publisher pushes typed messages onto a queue.
type Publisher interface {
	PublishMessage(ctx context.Context, msgType string, payload interface{}) error
}

// Message is the envelope stored in Redis.
type Message struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
}

func newMessage(msgType string, payload interface{}, now time.Time) (Message, error) {
	raw, ok := payload.(json.RawMessage)
	if !ok {
		b, err := json.Marshal(payload)
		if err != nil {
			return Message{}, fmt.Errorf("marshal payload: %w", err)
		}
		raw = b
	}
	return Message{
		ID:        fmt.Sprintf("%d", now.UnixNano()),
		Type:      msgType,
		Payload:   raw,
		Timestamp: now,
	}, nil
}

// ParsePayload decodes a message payload into T.
func ParsePayload[T any](m Message) (*T, error) {
	var out T
	if err := json.Unmarshal(m.Payload, &out); err != nil {
		return nil, fmt.Errorf("unmarshal %s payload: %w", m.Type, err)
	}
	return &out, nil
}
