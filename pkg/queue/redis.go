package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"BotRadar/pkg/logger"
)

// RedisList is a capped producer-side list. New messages go to the head and
// the tail is trimmed past MaxLen, so readers see the newest first.
type RedisList struct {
	logger *logger.Logger
	client redis.UniversalClient
	key    string
	maxLen int64
	now    func() time.Time
}

// RedisListOption configures RedisList.
type RedisListOption func(*RedisList)

// WithMaxLen caps the list; <= 0 leaves it unbounded.
func WithMaxLen(n int64) RedisListOption {
	return func(r *RedisList) { r.maxLen = n }
}

func WithClock(now func() time.Time) RedisListOption {
	return func(r *RedisList) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRedisList(lgr *logger.Logger, client redis.UniversalClient, key string, opts ...RedisListOption) *RedisList {
	if lgr == nil {
		lgr = logger.Nop()
	}
	r := &RedisList{
		logger: lgr.Component("redis-list"),
		client: client,
		key:    key,
		maxLen: 10000,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *RedisList) Key() string { return r.key }

// PublishMessage pushes one envelope.
func (r *RedisList) PublishMessage(ctx context.Context, msgType string, payload interface{}) error {
	return r.PublishBatch(ctx, msgType, []interface{}{payload})
}

// PublishBatch pushes all payloads and trims in one pipeline round trip.
func (r *RedisList) PublishBatch(ctx context.Context, msgType string, payloads []interface{}) error {
	if len(payloads) == 0 {
		return nil
	}
	now := r.now().UTC()
	values := make([]interface{}, 0, len(payloads))
	for _, p := range payloads {
		m, err := newMessage(msgType, p, now)
		if err != nil {
			return err
		}
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("marshal message: %w", err)
		}
		values = append(values, b)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, r.key, values...)
	if r.maxLen > 0 {
		pipe.LTrim(ctx, r.key, 0, r.maxLen-1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Warn("redis push failed", logger.String("key", r.key), logger.Int("count", len(values)), logger.Error(err))
		return fmt.Errorf("lpush %s: %w", r.key, err)
	}
	return nil
}

// Recent returns up to n envelopes, newest first. Malformed entries are skipped.
func (r *RedisList) Recent(ctx context.Context, n int64) ([]Message, error) {
	if n <= 0 {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, r.key, 0, n-1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", r.key, err)
	}
	return decodeMessages(raw), nil
}

func decodeMessages(raw []string) []Message {
	out := make([]Message, 0, len(raw))
	for _, s := range raw {
		var m Message
		if err := json.Unmarshal([]byte(s), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out
}
