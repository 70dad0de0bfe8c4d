package usecase

import (
	"context"
	"errors"
	"fmt"

	"BotRadar/internal/domain/models"
	"BotRadar/pkg/queue"
)

var ErrFeedUnavailable = errors.New("classification feed unavailable")

// RecentReader reads the newest envelopes of a capped list; *queue.RedisList
// implements it.
type RecentReader interface {
	Recent(ctx context.Context, n int64) ([]queue.Message, error)
}

// ClassificationFeed replays the most recent published classifications.
type ClassificationFeed struct {
	src RecentReader
}

// NewClassificationFeed accepts a nil source, in which case every call
// returns ErrFeedUnavailable.
func NewClassificationFeed(src RecentReader) *ClassificationFeed {
	return &ClassificationFeed{src: src}
}

// Recent returns up to n classifications, newest first. Envelopes of other
// types or with undecodable payloads are skipped.
func (f *ClassificationFeed) Recent(ctx context.Context, n int) ([]models.ClassificationEvent, error) {
	if f == nil || f.src == nil {
		return nil, ErrFeedUnavailable
	}
	msgs, err := f.src.Recent(ctx, int64(n))
	if err != nil {
		return nil, fmt.Errorf("recent classifications: %w", err)
	}
	out := make([]models.ClassificationEvent, 0, len(msgs))
	for _, m := range msgs {
		if m.Type != models.ClassificationMessageType {
			continue
		}
		ev, err := queue.ParsePayload[models.ClassificationEvent](m)
		if err != nil {
			continue
		}
		out = append(out, *ev)
	}
	return out, nil
}
