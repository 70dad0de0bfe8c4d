package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"BotRadar/internal/domain/models"
	domrepo "BotRadar/internal/domain/repository"
	"BotRadar/internal/service/cache"
	"BotRadar/internal/services/detection"
	"BotRadar/pkg/util"
)

var (
	ErrActorNotFound      = errors.New("actor not found")
	ErrHistoryUnavailable = errors.New("actor history unavailable")
)

// ActorSource answers actor queries; *detection.Engine implements it.
type ActorSource interface {
	Snapshot(now time.Time) []models.DetectedActor
	Actor(id string, now time.Time) (models.DetectedActor, error)
}

// ActorList is a filtered page of actors.
type ActorList struct {
	Rows  []models.DetectedActor `json:"rows"`
	Total int64                  `json:"total"`
}

// ActorsUseCase serves the read side: listing, lookup, persisted history
// and stats. List results are cached for a short TTL.
type ActorsUseCase struct {
	source ActorSource
	store  domrepo.ActorStore
	cache  cache.BytesCache
	ttl    time.Duration
	now    func() time.Time
}

// NewActorsUseCase wires the read side. store and c may be nil.
func NewActorsUseCase(source ActorSource, store domrepo.ActorStore, c cache.BytesCache, ttl time.Duration) *ActorsUseCase {
	return &ActorsUseCase{source: source, store: store, cache: c, ttl: ttl, now: time.Now}
}

func listCacheKey(req models.ActorsRequest) string {
	return fmt.Sprintf("actors:%s:%s:%s:%t:%d", req.Venue, req.Symbol, req.Pattern, req.IncludeGone, req.Limit)
}

// List filters the current snapshot. Total counts every match before the
// limit is applied.
func (uc *ActorsUseCase) List(ctx context.Context, req models.ActorsRequest) (*ActorList, error) {
	req.Venue = util.NormalizeVenue(req.Venue)
	req.Symbol = util.NormalizeSymbol(req.Symbol)
	key := listCacheKey(req)
	if uc.cache != nil && uc.ttl > 0 {
		if b, ok, err := uc.cache.GetBytes(ctx, key); err == nil && ok {
			var cached ActorList
			if json.Unmarshal(b, &cached) == nil {
				return &cached, nil
			}
		}
	}

	out := &ActorList{Rows: []models.DetectedActor{}}
	for _, a := range uc.source.Snapshot(uc.now()) {
		if !matches(a, req) {
			continue
		}
		out.Total++
		if req.Limit <= 0 || len(out.Rows) < req.Limit {
			out.Rows = append(out.Rows, a)
		}
	}

	if uc.cache != nil && uc.ttl > 0 {
		if b, err := json.Marshal(out); err == nil {
			_ = uc.cache.SetBytes(ctx, key, b, uc.ttl)
		}
	}
	return out, nil
}

func matches(a models.DetectedActor, req models.ActorsRequest) bool {
	if !req.IncludeGone && a.Status == models.StatusGone {
		return false
	}
	if req.Venue != "" && a.Venue != req.Venue {
		return false
	}
	if req.Symbol != "" && a.Symbol != req.Symbol {
		return false
	}
	if req.Pattern != "" && string(a.PatternType) != req.Pattern {
		return false
	}
	return true
}

func (uc *ActorsUseCase) Get(_ context.Context, id string) (models.DetectedActor, error) {
	a, err := uc.source.Actor(id, uc.now())
	if errors.Is(err, detection.ErrUnknownActor) {
		return models.DetectedActor{}, fmt.Errorf("%w: %s", ErrActorNotFound, id)
	}
	return a, err
}

// History reads persisted snapshots, newest first.
func (uc *ActorsUseCase) History(ctx context.Context, id string, limit int) ([]models.ActorSnapshotRow, error) {
	if uc.store == nil {
		return nil, ErrHistoryUnavailable
	}
	rows, err := uc.store.History(ctx, id, limit)
	if err != nil {
		return nil, fmt.Errorf("actor history %s: %w", id, err)
	}
	return rows, nil
}

func (uc *ActorsUseCase) Stats(_ context.Context) models.ActorStats {
	now := uc.now()
	return computeStats(uc.source.Snapshot(now), now)
}

func computeStats(actors []models.DetectedActor, now time.Time) models.ActorStats {
	st := models.ActorStats{
		Total:     len(actors),
		ByStatus:  make(map[models.Status]int),
		ByPattern: make(map[models.PatternType]int),
		AsOf:      now.UTC(),
	}
	for _, a := range actors {
		st.ByStatus[a.Status]++
		st.ByPattern[a.PatternType]++
	}
	return st
}
