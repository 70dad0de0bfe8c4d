package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"BotRadar/internal/domain/models"
	domrepo "BotRadar/internal/domain/repository"
	pkgch "BotRadar/pkg/clickhouse"
	applogger "BotRadar/pkg/logger"
)

const actorSnapshotsTable = "actor_snapshots"

// actorSnapshotsDDL keeps one row per actor per snapshot, expired after
// ttlDays.
func actorSnapshotsDDL(database, table string, ttlDays int) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            snapshot_at DateTime64(3, 'UTC'),
            actor_id String,
            pattern_type LowCardinality(String),
            subtype LowCardinality(String),
            venue LowCardinality(String),
            symbol LowCardinality(String),
            status LowCardinality(String),
            trade_count UInt64,
            total_volume_notional Float64,
            avg_trade_size Float64,
            direction_bias Float64,
            confidence Float64,
            last_seen Float64
        ) ENGINE = MergeTree
        PARTITION BY toYYYYMMDD(snapshot_at)
        ORDER BY (actor_id, snapshot_at)
        TTL toDateTime(snapshot_at) + INTERVAL %d DAY`, table, ttlDays),
	}
}

// ClickHouseActorStore implements ActorStore backed by ClickHouse.
type ClickHouseActorStore struct {
	ch       *pkgch.Client
	db       *sql.DB
	database string
	table    string
	ttlDays  int
	l        *applogger.Logger
}

var _ domrepo.ActorStore = (*ClickHouseActorStore)(nil)

// NewClickHouseActorStore stores snapshots in actor_snapshots. ttlDays <= 0 keeps
// rows for 7 days.
func NewClickHouseActorStore(ch *pkgch.Client, ttlDays int, l *applogger.Logger) *ClickHouseActorStore {
	if ttlDays <= 0 {
		ttlDays = 7
	}
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseActorStore{
		ch:       ch,
		db:       ch.DB(),
		database: ch.Database(),
		table:    ch.Database() + "." + actorSnapshotsTable,
		ttlDays:  ttlDays,
		l:        l.Component("actor_store"),
	}
}

func (s *ClickHouseActorStore) Init(ctx context.Context) error {
	return s.ch.InitSchema(ctx, actorSnapshotsDDL(s.database, s.table, s.ttlDays))
}

func insertSnapshotSQL(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (snapshot_at, actor_id, pattern_type, subtype, venue, symbol, status,
        trade_count, total_volume_notional, avg_trade_size, direction_bias, confidence, last_seen)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, table)
}

// SaveSnapshot writes every actor in a single batch.
func (s *ClickHouseActorStore) SaveSnapshot(ctx context.Context, at time.Time, actors []models.DetectedActor) error {
	if len(actors) == 0 {
		return nil
	}
	start := time.Now()
	err := s.ch.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertSnapshotSQL(s.table))
		if err != nil {
			return fmt.Errorf("prepare: %w", err)
		}
		defer stmt.Close()
		for _, a := range actors {
			r := snapshotRow(at, a)
			if _, err := stmt.ExecContext(ctx,
				r.SnapshotAt, r.ActorID, string(r.PatternType), r.Subtype, r.Venue, r.Symbol, string(r.Status),
				uint64(r.TradeCount), r.TotalVolumeNotional, r.AvgTradeSize, r.DirectionBias, r.Confidence, r.LastSeen,
			); err != nil {
				return fmt.Errorf("append %s: %w", a.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		s.l.Error("clickhouse save_snapshot error",
			applogger.String("table", s.table),
			applogger.Int("actors", len(actors)),
			applogger.Error(err),
		)
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.l.Debug("clickhouse save_snapshot ok",
		applogger.Int("actors", len(actors)),
		applogger.Duration("duration_ms", time.Since(start)),
	)
	return nil
}

// History returns the newest limit snapshots of one actor, newest first.
func (s *ClickHouseActorStore) History(ctx context.Context, actorID string, limit int) ([]models.ActorSnapshotRow, error) {
	const qtpl = `
        SELECT snapshot_at, actor_id, pattern_type, subtype, venue, symbol, status,
               trade_count, total_volume_notional, avg_trade_size, direction_bias, confidence, last_seen
        FROM %s
        WHERE actor_id = ?
        ORDER BY snapshot_at DESC
        LIMIT ?
    `
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(qtpl, s.table), actorID, limit)
	if err != nil {
		s.l.Error("clickhouse actor_history query error",
			applogger.String("actor_id", actorID),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("actor history: %w", err)
	}
	defer rows.Close()

	out := make([]models.ActorSnapshotRow, 0, limit)
	for rows.Next() {
		var (
			r               models.ActorSnapshotRow
			pattern, status string
			tradeCount      uint64
		)
		if err := rows.Scan(&r.SnapshotAt, &r.ActorID, &pattern, &r.Subtype, &r.Venue, &r.Symbol, &status,
			&tradeCount, &r.TotalVolumeNotional, &r.AvgTradeSize, &r.DirectionBias, &r.Confidence, &r.LastSeen); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		r.PatternType = models.PatternType(pattern)
		r.Status = models.Status(status)
		r.TradeCount = int64(tradeCount)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *ClickHouseActorStore) Health(ctx context.Context) error {
	return s.ch.Health(ctx)
}

// Close is a no-op; the client is owned by the app.
func (s *ClickHouseActorStore) Close() error { return nil }

func snapshotRow(at time.Time, a models.DetectedActor) models.ActorSnapshotRow {
	return models.ActorSnapshotRow{
		SnapshotAt:          at.UTC(),
		ActorID:             a.ID,
		PatternType:         a.PatternType,
		Subtype:             a.Subtype,
		Venue:               a.Venue,
		Symbol:              a.Symbol,
		Status:              a.Status,
		TradeCount:          a.TradeCount,
		TotalVolumeNotional: a.TotalVolumeNotional,
		AvgTradeSize:        a.AvgTradeSize,
		DirectionBias:       a.DirectionBias,
		Confidence:          a.Confidence,
		LastSeen:            a.LastSeen,
	}
}
