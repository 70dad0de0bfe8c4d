package models

import "time"

// PatternType is the behavioral category assigned to an actor.
type PatternType string

const (
	PatternMarketMaker   PatternType = "market_maker"
	PatternIceberg       PatternType = "iceberg"
	PatternScalper       PatternType = "scalper"
	PatternInstitutional PatternType = "institutional"
	PatternWashTrader    PatternType = "wash_trader"
	PatternInterval      PatternType = "interval"
)

// Subtypes used by PatternInterval actors, picked by mean inter-arrival time.
const (
	SubtypeMarketMaker    = "market_maker"
	SubtypeScalper        = "scalper"
	SubtypeGridBot        = "grid_bot"
	SubtypeMomentumChaser = "momentum_chaser"
)

// Status is the liveness state of an actor. It is always derived from
// now - LastSeen and never stored.
type Status string

const (
	StatusActive  Status = "active"
	StatusDormant Status = "dormant"
	StatusGone    Status = "gone"
)

// DetectedActor is a snapshot of a classified trade source. Callers only ever
// see copies; the registry keeps the live record.
type DetectedActor struct {
	ID                  string       `json:"id"`
	PatternType         PatternType  `json:"pattern_type"`
	Subtype             string       `json:"subtype,omitempty"`
	Venue               string       `json:"venue"`
	Symbol              string       `json:"symbol"`
	FirstSeen           float64      `json:"first_seen"`
	LastSeen            float64      `json:"last_seen"`
	TradeCount          int64        `json:"trade_count"`
	TotalVolumeNotional float64      `json:"total_volume_notional"`
	AvgTradeSize        float64      `json:"avg_trade_size"`
	AvgIntervalSeconds  float64      `json:"avg_interval_seconds"`
	DirectionBias       float64      `json:"direction_bias"`
	Confidence          float64      `json:"confidence"`
	Status              Status       `json:"status"`
	SampleTrades        []TradeEvent `json:"sample_trades,omitempty"`
}

// Classification is the result of a single AnalyzeTrade call that matched.
type Classification struct {
	ActorID       string      `json:"actor_id"`
	PatternType   PatternType `json:"pattern"`
	Subtype       string      `json:"subtype,omitempty"`
	Confidence    float64     `json:"confidence"`
	DirectionBias float64     `json:"direction_bias"`
}

// ClassificationMessageType tags classification envelopes on queues.
const ClassificationMessageType = "actor_classification"

// ClassificationEvent is what gets published downstream for every match.
type ClassificationEvent struct {
	ActorID       string      `json:"actor_id"`
	PatternType   PatternType `json:"pattern"`
	Subtype       string      `json:"subtype,omitempty"`
	Venue         string      `json:"venue"`
	Symbol        string      `json:"symbol"`
	Confidence    float64     `json:"confidence"`
	DirectionBias float64     `json:"direction_bias"`
	TradeID       string      `json:"trade_id"`
	Timestamp     float64     `json:"ts"`
}

// ActorStats summarizes the registry for dashboards.
type ActorStats struct {
	Total     int                 `json:"total"`
	ByStatus  map[Status]int      `json:"by_status"`
	ByPattern map[PatternType]int `json:"by_pattern"`
	AsOf      time.Time           `json:"as_of"`
}

// ActorSnapshotRow is one persisted point in an actor's history.
type ActorSnapshotRow struct {
	SnapshotAt          time.Time   `json:"snapshot_at"`
	ActorID             string      `json:"actor_id"`
	PatternType         PatternType `json:"pattern_type"`
	Subtype             string      `json:"subtype,omitempty"`
	Venue               string      `json:"venue"`
	Symbol              string      `json:"symbol"`
	Status              Status      `json:"status"`
	TradeCount          int64       `json:"trade_count"`
	TotalVolumeNotional float64     `json:"total_volume_notional"`
	AvgTradeSize        float64     `json:"avg_trade_size"`
	DirectionBias       float64     `json:"direction_bias"`
	Confidence          float64     `json:"confidence"`
	LastSeen            float64     `json:"last_seen"`
}
