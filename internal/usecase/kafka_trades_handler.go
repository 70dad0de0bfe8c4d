package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"BotRadar/internal/domain/models"
	domrepo "BotRadar/internal/domain/repository"
	pkgkafka "BotRadar/pkg/kafka"
	"BotRadar/pkg/util"
)

// TradeSink accepts normalized trades; the realtime pipeline and the
// analyzer both satisfy it.
type TradeSink interface {
	Process(ctx context.Context, ev models.TradeEvent) error
}

// KafkaTradesHandler decodes trade messages from the bus and feeds them to
// the pipeline. Undecodable or invalid payloads are permanent failures.
type KafkaTradesHandler struct {
	topic   string
	sink    TradeSink
	metrics domrepo.Metrics
}

func NewKafkaTradesHandler(topic string, sink TradeSink, metrics domrepo.Metrics) *KafkaTradesHandler {
	return &KafkaTradesHandler{topic: topic, sink: sink, metrics: metrics}
}

func (h *KafkaTradesHandler) Topic() string { return h.topic }

// tradeMessage is the wire shape. Price and quantity accept JSON strings or
// numbers; ts accepts epoch s/ms/us/ns or an RFC3339 string.
type tradeMessage struct {
	Venue    string          `json:"venue"`
	Symbol   string          `json:"symbol"`
	Price    decimal.Decimal `json:"price"`
	Quantity decimal.Decimal `json:"quantity"`
	Side     string          `json:"side"`
	TS       json.RawMessage `json:"ts"`
	TradeID  string          `json:"trade_id"`
	IsMaker  bool            `json:"is_maker"`
}

// DecodeTrade turns a bus payload into a validated TradeEvent.
func DecodeTrade(b []byte) (models.TradeEvent, error) {
	var m tradeMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return models.TradeEvent{}, fmt.Errorf("%w: %v", models.ErrInvalidEvent, err)
	}
	side, err := models.ParseSide(m.Side)
	if err != nil {
		return models.TradeEvent{}, err
	}
	ts, err := decodeTimestamp(m.TS)
	if err != nil {
		return models.TradeEvent{}, err
	}
	ev := models.TradeEvent{
		Venue:     util.NormalizeVenue(m.Venue),
		Symbol:    util.NormalizeSymbol(m.Symbol),
		Price:     m.Price.InexactFloat64(),
		Quantity:  m.Quantity.InexactFloat64(),
		Notional:  m.Price.Mul(m.Quantity).InexactFloat64(),
		Side:      side,
		Timestamp: ts,
		TradeID:   m.TradeID,
		IsMaker:   m.IsMaker,
	}
	if err := ev.Validate(); err != nil {
		return models.TradeEvent{}, err
	}
	return ev, nil
}

func decodeTimestamp(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 {
		return 0, fmt.Errorf("%w: ts missing", models.ErrInvalidEvent)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: ts %s", models.ErrInvalidEvent, raw)
		}
		return util.NormalizeEpoch(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if t, ok := util.ParseTime(s); ok {
			return util.EpochSeconds(t), nil
		}
	}
	return 0, fmt.Errorf("%w: ts %s", models.ErrInvalidEvent, raw)
}

func (h *KafkaTradesHandler) Handle(ctx context.Context, b []byte) error {
	ev, err := DecodeTrade(b)
	if err != nil {
		h.metrics.RecordError("consumer_decode")
		return pkgkafka.Permanent(err)
	}
	if err := h.sink.Process(ctx, ev); err != nil {
		if errors.Is(err, models.ErrInvalidEvent) {
			return pkgkafka.Permanent(err)
		}
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTradesHandler)(nil)
