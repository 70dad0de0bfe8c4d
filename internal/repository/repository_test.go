package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"BotRadar/internal/domain/models"
	pkgkafka "BotRadar/pkg/kafka"
)

type recordedProducer struct {
	single []pkgkafka.Message
	batch  []pkgkafka.Message
	topics []string
}

func (r *recordedProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	r.topics = append(r.topics, topic)
	r.single = append(r.single, pkgkafka.Message{Key: key, Value: value})
	return nil
}

func (r *recordedProducer) PublishBatch(_ context.Context, topic string, msgs []pkgkafka.Message) error {
	r.topics = append(r.topics, topic)
	r.batch = append(r.batch, msgs...)
	return nil
}

type recordedQueue struct {
	types    []string
	payloads []interface{}
}

func (q *recordedQueue) PublishMessage(_ context.Context, msgType string, payload interface{}) error {
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *recordedQueue) PublishBatch(_ context.Context, msgType string, payloads []interface{}) error {
	q.types = append(q.types, msgType)
	q.payloads = append(q.payloads, payloads...)
	return nil
}

func classification(symbol string) *models.ClassificationEvent {
	return &models.ClassificationEvent{ActorID: "abc", PatternType: models.PatternScalper, Venue: "binance", Symbol: symbol}
}

func TestKafkaClassificationPublisher_KeysBySymbol(t *testing.T) {
	rec := &recordedProducer{}
	p := &KafkaClassificationPublisher{producer: rec, topic: "actor-classifications"}

	if err := p.Publish(context.Background(), classification("BTCUSDT")); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if string(rec.single[0].Key) != "binance:BTCUSDT" {
		t.Fatalf("key = %q", rec.single[0].Key)
	}

	evs := []*models.ClassificationEvent{classification("ETHUSDT"), nil, classification("SOLUSDT")}
	if err := p.PublishBatch(context.Background(), evs); err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(rec.batch) != 2 || string(rec.batch[1].Key) != "binance:SOLUSDT" {
		t.Fatalf("batch = %+v", rec.batch)
	}
	for _, topic := range rec.topics {
		if topic != "actor-classifications" {
			t.Fatalf("topic = %s", topic)
		}
	}

	if err := p.PublishBatch(context.Background(), nil); err != nil || len(rec.topics) != 2 {
		t.Fatalf("empty batch must be a no-op")
	}
}

func TestRedisClassificationPublisher(t *testing.T) {
	q := &recordedQueue{}
	p := NewRedisClassificationPublisher(q)
	_ = p.Publish(context.Background(), classification("BTCUSDT"))
	_ = p.PublishBatch(context.Background(), []*models.ClassificationEvent{classification("ETHUSDT"), nil})
	if len(q.payloads) != 2 {
		t.Fatalf("payloads = %d", len(q.payloads))
	}
	for _, typ := range q.types {
		if typ != models.ClassificationMessageType {
			t.Fatalf("type = %s", typ)
		}
	}
}

func TestActorSnapshotsDDL(t *testing.T) {
	stmts := actorSnapshotsDDL("botradar", "botradar.actor_snapshots", 3)
	if len(stmts) != 2 || stmts[0] != "CREATE DATABASE IF NOT EXISTS botradar" {
		t.Fatalf("stmts = %q", stmts)
	}
	ddl := stmts[1]
	for _, want := range []string{"CREATE TABLE IF NOT EXISTS botradar.actor_snapshots", "ORDER BY (actor_id, snapshot_at)", "INTERVAL 3 DAY"} {
		if !strings.Contains(ddl, want) {
			t.Fatalf("ddl missing %q:\n%s", want, ddl)
		}
	}
	if n := strings.Count(insertSnapshotSQL("actor_snapshots"), "?"); n != 13 {
		t.Fatalf("insert placeholders = %d", n)
	}
}

func TestSnapshotRow(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	a := models.DetectedActor{ID: "id1", PatternType: models.PatternIceberg, Venue: "okx", Symbol: "BTCUSDT",
		Status: models.StatusDormant, TradeCount: 7, Confidence: 0.8, LastSeen: 42}
	r := snapshotRow(at, a)
	if r.SnapshotAt.Location() != time.UTC || !r.SnapshotAt.Equal(at) {
		t.Fatalf("snapshot_at = %v", r.SnapshotAt)
	}
	if r.ActorID != "id1" || r.Status != models.StatusDormant || r.TradeCount != 7 || r.LastSeen != 42 {
		t.Fatalf("row = %+v", r)
	}
}
