package kafka

import (
	"context"
	"errors"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestBackoffWithJitter_Bounds(t *testing.T) {
	min, max := 100*time.Millisecond, time.Second
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		if d <= 0 || d > max {
			t.Fatalf("attempt %d: backoff %v out of (0, %v]", attempt, d, max)
		}
	}
	if d := backoffWithJitter(min, max, 1); d < min/2 {
		t.Fatalf("first attempt backoff too small: %v", d)
	}
}

func TestPermanent(t *testing.T) {
	base := errors.New("bad payload")
	err := Permanent(base)
	if !errors.Is(err, ErrPermanent) || !errors.Is(err, base) {
		t.Fatalf("Permanent must wrap both markers, got %v", err)
	}
	if Permanent(nil) != nil {
		t.Fatalf("Permanent(nil) must be nil")
	}
}

func TestEncodeValue(t *testing.T) {
	b, err := encodeValue([]byte("raw"))
	if err != nil || string(b) != "raw" {
		t.Fatalf("bytes passthrough: %q %v", b, err)
	}
	b, err = encodeValue(map[string]int{"a": 1})
	if err != nil || string(b) != `{"a":1}` {
		t.Fatalf("json encode: %q %v", b, err)
	}
	if _, err := encodeValue(make(chan int)); err == nil {
		t.Fatalf("expected marshal error for channel")
	}
}

func TestHookChain_OrderAndPanic(t *testing.T) {
	var order []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, km kafka.Message, d []byte) (context.Context, kafka.Message, []byte, error) {
				order = append(order, "before-"+name)
				return ctx, km, append(d, name...), nil
			},
			After: func(context.Context, string, kafka.Message, []byte, error) {
				order = append(order, "after-"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))
	_, _, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil)
	if err != nil || string(data) != "ab" {
		t.Fatalf("before chain: %q %v", data, err)
	}
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, data, nil)
	want := []string{"before-a", "before-b", "after-b", "after-a"}
	if len(order) != len(want) {
		t.Fatalf("order = %v", order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}

	panicky := HookFuncs{Before: func(context.Context, string, kafka.Message, []byte) (context.Context, kafka.Message, []byte, error) {
		panic("boom")
	}}
	if _, _, _, err := NewHookChain(panicky).BeforeHandle(context.Background(), "t", kafka.Message{}, nil); err == nil {
		t.Fatalf("expected error from panicking hook")
	}
}

func TestTraceHook(t *testing.T) {
	km := kafka.Message{Headers: []kafka.Header{{Key: "trace_id", Value: []byte("abc")}}}
	ctx, _, _, err := TraceHook().BeforeHandle(context.Background(), "t", km, nil)
	if err != nil || TraceID(ctx) != "abc" {
		t.Fatalf("trace id = %q err=%v", TraceID(ctx), err)
	}
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	if _, err := NewProducer(); err == nil {
		t.Fatalf("expected error without brokers")
	}
	if _, err := NewConsumer(nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

func TestParseCompression(t *testing.T) {
	if parseCompression("zstd") != kafka.Zstd || parseCompression("none") != 0 {
		t.Fatalf("unexpected compression mapping")
	}
}

type orderRecorder struct {
	mu   sync.Mutex
	seen map[int][]int64
}

func (r *orderRecorder) Topic() string { return "trades" }

func (r *orderRecorder) Handle(_ context.Context, data []byte) error {
	partition, offset, ok := strings.Cut(string(data), ":")
	if !ok {
		return Permanent(errors.New("bad test payload"))
	}
	p, _ := strconv.Atoi(partition)
	o, _ := strconv.ParseInt(offset, 10, 64)
	if o%7 == 0 {
		runtime.Gosched()
	}
	r.mu.Lock()
	r.seen[p] = append(r.seen[p], o)
	r.mu.Unlock()
	return nil
}

func TestConsumer_KeepsPartitionOrderAcrossWorkers(t *testing.T) {
	c, err := NewConsumer(nil,
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerWorkers(4),
		WithConsumerBufferSize(16))
	if err != nil {
		t.Fatalf("NewConsumer: %v", err)
	}
	rec := &orderRecorder{seen: make(map[int][]int64)}
	c.RegisterHandler(rec)
	c.startWorkers()

	const perPartition = 5000
	for off := int64(0); off < perPartition; off++ {
		for p := 0; p < 3; p++ {
			m := kafka.Message{
				Topic:     "trades",
				Partition: p,
				Offset:    off,
				Value:     []byte(strconv.Itoa(p) + ":" + strconv.FormatInt(off, 10)),
			}
			if !c.enqueue(m) {
				t.Fatalf("enqueue refused before stop")
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	for p := 0; p < 3; p++ {
		got := rec.seen[p]
		if len(got) != perPartition {
			t.Fatalf("partition %d: handled %d, want %d", p, len(got), perPartition)
		}
		for i, off := range got {
			if off != int64(i) {
				t.Fatalf("partition %d: position %d has offset %d", p, i, off)
			}
		}
	}
}
