package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"BotRadar/pkg/logger"
)

// MessageHandler handles messages from one topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// ErrPermanent marks a handler error that retrying cannot fix. Such messages
// skip the backoff loop and go straight to the DLQ (or are committed).
var ErrPermanent = errors.New("permanent")

// Permanent wraps err so the consumer does not retry it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

// Consumer reads registered topics and fans messages out to a worker pool.
// Each worker owns its own queue and a partition always maps to the same
// worker, so messages of one partition are handled in offset order.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *logger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	queues   []chan kafka.Message
	dlq      *kafka.Writer
	hook     ConsumerHook

	stop     chan struct{}
	stopOnce sync.Once
	readWG   sync.WaitGroup
	workWG   sync.WaitGroup
}

func NewConsumer(log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := defaultConsumerConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.WorkerCount < 1 {
		cfg.WorkerCount = 1
	}

	c := &Consumer{
		cfg:      cfg,
		log:      log.Component("kafka-consumer"),
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		queues:   make([]chan kafka.Message, cfg.WorkerCount),
		hook:     NoopHook{},
		stop:     make(chan struct{}),
	}
	for i := range c.queues {
		c.queues[i] = make(chan kafka.Message, cfg.BufferSize)
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Topic: cfg.DLQTopic, Balancer: &kafka.LeastBytes{}}
	}
	initConsumerMetrics()
	return c, nil
}

// RegisterHandler must be called before Start.
func (c *Consumer) RegisterHandler(h MessageHandler) {
	topic := h.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("handler already registered", logger.String("topic", topic))
		return
	}
	c.handlers[topic] = h
}

// WithConsumerHook replaces the lifecycle hook.
func (c *Consumer) WithConsumerHook(h ConsumerHook) {
	if h != nil {
		c.hook = h
	}
}

func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}
	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers:     c.cfg.Brokers,
			Topic:       topic,
			GroupID:     c.cfg.GroupID,
			StartOffset: c.cfg.StartOffset,
			MinBytes:    c.cfg.MinBytes,
			MaxBytes:    c.cfg.MaxBytes,
		})
	}

	c.startWorkers()
	for topic, r := range c.readers {
		c.readWG.Add(1)
		go c.fetch(topic, r)
	}
	c.log.Info("kafka consumer started",
		logger.Int("workers", c.cfg.WorkerCount),
		logger.Int("topics", len(c.readers)),
		logger.String("group", c.cfg.GroupID))
	return nil
}

// Stop halts fetching, lets workers drain what is queued and closes readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var err error
	c.stopOnce.Do(func() {
		close(c.stop)
		c.readWG.Wait()
		for _, q := range c.queues {
			close(q)
		}
		err = waitGroup(ctx, &c.workWG)

		for topic, r := range c.readers {
			if cerr := r.Close(); cerr != nil {
				c.log.Warn("close reader", logger.String("topic", topic), logger.Error(cerr))
			}
		}
		if c.dlq != nil {
			if cerr := c.dlq.Close(); cerr != nil {
				c.log.Warn("close dlq writer", logger.Error(cerr))
			}
		}
		if err == nil {
			c.log.Info("kafka consumer stopped")
		}
	})
	return err
}

func waitGroup(ctx context.Context, wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
	case <-done:
		return nil
	}
}

func (c *Consumer) fetch(topic string, r *kafka.Reader) {
	defer c.readWG.Done()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-c.stop
		cancel()
	}()

	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.log.Warn("fetch message", logger.String("topic", topic), logger.Error(err))
			select {
			case <-time.After(c.cfg.BackoffMin):
			case <-c.stop:
				return
			}
			continue
		}

		if !c.enqueue(m) {
			return
		}
	}
}

func (c *Consumer) startWorkers() {
	for _, q := range c.queues {
		c.workWG.Add(1)
		go c.worker(q)
	}
}

// enqueue hands m to the worker owning its partition. A full queue stalls the
// reader instead of dropping; false means the consumer is stopping.
func (c *Consumer) enqueue(m kafka.Message) bool {
	q := c.queues[m.Partition%len(c.queues)]
	select {
	case q <- m:
		consumerQueueDepth.WithLabelValues(m.Topic).Set(float64(len(q)))
		return true
	case <-c.stop:
		return false
	}
}

func (c *Consumer) worker(q <-chan kafka.Message) {
	defer c.workWG.Done()
	for m := range q {
		c.process(m)
	}
}

func (c *Consumer) process(m kafka.Message) {
	h, ok := c.handlers[m.Topic]
	if !ok {
		return
	}
	start := time.Now()
	err := c.handleWithRetry(h, m)
	if err != nil {
		consumerFailures.WithLabelValues(m.Topic).Inc()
		c.log.Error("handle message",
			logger.String("topic", m.Topic),
			logger.Int("partition", m.Partition),
			logger.Int64("offset", m.Offset),
			logger.Error(err))
		c.deadLetter(m, err)
	}

	// Commit after success, after the DLQ write, or for permanent failures
	// so a poison message cannot wedge the partition.
	if err == nil || c.dlq != nil || errors.Is(err, ErrPermanent) {
		if r := c.readers[m.Topic]; r != nil {
			_ = c.commit(r, m)
		}
	}
	consumerHandleLatency.WithLabelValues(m.Topic).Observe(time.Since(start).Seconds())
}

func (c *Consumer) handleWithRetry(h MessageHandler, m kafka.Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = Permanent(fmt.Errorf("handler panic: %v", r))
		}
	}()

	for attempt := 1; ; attempt++ {
		ctx, msg, data, berr := c.hook.BeforeHandle(context.Background(), m.Topic, m, m.Value)
		if berr != nil {
			return Permanent(berr)
		}
		err = h.Handle(ctx, data)
		c.hook.AfterHandle(ctx, m.Topic, msg, data, err)
		if err == nil {
			return nil
		}
		c.hook.OnError(ctx, m.Topic, msg, data, err)
		if errors.Is(err, ErrPermanent) || attempt > c.cfg.RetryMax {
			return err
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.stop:
			return err
		}
	}
}

func (c *Consumer) deadLetter(m kafka.Message, cause error) {
	if c.dlq == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := c.dlq.WriteMessages(ctx, kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "source_topic", Value: []byte(m.Topic)},
			{Key: "error", Value: []byte(cause.Error())},
		},
	})
	if err != nil {
		c.log.Error("write dlq", logger.String("topic", c.cfg.DLQTopic), logger.Error(err))
	}
}

func (c *Consumer) commit(r *kafka.Reader, m kafka.Message) error {
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = r.CommitMessages(ctx, m)
		cancel()
		if err == nil {
			return nil
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	c.log.Error("commit offset", logger.String("topic", m.Topic), logger.Int64("offset", m.Offset), logger.Error(err))
	return err
}

// backoffWithJitter doubles from min per attempt, caps at max and subtracts
// up to half as jitter.
func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	if attempt < 1 {
		attempt = 1
	}
	exp := max
	if attempt < 32 {
		if d := min << uint(attempt-1); d > 0 && d < max {
			exp = d
		}
	}
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerFailures      *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          sync.Once
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "botradar_kafka_consumer_queue_depth", Help: "Messages waiting for a worker"},
			[]string{"topic"},
		)
		consumerFailures = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "botradar_kafka_consumer_failures_total", Help: "Messages that failed after retries"},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "botradar_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
