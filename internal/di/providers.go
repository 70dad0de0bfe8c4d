package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"BotRadar/internal/domain/repository"
	"BotRadar/internal/handler/api"
	mid "BotRadar/internal/middleware"
	internalrepo "BotRadar/internal/repository"
	"BotRadar/internal/service/binance"
	"BotRadar/internal/service/cache"
	"BotRadar/internal/service/ratelimit"
	"BotRadar/internal/services/detection"
	"BotRadar/internal/usecase"
	pkgch "BotRadar/pkg/clickhouse"
	"BotRadar/pkg/config"
	xhttp "BotRadar/pkg/http"
	pkgkafka "BotRadar/pkg/kafka"
	applogger "BotRadar/pkg/logger"
	"BotRadar/pkg/metrics"
	"BotRadar/pkg/queue"
	"BotRadar/pkg/server"
)

const initTimeout = 10 * time.Second

// ProvideLogger builds the root logger from the log section. The collector
// is attached here so every component logger derived later shares it.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Log.Collect && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Log.CollectInterval,
			CountThreshold: cfg.Log.CollectMax,
			Topic:          cfg.Kafka.LogsTopic,
			Publisher:      producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient connects when persistence is enabled; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideActorStore initializes the snapshot table. A nil client yields a nil
// store, which disables history.
func ProvideActorStore(ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (repository.ActorStore, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseActorStore(ch, cfg.ClickHouse.HistoryTTLDays, l)
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideRedisClient connects when redis is enabled; nil otherwise.
func ProvideRedisClient(cfg *config.Config) (redis.UniversalClient, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	cli := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.Redis.Addr},
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return cli, nil
}

// ProvideKafkaProducer creates the shared producer when classifications or
// collected logs go to kafka.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Output.Backend != "kafka" && !cfg.Log.Collect {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClassificationList is the capped redis list classifications go to
// when the redis backend is selected; nil otherwise.
func ProvideClassificationList(cfg *config.Config, rdb redis.UniversalClient, l *applogger.Logger) (*queue.RedisList, error) {
	if cfg.Output.Backend != "redis" {
		return nil, nil
	}
	if rdb == nil {
		return nil, fmt.Errorf("output backend redis requires a redis client")
	}
	return queue.NewRedisList(l, rdb, cfg.Redis.ClassificationsKey, queue.WithMaxLen(cfg.Redis.MaxLen)), nil
}

// ProvideClassificationPublisher picks the output backend.
func ProvideClassificationPublisher(cfg *config.Config, producer *pkgkafka.Producer, list *queue.RedisList) repository.ClassificationPublisher {
	switch {
	case cfg.Output.Backend == "kafka" && producer != nil:
		return internalrepo.NewKafkaClassificationPublisher(producer, cfg.Kafka.ClassificationsTopic)
	case list != nil:
		return internalrepo.NewRedisClassificationPublisher(list)
	default:
		return nil
	}
}

// ProvideClassificationFeed reads back the redis list; without one the feed
// endpoint answers 503.
func ProvideClassificationFeed(list *queue.RedisList) *usecase.ClassificationFeed {
	if list == nil {
		return usecase.NewClassificationFeed(nil)
	}
	return usecase.NewClassificationFeed(list)
}

// ProvideDetectionConfig maps the detection and liveness sections.
func ProvideDetectionConfig(cfg *config.Config) detection.Config {
	d := detection.DefaultConfig()
	d.HistoryCapacity = cfg.Detection.HistoryCapacity
	d.MinWindow = cfg.Detection.MinWindow
	d.Institutional = detection.InstitutionalConfig{
		MinNotional:  cfg.Detection.LargeBlockNotional,
		StartHourUTC: cfg.Detection.InstitutionalStart,
		EndHourUTC:   cfg.Detection.InstitutionalEnd,
		AssetFilter:  cfg.Detection.AssetFilter,
	}
	d.Liveness = detection.Liveness{Active: cfg.Liveness.Active, Dormant: cfg.Liveness.Dormant}
	return d
}

// ProvideTradeAnalyzer starts the sharded analyzer.
func ProvideTradeAnalyzer(cfg *config.Config, det detection.Config, pub repository.ClassificationPublisher, m repository.Metrics, l *applogger.Logger) *usecase.TradeAnalyzer {
	return usecase.NewTradeAnalyzer(usecase.AnalyzerConfig{
		Shards:        cfg.Ingest.Shards,
		QueueSize:     cfg.Ingest.QueueSize,
		PublishBuffer: cfg.Output.BufferSize,
		Detection:     det,
	}, pub, m, l)
}

// ProvideRealtimePipeline is the single entry every trade source submits to.
func ProvideRealtimePipeline(cfg *config.Config, analyzer *usecase.TradeAnalyzer, m repository.Metrics) *mid.RealtimePipeline {
	return mid.NewRealtimePipeline(analyzer, m, mid.WithMaxRPS(cfg.Ingest.MaxRPS))
}

// ProvideKafkaConsumer creates the trades consumer unless ingestion is
// websocket-only.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Ingest.Source == "binance" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.TraceHook())
	return consumer, nil
}

// ProvideKafkaTradesHandler decodes trades from the trades topic.
func ProvideKafkaTradesHandler(cfg *config.Config, pipe *mid.RealtimePipeline, m repository.Metrics) pkgkafka.MessageHandler {
	return usecase.NewKafkaTradesHandler(cfg.Kafka.TradesTopic, pipe, m)
}

// ProvideMarketStream creates the Binance trade stream.
func ProvideMarketStream(cfg *config.Config, l *applogger.Logger) repository.MarketStream {
	return binance.New(l,
		cfg.Binance.WebSocketURL,
		cfg.Binance.Symbols,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
	)
}

// ProvideTradeCollector is nil unless the websocket source is enabled.
func ProvideTradeCollector(cfg *config.Config, stream repository.MarketStream, pipe *mid.RealtimePipeline, m repository.Metrics, l *applogger.Logger) *usecase.TradeCollector {
	if !cfg.UsesBinance() {
		return nil
	}
	return usecase.NewTradeCollector(stream, pipe, m, l)
}

// ProvideQueryCache uses redis when available and an in-process cache
// otherwise.
func ProvideQueryCache(rdb redis.UniversalClient) cache.BytesCache {
	if rdb != nil {
		return cache.NewRedisCache(rdb, "botradar:query:")
	}
	return cache.NewTTLCache()
}

func ProvideActorsUseCase(cfg *config.Config, analyzer *usecase.TradeAnalyzer, store repository.ActorStore, c cache.BytesCache) *usecase.ActorsUseCase {
	return usecase.NewActorsUseCase(analyzer.Engine(), store, c, cfg.Redis.CacheTTL)
}

// ProvideSnapshotter is nil when snapshots are disabled.
func ProvideSnapshotter(cfg *config.Config, analyzer *usecase.TradeAnalyzer, store repository.ActorStore, m repository.Metrics, l *applogger.Logger) *usecase.Snapshotter {
	if !cfg.Snapshot.Enabled {
		return nil
	}
	return usecase.NewSnapshotter(analyzer.Engine(), analyzer.Registry(), store, m, l, cfg.Snapshot.Interval, cfg.Liveness.Retention)
}

func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.PerSecond)
}

func ProvideActorsHandler(l *applogger.Logger, uc *usecase.ActorsUseCase, feed *usecase.ClassificationFeed, limiter *ratelimit.Limiter) *api.ActorsHandler {
	return api.NewActorsHandler(l, uc, feed, limiter.Middleware())
}

// ProvideHTTPServer builds the echo server. /health reports the actor store
// and redis when they are enabled.
func ProvideHTTPServer(cfg *config.Config, l *applogger.Logger, h *api.ActorsHandler, store repository.ActorStore, rdb redis.UniversalClient) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(true),
		xhttp.WithHealth(func(ctx context.Context) error {
			if store != nil {
				if err := store.Health(ctx); err != nil {
					return fmt.Errorf("clickhouse: %w", err)
				}
			}
			if rdb != nil {
				if err := rdb.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("redis: %w", err)
				}
			}
			return nil
		}),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path, cfg.Metrics.SlowThreshold))
	}
	return xhttp.NewServer(l, []xhttp.Handler{h}, opts...)
}

// ProvideApp assembles the lifecycle.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	analyzer *usecase.TradeAnalyzer,
	consumer *pkgkafka.Consumer,
	th pkgkafka.MessageHandler,
	collector *usecase.TradeCollector,
	snap *usecase.Snapshotter,
	srv *xhttp.Server,
	limiter *ratelimit.Limiter,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	rdb redis.UniversalClient,
) *server.App {
	return server.New(cfg, l, server.Components{
		Analyzer:      analyzer,
		Consumer:      consumer,
		TradesHandler: th,
		Collector:     collector,
		Snapshotter:   snap,
		HTTPServer:    srv,
		RateLimiter:   limiter,
		Producer:      producer,
		CHClient:      ch,
		Redis:         rdb,
	})
}
