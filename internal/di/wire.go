//go:build wireinject
// +build wireinject

package di

import (
	"BotRadar/pkg/config"
	"BotRadar/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisClient,

		// Repositories
		ProvideActorStore,
		ProvideClassificationList,
		ProvideClassificationPublisher,
		ProvideClassificationFeed,
		ProvideQueryCache,

		// Detection and ingestion
		ProvideDetectionConfig,
		ProvideTradeAnalyzer,
		ProvideRealtimePipeline,
		ProvideKafkaConsumer,
		ProvideKafkaTradesHandler,
		ProvideMarketStream,
		ProvideTradeCollector,

		// Read side
		ProvideActorsUseCase,
		ProvideSnapshotter,
		ProvideRateLimiter,
		ProvideActorsHandler,
		ProvideHTTPServer,

		ProvideApp,
	)
	return nil, nil
}
