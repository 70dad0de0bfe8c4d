package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"BotRadar/internal/service/ratelimit"
	"BotRadar/internal/usecase"
	pkgch "BotRadar/pkg/clickhouse"
	"BotRadar/pkg/config"
	xhttp "BotRadar/pkg/http"
	pkgkafka "BotRadar/pkg/kafka"
	applogger "BotRadar/pkg/logger"
)

// Components are the long-lived parts the app starts and stops. Optional
// parts are nil when disabled by config.
type Components struct {
	Analyzer      *usecase.TradeAnalyzer
	Consumer      *pkgkafka.Consumer
	TradesHandler pkgkafka.MessageHandler
	Collector     *usecase.TradeCollector
	Snapshotter   *usecase.Snapshotter
	HTTPServer    *xhttp.Server
	RateLimiter   *ratelimit.Limiter

	Producer *pkgkafka.Producer
	CHClient *pkgch.Client
	Redis    redis.UniversalClient
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	log *applogger.Logger
	c   Components

	snapCancel context.CancelFunc
	snapDone   chan struct{}

	janitorCancel context.CancelFunc
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, log *applogger.Logger, c Components) *App {
	if log == nil {
		log = applogger.Nop()
	}
	return &App{cfg: cfg, log: log, c: c}
}

// Run starts the application and blocks until interrupted or the HTTP
// listener fails.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.start(ctx); err != nil {
		a.log.Error("startup failed", applogger.Error(err))
		_ = a.shutdown(context.Background())
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		a.log.Info("shutdown signal received", applogger.String("signal", sig.String()))
	case runErr = <-a.c.HTTPServer.Err():
		a.log.Error("http server failed", applogger.Error(runErr))
	}
	return errors.Join(runErr, a.shutdown(context.Background()))
}

// start brings components up from the inside out: analyzer first so every
// source has somewhere to submit.
func (a *App) start(ctx context.Context) error {
	if a.c.Consumer != nil && a.c.TradesHandler != nil {
		a.c.Consumer.RegisterHandler(a.c.TradesHandler)
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.c.TradesHandler.Topic()))
	}

	if a.c.Collector != nil {
		if err := a.c.Collector.Start(ctx); err != nil {
			return err
		}
		a.log.Info("binance collector started", applogger.Strings("symbols", a.cfg.Binance.Symbols))
	}

	if a.c.Snapshotter != nil {
		sctx, scancel := context.WithCancel(context.Background())
		a.snapCancel = scancel
		a.snapDone = make(chan struct{})
		go func() {
			defer close(a.snapDone)
			a.c.Snapshotter.Run(sctx)
		}()
	}

	if a.c.RateLimiter != nil {
		jctx, jcancel := context.WithCancel(context.Background())
		a.janitorCancel = jcancel
		go a.c.RateLimiter.Janitor(jctx, a.cfg.Server.RateLimit.IdleTTL)
	}

	return a.c.HTTPServer.Start()
}

// shutdown stops sources before the analyzer so nothing is submitted to a
// closed queue, then drains the analyzer before the last snapshot.
func (a *App) shutdown(ctx context.Context) error {
	a.log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	step := func(name string, err error) {
		if err != nil {
			a.log.Warn(name+" stop error", applogger.Error(err))
			errs = append(errs, err)
		}
	}

	if a.c.Consumer != nil {
		step("kafka consumer", a.c.Consumer.Stop(ctx))
	}
	if a.c.Collector != nil {
		step("collector", a.c.Collector.Shutdown(ctx))
	}
	if a.c.Analyzer != nil {
		step("analyzer", a.c.Analyzer.Close(ctx))
	}
	if a.snapCancel != nil {
		a.snapCancel()
		select {
		case <-a.snapDone:
		case <-ctx.Done():
			step("snapshotter", ctx.Err())
		}
	}
	if a.c.HTTPServer != nil {
		step("http server", a.c.HTTPServer.Stop(ctx))
	}
	if a.janitorCancel != nil {
		a.janitorCancel()
	}

	a.log.RemoveCollector()
	if a.c.Producer != nil {
		step("kafka producer", a.c.Producer.Close())
	}
	if a.c.CHClient != nil {
		step("clickhouse", a.c.CHClient.Close())
	}
	if a.c.Redis != nil {
		step("redis", a.c.Redis.Close())
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
