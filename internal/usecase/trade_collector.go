package usecase

import (
	"context"
	"errors"
	"sync"

	"BotRadar/internal/domain/models"
	drepo "BotRadar/internal/domain/repository"
	"BotRadar/pkg/logger"
)

// TradeCollector pumps a venue stream into the trade sink and reconnects
// when the stream drops.
type TradeCollector struct {
	stream  drepo.MarketStream
	sink    TradeSink
	metrics drepo.Metrics
	log     *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewTradeCollector(stream drepo.MarketStream, sink TradeSink, metrics drepo.Metrics, log *logger.Logger) *TradeCollector {
	if log == nil {
		log = logger.Nop()
	}
	return &TradeCollector{stream: stream, sink: sink, metrics: metrics, log: log.Component("collector")}
}

func (c *TradeCollector) IsConnected() bool { return c.stream.IsConnected() }

// Start connects and runs the read loop in the background.
func (c *TradeCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.wg.Add(1)
	go c.loop(ctx)
	return nil
}

func (c *TradeCollector) loop(ctx context.Context) {
	defer c.wg.Done()
	for ctx.Err() == nil {
		trCh, errCh := c.stream.Read(ctx)
		c.consume(ctx, trCh, errCh)
		if ctx.Err() != nil {
			return
		}
		c.metrics.RecordError("stream")
		if err := c.stream.Reconnect(ctx); err != nil {
			c.log.Warn("reconnect failed", logger.Error(err))
		}
	}
}

// consume returns when the stream closes its channels or ctx ends.
func (c *TradeCollector) consume(ctx context.Context, trCh <-chan *models.TradeEvent, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errCh:
			if ok && err != nil {
				c.log.Warn("stream error", logger.Error(err))
			}
			if !ok {
				errCh = nil
			}
		case ev, ok := <-trCh:
			if !ok {
				return
			}
			if ev == nil {
				continue
			}
			if err := c.sink.Process(ctx, *ev); err != nil && !errors.Is(err, context.Canceled) {
				c.log.Debug("trade rejected", logger.String("symbol", ev.Symbol), logger.Error(err))
			}
		}
	}
}

// Shutdown stops the read loop and closes the stream.
func (c *TradeCollector) Shutdown(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	err := c.stream.Close()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return err
}
