package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"BotRadar/internal/domain/models"
	drepo "BotRadar/internal/domain/repository"
	"BotRadar/pkg/logger"
)

const venue = "binance"

// Client streams spot trades from Binance's combined stream endpoint.
type Client struct {
	log            *logger.Logger
	baseURL        string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	dialer         *websocket.Dialer

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
}

func New(log *logger.Logger, baseURL string, symbols []string, reconnectDelay, pingInterval time.Duration) *Client {
	if log == nil {
		log = logger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	return &Client{
		log:            log.Component("binance"),
		baseURL:        baseURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		dialer:         websocket.DefaultDialer,
	}
}

var _ drepo.MarketStream = (*Client)(nil)

// StreamURL builds ?streams=btcusdt@trade/ethusdt@trade on top of baseURL.
func StreamURL(baseURL string, symbols []string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("binance url: %w", err)
	}
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
			streams = append(streams, s+"@trade")
		}
	}
	if len(streams) == 0 {
		return "", fmt.Errorf("binance: no symbols")
	}
	q := u.Query()
	q.Set("streams", strings.Join(streams, "/"))
	u.RawQuery = q.Encode()
	// Binance expects the slash separators unescaped.
	u.RawQuery = strings.ReplaceAll(u.RawQuery, "%2F", "/")
	return u.String(), nil
}

// Connect dials the combined stream; the symbol list is part of the URL.
func (c *Client) Connect(ctx context.Context) error {
	u, err := StreamURL(c.baseURL, c.symbols)
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("binance connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.log.Info("connected", logger.Strings("symbols", c.symbols))
	return nil
}

// Subscribe is a no-op beyond a state check; streams are chosen at dial time.
func (c *Client) Subscribe(ctx context.Context) error {
	if !c.IsConnected() {
		return fmt.Errorf("binance not connected")
	}
	return nil
}

type combinedMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

type tradePayload struct {
	EventType    string          `json:"e"`
	EventTime    int64           `json:"E"`
	Symbol       string          `json:"s"`
	TradeID      int64           `json:"t"`
	Price        decimal.Decimal `json:"p"`
	Qty          decimal.Decimal `json:"q"`
	TradeTime    int64           `json:"T"`
	IsBuyerMaker bool            `json:"m"`
}

// ParseMessage decodes one frame. ok is false for non-trade frames such as
// subscription acks. A buyer-maker trade was initiated by the seller.
func ParseMessage(b []byte) (ev models.TradeEvent, ok bool, err error) {
	var cm combinedMessage
	if err := json.Unmarshal(b, &cm); err != nil {
		return ev, false, fmt.Errorf("binance frame: %w", err)
	}
	data := cm.Data
	if len(data) == 0 {
		// raw /ws endpoint sends the payload unwrapped
		data = b
	}
	var p tradePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return ev, false, fmt.Errorf("binance trade: %w", err)
	}
	if p.EventType != "trade" {
		return ev, false, nil
	}
	side := models.SideBuy
	if p.IsBuyerMaker {
		side = models.SideSell
	}
	ts := p.TradeTime
	if ts == 0 {
		ts = p.EventTime
	}
	ev = models.TradeEvent{
		Venue:     venue,
		Symbol:    strings.ToUpper(p.Symbol),
		Price:     p.Price.InexactFloat64(),
		Quantity:  p.Qty.InexactFloat64(),
		Notional:  p.Price.Mul(p.Qty).InexactFloat64(),
		Side:      side,
		Timestamp: float64(ts) / 1e3,
		TradeID:   strconv.FormatInt(p.TradeID, 10),
		IsMaker:   p.IsBuyerMaker,
	}
	return ev, true, nil
}

// Read streams trades until the connection fails or ctx ends. The trade
// channel send blocks so a slow consumer backs up into the socket.
func (c *Client) Read(ctx context.Context) (<-chan *models.TradeEvent, <-chan error) {
	trades := make(chan *models.TradeEvent, 1024)
	errs := make(chan error, 1)

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		errs <- fmt.Errorf("binance conn nil")
		close(trades)
		close(errs)
		return trades, errs
	}

	readCtx, cancel := context.WithCancel(ctx)
	go c.pingLoop(readCtx, conn)

	go func() {
		defer cancel()
		defer close(trades)
		defer close(errs)
		for {
			_, b, err := conn.ReadMessage()
			if err != nil {
				if readCtx.Err() == nil {
					errs <- fmt.Errorf("binance read: %w", err)
				}
				return
			}
			ev, ok, err := ParseMessage(b)
			if err != nil {
				c.log.Debug("skip frame", logger.Error(err))
				continue
			}
			if !ok {
				continue
			}
			select {
			case trades <- &ev:
			case <-readCtx.Done():
				return
			}
		}
	}()
	return trades, errs
}

func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.log.Warn("ping failed", logger.Error(err))
				return
			}
		}
	}
}

// Reconnect closes the socket, waits reconnectDelay and dials again.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	return c.Subscribe(ctx)
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		return err
	}
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}
