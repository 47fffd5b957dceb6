package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"alert-relay/src/helpers"
	"alert-relay/src/interfaces"
	"alert-relay/src/logger"
	"alert-relay/src/models"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Connector
// -----------------------------------------------------------------------------

// Connector keeps exactly one logical connection to the upstream feed alive
// for the process lifetime. On every (re)connect it resubscribes to the
// configured instrument universe; each inbound tick is handed to the sink
// for fan-out. There is no terminal state short of context cancellation:
// transient upstream failures are retried forever and never surfaced to
// clients.
type Connector struct {
	Config *models.MConfig
	Logger *logger.Logger
	Sink   interfaces.ITickSink

	dialer *websocket.Dialer
	header http.Header

	connected  atomic.Bool
	lastTickAt atomic.Int64
	reconnects atomic.Int64
}

// -----------------------------------------------------------------------------

// subscribeRequest is sent once per (re)connect, naming the universe.
type subscribeRequest struct {
	Symbols []string `json:"symbols"`
}

// wsTick is the upstream tick payload. Prices arrive as JSON numbers or
// numeric strings; decimal.Decimal accepts both.
type wsTick struct {
	Symbol        string           `json:"symbol"`
	LastSalePrice *decimal.Decimal `json:"lastSalePrice"`
	Price         *decimal.Decimal `json:"price"`
}

// -----------------------------------------------------------------------------

func NewConnector(cfg *models.MConfig, sink interfaces.ITickSink, logLevel string) *Connector {
	dialer := &websocket.Dialer{
		HandshakeTimeout: time.Duration(cfg.Network.RequestTimeout) * time.Second,
	}
	if cfg.Network.Proxy != "" {
		if proxyURL, err := url.Parse(cfg.Network.Proxy); err == nil {
			dialer.Proxy = http.ProxyURL(proxyURL)
		}
	}

	header := http.Header{}
	if cfg.Network.UserAgent != "" {
		header.Set("User-Agent", cfg.Network.UserAgent)
	}

	return &Connector{
		Config: cfg,
		Logger: logger.NewLogger(logLevel, "FeedConnector"),
		Sink:   sink,
		dialer: dialer,
		header: header,
	}
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Start launches the connect/receive loop in the background.
// ctx: controls the lifecycle (cancellation stops the connector)
// wg: signals when the connector has fully stopped
func (c *Connector) Start(ctx context.Context, wg *sync.WaitGroup) error {
	if c.Config.Feed.URL == "" {
		return &helpers.ConfigurationError{AlertRelayError: helpers.AlertRelayError{Message: "feed url is empty"}}
	}

	wg.Add(1)
	go c.run(ctx, wg)
	return nil
}

// -----------------------------------------------------------------------------

func (c *Connector) run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	backoff := &helpers.Backoff{
		Base: time.Duration(c.Config.Feed.ReconnectBaseSeconds * float64(time.Second)),
		Max:  time.Duration(c.Config.Feed.ReconnectMaxSeconds * float64(time.Second)),
	}

	for {
		if ctx.Err() != nil {
			return
		}

		err := c.connectAndListen(ctx, backoff)
		if ctx.Err() != nil {
			return
		}
		c.reconnects.Add(1)

		delay := backoff.Next()
		c.Logger.Warning("Feed connection lost: %v. Reconnecting in %v", err, delay.Round(time.Millisecond))

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}

// -----------------------------------------------------------------------------

func (c *Connector) connectAndListen(ctx context.Context, backoff *helpers.Backoff) error {
	c.Logger.Info("Connecting to feed %s", c.Config.Feed.URL)

	conn, _, err := c.dialer.DialContext(ctx, c.Config.Feed.URL, c.header)
	if err != nil {
		return &helpers.FeedError{AlertRelayError: helpers.AlertRelayError{Message: "dial failed", Cause: err}}
	}

	// Unblock the read loop when the process shuts down.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	defer func() {
		c.connected.Store(false)
		conn.Close()
	}()

	if err := conn.WriteJSON(subscribeRequest{Symbols: c.Config.Feed.Symbols}); err != nil {
		return &helpers.FeedError{AlertRelayError: helpers.AlertRelayError{Message: "subscribe failed", Cause: err}}
	}

	c.connected.Store(true)
	backoff.Reset()
	c.Logger.Info("Feed connected, subscribed to %d symbols", len(c.Config.Feed.Symbols))

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			return &helpers.FeedError{AlertRelayError: helpers.AlertRelayError{Message: "read failed", Cause: err}}
		}

		// Non-text frames terminate this attempt and trigger reconnect.
		if msgType != websocket.TextMessage {
			return &helpers.FeedError{AlertRelayError: helpers.AlertRelayError{Message: fmt.Sprintf("unexpected frame type %d", msgType)}}
		}

		if err := c.handleMessage(payload); err != nil {
			return err
		}
	}
}

// -----------------------------------------------------------------------------
// Tick parsing
// -----------------------------------------------------------------------------

// handleMessage parses one text frame. A frame that is not valid JSON tears
// the connection down (transient upstream failure); valid JSON that simply
// isn't a tick is ignored.
func (c *Connector) handleMessage(payload []byte) error {
	var tick wsTick
	if err := json.Unmarshal(payload, &tick); err != nil {
		return &helpers.FeedError{AlertRelayError: helpers.AlertRelayError{Message: "malformed frame", Cause: err}}
	}

	price := tick.LastSalePrice
	if price == nil {
		price = tick.Price
	}
	if tick.Symbol == "" || price == nil {
		return nil
	}

	now := time.Now().Unix()
	c.lastTickAt.Store(now)

	emitted := c.Sink.Dispatch(models.MTick{
		Symbol:     tick.Symbol,
		Price:      price.InexactFloat64(),
		ReceivedAt: now,
	})
	if emitted > 0 {
		c.Logger.Debug("Tick %s@%s emitted %d alerts", tick.Symbol, price, emitted)
	}
	return nil
}

// -----------------------------------------------------------------------------
// Status (for /api/health)
// -----------------------------------------------------------------------------

func (c *Connector) Status() models.MFeedStatus {
	return models.MFeedStatus{
		Connected:  c.connected.Load(),
		LastTickAt: c.lastTickAt.Load(),
		Reconnects: c.reconnects.Load(),
	}
}
