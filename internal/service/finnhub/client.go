package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"PairDesk/internal/domain/models"
	drepo "PairDesk/internal/domain/repository"
	applogger "PairDesk/pkg/logger"
	"PairDesk/pkg/util"
)

const source = "finnhub"

// Client keeps the last trade price per symbol from the Finnhub WebSocket feed.
type Client struct {
	apiKey         string
	websocketURL   string
	symbols        []string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *applogger.Logger

	mu         sync.RWMutex
	wmu        sync.Mutex
	conn       *websocket.Conn
	connected  bool
	subscribed map[string]struct{}
	last       map[string]models.Quote
}

// New creates a new Finnhub quote stream.
func New(apiKey, websocketURL string, symbols []string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) *Client {
	if l == nil {
		l = applogger.Nop()
	}
	if pingInterval <= 0 {
		pingInterval = 30 * time.Second
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	return &Client{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		symbols:        symbols,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         l,
		subscribed:     make(map[string]struct{}),
		last:           make(map[string]models.Quote),
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := fmt.Sprintf("%s?token=%s", c.websocketURL, c.apiKey)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("finnhub connect: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.mu.Unlock()
	c.logger.Info("finnhub: connected")
	return nil
}

// Subscribe subscribes to symbols, plus the configured ones on first call.
func (c *Client) Subscribe(ctx context.Context, symbols ...string) error {
	c.mu.RLock()
	conn, ok := c.conn, c.connected
	c.mu.RUnlock()
	if conn == nil || !ok {
		return fmt.Errorf("finnhub not connected")
	}

	all := append(append([]string{}, c.symbols...), symbols...)
	for _, s := range all {
		c.mu.RLock()
		_, done := c.subscribed[s]
		c.mu.RUnlock()
		if done {
			continue
		}
		if err := c.writeJSON(map[string]string{"type": "subscribe", "symbol": s}); err != nil {
			return fmt.Errorf("subscribe %s: %w", s, err)
		}
		c.mu.Lock()
		c.subscribed[s] = struct{}{}
		c.mu.Unlock()
		c.logger.Debug("finnhub: subscribed", applogger.String("symbol", s))
	}
	return nil
}

type fhTrade struct {
	S string  `json:"s"`
	P float64 `json:"p"`
	V float64 `json:"v"`
	T int64   `json:"t"` // ms
}

type fhMessage struct {
	Type string    `json:"type"`
	Data []fhTrade `json:"data"`
}

// Run reads trades until ctx is done, reconnecting after read failures.
func (c *Client) Run(ctx context.Context) {
	go c.pingLoop(ctx)
	for {
		err := c.readLoop(ctx)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("finnhub: stream interrupted", applogger.Error(err))
		if err := c.reconnect(ctx); err != nil {
			c.logger.Error("finnhub: reconnect failed", applogger.Error(err))
		}
	}
}

func (c *Client) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(c.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.wmu.Lock()
			c.mu.RLock()
			conn := c.conn
			c.mu.RUnlock()
			if conn != nil {
				_ = conn.WriteMessage(websocket.PingMessage, nil)
			}
			c.wmu.Unlock()
		}
	}
}

func (c *Client) readLoop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()
		if conn == nil {
			return fmt.Errorf("finnhub conn nil")
		}
		_, b, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("finnhub read: %w", err)
		}
		c.handleFrame(b)
	}
}

func (c *Client) handleFrame(b []byte) {
	var m fhMessage
	if err := json.Unmarshal(b, &m); err != nil || m.Type != "trade" {
		// ignore non-trade frames
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, d := range m.Data {
		if d.P <= 0 {
			continue
		}
		ts := util.UnixMilli(d.T)
		if prev, ok := c.last[d.S]; ok && prev.Time.After(ts) {
			continue
		}
		c.last[d.S] = models.Quote{Symbol: d.S, Price: models.Number(d.P), Time: ts, Source: source}
	}
}

func (c *Client) reconnect(ctx context.Context) error {
	_ = c.Close()
	select {
	case <-time.After(c.reconnectDelay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if err := c.Connect(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	subs := make([]string, 0, len(c.subscribed))
	for s := range c.subscribed {
		subs = append(subs, s)
	}
	c.subscribed = make(map[string]struct{})
	c.mu.Unlock()
	return c.Subscribe(ctx, subs...)
}

// LastPrice returns the latest trade seen for symbol.
func (c *Client) LastPrice(symbol string) (models.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.last[symbol]
	return q, ok
}

func (c *Client) writeJSON(v any) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("finnhub conn nil")
	}
	return conn.WriteJSON(v)
}

// Close closes the WS connection.
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

// IsConnected indicates status.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

var _ drepo.QuoteStream = (*Client)(nil)
