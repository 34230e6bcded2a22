package service

import (
	"alpha_bot/internal/instrumentation"
	"alpha_bot/internal/modules/config"
	"alpha_bot/pkg/logger"
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	ErrNotConfigured = errors.New("processor url is not configured")
	ErrClosed        = errors.New("processor client is closed")
)

const (
	pingEvery  = 20 * time.Second
	writeWait  = 5 * time.Second
	readLimit  = 4 << 20
	pongWait   = 2 * pingEvery
	headerName = "X-Client"
)

// frame: запрос к Processor.
type frame struct {
	ID       string `json:"id"`
	Endpoint string `json:"endpoint"`
	Payload  any    `json:"payload"`
}

// Client держит одно websocket-соединение с Processor и мультиплексирует
// по нему запросы: ответ находит ожидающего по id.
type Client struct {
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
	limiter *rate.Limiter
	group   singleflight.Group
	m       *instrumentation.Metrics

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan []byte
	closed  bool

	writeMu sync.Mutex
}

func NewClient(cfg *config.Config, m *instrumentation.Metrics) *Client {
	rps := cfg.Processor.RPS
	if rps <= 0 {
		rps = 20
	}
	burst := cfg.Processor.Burst
	if burst <= 0 {
		burst = 5
	}
	timeout := cfg.Processor.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:     cfg.Processor.URL,
		timeout: timeout,
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		m:       m,
		pending: make(map[string]chan []byte),
	}
}

// Close рвёт соединение и будит всех ожидающих.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	c.failPending()
	if conn != nil {
		return conn.Close()
	}
	return nil
}

// request отправляет кадр и ждёт ответ с тем же id.
func (c *Client) request(ctx context.Context, endpoint string, payload any) (_ []byte, err error) {
	if c.url == "" {
		return nil, ErrNotConfigured
	}
	started := time.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = "error"
		}
		if c.m != nil {
			c.m.ProcessorCalls.WithLabelValues(endpoint, status).Inc()
			c.m.ProcessorLatency.WithLabelValues(endpoint).Observe(float64(time.Since(started).Milliseconds()))
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "processor rate limit")
	}

	conn, err := c.ensureConn(ctx)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	ch := make(chan []byte, 1)
	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	raw, err := sonic.Marshal(frame{ID: id, Endpoint: endpoint, Payload: payload})
	if err != nil {
		return nil, errors.Wrap(err, "encode processor frame")
	}

	c.writeMu.Lock()
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	err = conn.WriteMessage(websocket.TextMessage, raw)
	c.writeMu.Unlock()
	if err != nil {
		c.drop(conn)
		return nil, errors.Wrapf(err, "write %s", endpoint)
	}

	select {
	case reply, ok := <-ch:
		if !ok {
			return nil, errors.Errorf("processor connection lost during %s", endpoint)
		}
		return reply, nil
	case <-ctx.Done():
		return nil, errors.Wrapf(ctx.Err(), "wait %s reply", endpoint)
	}
}

func (c *Client) ensureConn(ctx context.Context) (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if c.conn != nil {
		return c.conn, nil
	}

	header := http.Header{}
	header.Set(headerName, "alpha_bot")
	conn, _, err := c.dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, errors.Wrapf(err, "dial processor %s", c.url)
	}
	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.conn = conn
	go c.readLoop(conn)
	go c.pingLoop(conn)
	logger.Info("[PROCESSOR] connected %s", c.url)
	return conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.drop(conn)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				logger.Warn("[PROCESSOR] read error: %v", err)
			}
			return
		}
		key := gjson.GetBytes(msg, "id").String()
		if key == "" {
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[key]
		if ok {
			delete(c.pending, key)
		}
		c.mu.Unlock()
		if ok {
			ch <- msg
		}
	}
}

// keepalive, иначе балансировщик рвёт простаивающий сокет
func (c *Client) pingLoop(conn *websocket.Conn) {
	t := time.NewTicker(pingEvery)
	defer t.Stop()
	for range t.C {
		c.mu.Lock()
		alive := c.conn == conn
		c.mu.Unlock()
		if !alive {
			return
		}
		c.writeMu.Lock()
		err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
		c.writeMu.Unlock()
		if err != nil {
			c.drop(conn)
			return
		}
	}
}

// drop забывает битое соединение; следующий запрос переподключится.
func (c *Client) drop(conn *websocket.Conn) {
	c.mu.Lock()
	if c.conn != conn {
		c.mu.Unlock()
		return
	}
	c.conn = nil
	c.mu.Unlock()

	_ = conn.Close()
	c.failPending()
}

func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}
