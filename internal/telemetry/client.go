package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"pkt.systems/pslog"

	"github.com/robodeck/robodeck/schema"
)

const (
	pingInterval  = 30 * time.Second
	readDeadline  = 60 * time.Second
	writeDeadline = 10 * time.Second

	reconnectMin = 250 * time.Millisecond
	reconnectMax = 5 * time.Second
)

// Config configures the telemetry client.
type Config struct {
	// URL is the backend websocket endpoint, e.g. "ws://robot-lab:8700/ws".
	URL string
	// Token, when set, is sent as a bearer token on the handshake.
	Token string
}

// Client maintains a websocket to the backend, tracks topic
// subscriptions by refcount, and feeds frames into a Dispatcher. The
// connection reconnects with capped backoff and resubscribes all
// topics after each reconnect.
type Client struct {
	url   string
	token string
	disp  *Dispatcher
	log   pslog.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	topics map[schema.Topic]int
}

// NewClient constructs a telemetry client feeding the dispatcher.
func NewClient(cfg Config, disp *Dispatcher, logger pslog.Logger) (*Client, error) {
	trimmed := strings.TrimSpace(cfg.URL)
	if trimmed == "" {
		return nil, errors.New("telemetry url is required")
	}
	if disp == nil {
		disp = NewDispatcher(logger)
	}
	if logger == nil {
		logger = pslog.Ctx(context.Background())
	}
	return &Client{
		url:    trimmed,
		token:  strings.TrimSpace(cfg.Token),
		disp:   disp,
		log:    logger.With("telemetry", trimmed),
		topics: make(map[schema.Topic]int),
	}, nil
}

// Dispatcher returns the dispatcher frames are published to.
func (c *Client) Dispatcher() *Dispatcher { return c.disp }

// Subscribe registers interest in a topic. The returned channel
// receives frames for the topic; cancel releases the subscription and,
// when it was the last one for the topic, unsubscribes on the wire.
func (c *Client) Subscribe(topic schema.Topic) (<-chan schema.TelemetryFrame, func()) {
	ch, cancelLocal := c.disp.Subscribe(topic)
	c.mu.Lock()
	c.topics[topic]++
	first := c.topics[topic] == 1
	conn := c.conn
	c.mu.Unlock()
	if first && conn != nil {
		c.sendControl(conn, schema.SubscribeOpSubscribe, topic)
	}
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			cancelLocal()
			c.mu.Lock()
			c.topics[topic]--
			last := c.topics[topic] <= 0
			if last {
				delete(c.topics, topic)
			}
			conn := c.conn
			c.mu.Unlock()
			if last && conn != nil {
				c.sendControl(conn, schema.SubscribeOpUnsubscribe, topic)
			}
		})
	}
}

// Run drives the connect/read/reconnect loop until the context is
// cancelled. Safe to start before any subscription exists.
func (c *Client) Run(ctx context.Context) error {
	backoff := reconnectMin
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, err := c.dial(ctx)
		if err != nil {
			c.log.Warn("telemetry connect failed", "err", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, reconnectMax)
			continue
		}
		backoff = reconnectMin
		c.log.Info("telemetry connected")
		c.resubscribe(conn)
		err = c.readLoop(ctx, conn)
		c.setConn(nil)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn("telemetry connection lost", "err", err)
	}
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: writeDeadline}
	header := make(map[string][]string)
	if c.token != "" {
		header["Authorization"] = []string{"Bearer " + c.token}
	}
	conn, _, err := dialer.DialContext(ctx, c.url, header)
	if err != nil {
		return nil, err
	}
	c.setConn(conn)
	return conn, nil
}

func (c *Client) setConn(conn *websocket.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

func (c *Client) resubscribe(conn *websocket.Conn) {
	c.mu.Lock()
	topics := make([]schema.Topic, 0, len(c.topics))
	for topic := range c.topics {
		topics = append(topics, topic)
	}
	c.mu.Unlock()
	for _, topic := range topics {
		c.sendControl(conn, schema.SubscribeOpSubscribe, topic)
	}
	if len(topics) > 0 {
		c.log.Debug("telemetry resubscribed", "topics", len(topics))
	}
}

func (c *Client) sendControl(conn *websocket.Conn, op string, topic schema.Topic) {
	frame := schema.SubscribeFrame{Op: op, Topic: topic}
	_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	if err := conn.WriteJSON(frame); err != nil {
		c.log.Warn("telemetry control write failed", "op", op, "topic", topic, "err", err)
	}
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) error {
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	done := make(chan struct{})
	defer close(done)
	go func() {
		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				_ = conn.Close()
				return
			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var frame schema.TelemetryFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.log.Trace("telemetry frame discarded", "err", err)
			continue
		}
		if frame.Topic == "" {
			continue
		}
		c.disp.Publish(frame)
	}
}
