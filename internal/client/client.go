// Package client is a request/response websocket client for a ledger node.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/LeJamon/xrplconform/internal/log"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Default time allowed to connect to the node.
	defaultDialTimeout = 5 * time.Second

	maxMessageSize = 4 << 20
)

// Option customises a Client at dial time.
type Option func(*Client)

// WithDialTimeout bounds the websocket handshake.
func WithDialTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.dialTimeout = d
		}
	}
}

// response is the envelope of every reply the node sends on the socket.
// Error replies are flat: error, error_code and error_message sit next to id.
type response struct {
	ID           uint64          `json:"id"`
	Type         string          `json:"type"`
	Status       string          `json:"status"`
	Result       json.RawMessage `json:"result"`
	Error        string          `json:"error"`
	ErrorCode    int             `json:"error_code"`
	ErrorMessage string          `json:"error_message"`
}

// Client multiplexes JSON commands over a single websocket connection.
// It is safe for concurrent use.
type Client struct {
	url         string
	dialTimeout time.Duration

	conn     *websocket.Conn
	nextID   atomic.Uint64
	outgoing chan []byte

	mu      sync.Mutex
	pending map[uint64]chan *response

	cancel    context.CancelFunc
	done      chan struct{}
	err       error
	closing   atomic.Bool
	closeOnce sync.Once
}

// Dial connects to the node at url. The returned client owns the connection
// until Close is called.
func Dial(ctx context.Context, url string, opts ...Option) (*Client, error) {
	c := &Client{
		url:         url,
		dialTimeout: defaultDialTimeout,
		outgoing:    make(chan []byte),
		pending:     make(map[uint64]chan *response),
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.dialTimeout)
	defer cancel()
	conn, _, err := websocket.DefaultDialer.DialContext(dialCtx, url, nil)
	if err != nil {
		return nil, &ConnectionError{Op: "dial", URL: url, Err: err}
	}
	conn.SetReadLimit(maxMessageSize)
	c.conn = conn

	runCtx, stop := context.WithCancel(context.Background())
	c.cancel = stop
	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(c.readPump)
	group.Go(func() error { return c.writePump(groupCtx) })

	go func() {
		c.err = group.Wait()
		c.failPending()
		close(c.done)
	}()

	log.Debug("Connected to node", "url", url)
	return c, nil
}

// URL returns the endpoint the client is connected to.
func (c *Client) URL() string {
	return c.url
}

// IsConnected reports whether the pumps are still running.
func (c *Client) IsConnected() bool {
	select {
	case <-c.done:
		return false
	default:
		return true
	}
}

// Close shuts the connection down and blocks until both pumps have exited.
// Pending requests fail with ErrClosed.
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		c.closing.Store(true)
		c.cancel()
	})
	<-c.done
	return nil
}

// Request sends command with params and decodes the result into out, which
// may be nil. Cancelling ctx abandons the request.
func (c *Client) Request(ctx context.Context, command string, params map[string]any, out any) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", command, err)
	}
	id := c.nextID.Add(1)

	msg := make(map[string]any, len(params)+2)
	for k, v := range params {
		msg[k] = v
	}
	msg["id"] = id
	msg["command"] = command
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", command, err)
	}

	ch := make(chan *response, 1)
	c.mu.Lock()
	if c.pending == nil {
		c.mu.Unlock()
		return c.closedError()
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer c.forget(id)

	select {
	case c.outgoing <- payload:
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", command, ctx.Err())
	case <-c.done:
		return c.closedError()
	}

	var resp *response
	select {
	case resp = <-ch:
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", command, ctx.Err())
	case <-c.done:
		return c.closedError()
	}

	if resp.Status == "error" || resp.Error != "" {
		return &RPCError{
			Command:   command,
			Code:      resp.Error,
			ErrorCode: resp.ErrorCode,
			Message:   resp.ErrorMessage,
		}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("failed to decode %s result: %w", command, err)
	}
	return nil
}

func (c *Client) forget(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending != nil {
		delete(c.pending, id)
	}
}

func (c *Client) failPending() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = nil
}

func (c *Client) closedError() error {
	if c.closing.Load() {
		return ErrClosed
	}
	select {
	case <-c.done:
	default:
		return ErrClosed
	}
	var connErr *ConnectionError
	if errors.As(c.err, &connErr) {
		return connErr
	}
	return ErrClosed
}

// readPump routes responses to their pending requests. It always returns an
// error so that the group cancels writePump when the socket goes away.
func (c *Client) readPump() error {
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return &ConnectionError{Op: "read", URL: c.url, Err: err}
		}

		var resp response
		if err := json.Unmarshal(message, &resp); err != nil {
			log.Warn("Dropping malformed message", "url", c.url, "err", err)
			continue
		}
		if resp.Type != "" && resp.Type != "response" {
			log.Debug("Ignoring stream message", "type", resp.Type)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		c.mu.Unlock()
		if !ok {
			log.Debug("Unexpected response", "id", resp.ID)
			continue
		}
		ch <- &resp
	}
}

// writePump owns all writes on the connection, including keepalive pings.
// It closes the socket on the way out, which also stops readPump.
func (c *Client) writePump(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.outgoing:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return &ConnectionError{Op: "write", URL: c.url, Err: err}
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return &ConnectionError{Op: "ping", URL: c.url, Err: err}
			}
		case <-ctx.Done():
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return nil
		}
	}
}
