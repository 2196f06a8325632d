// Package clienttest provides an in-process standalone ledger node that
// speaks the websocket command protocol, for tests.
package clienttest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// Node is a fake standalone node. Transactions are applied when submitted
// and become validated when a ledger_accept closes the ledger.
type Node struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu     sync.Mutex
	ledger *ledger
	held   bool

	connMu      sync.Mutex
	connections map[*connection]struct{}
	requests    map[string]int
}

type connection struct {
	conn   *websocket.Conn
	send   chan []byte
	ctx    context.Context
	cancel context.CancelFunc
}

// rpcError mirrors the node's flat error response fields.
type rpcError struct {
	Code    string
	Number  int
	Message string
}

func errInvalidParams(msg string) *rpcError {
	return &rpcError{Code: "invalidParams", Number: 31, Message: msg}
}

// NewNode starts a node with a funded genesis account and registers its
// shutdown with t.
func NewNode(t testing.TB) *Node {
	t.Helper()
	n := &Node{
		upgrader: websocket.Upgrader{
			CheckOrigin:  func(r *http.Request) bool { return true },
			Subprotocols: []string{"xrpl"},
		},
		ledger:      newLedger(),
		connections: make(map[*connection]struct{}),
		requests:    make(map[string]int),
	}
	n.server = httptest.NewServer(n)
	t.Cleanup(n.Close)
	return n
}

// URL is the websocket endpoint of the node.
func (n *Node) URL() string {
	return "ws" + strings.TrimPrefix(n.server.URL, "http")
}

// Close drops every connection and stops the server.
func (n *Node) Close() {
	n.connMu.Lock()
	for c := range n.connections {
		c.cancel()
		c.conn.Close()
	}
	n.connMu.Unlock()
	n.server.Close()
}

// HoldLedgers makes ledger_accept report success without closing the
// ledger, so that submitted transactions never validate.
func (n *Node) HoldLedgers(hold bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.held = hold
}

// Accept closes the current ledger as ledger_accept would.
func (n *Node) Accept() uint32 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ledger.close()
}

// Requests returns how many times command has been received.
func (n *Node) Requests(command string) int {
	n.connMu.Lock()
	defer n.connMu.Unlock()
	return n.requests[command]
}

// ServeHTTP upgrades the request and serves commands until the peer leaves.
func (n *Node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := n.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &connection{
		conn:   conn,
		send:   make(chan []byte, 64),
		ctx:    ctx,
		cancel: cancel,
	}

	n.connMu.Lock()
	n.connections[c] = struct{}{}
	n.connMu.Unlock()

	go n.handleSend(c)
	n.handleConnection(c)
}

func (n *Node) handleConnection(c *connection) {
	defer func() {
		c.cancel()
		c.conn.Close()
		n.connMu.Lock()
		delete(n.connections, c)
		n.connMu.Unlock()
	}()

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		reply := n.handleMessage(message)
		select {
		case c.send <- reply:
		case <-c.ctx.Done():
			return
		}
	}
}

func (n *Node) handleSend(c *connection) {
	for {
		select {
		case <-c.ctx.Done():
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.cancel()
				return
			}
		}
	}
}

func (n *Node) handleMessage(message []byte) []byte {
	var cmdMap map[string]any
	if err := json.Unmarshal(message, &cmdMap); err != nil {
		return encodeError(nil, errInvalidParams("Invalid JSON: "+err.Error()))
	}
	id := cmdMap["id"]
	command, _ := cmdMap["command"].(string)
	if command == "" {
		return encodeError(id, &rpcError{Code: "missingCommand", Number: 1, Message: "Missing command field"})
	}
	delete(cmdMap, "id")
	delete(cmdMap, "command")

	n.connMu.Lock()
	n.requests[command]++
	n.connMu.Unlock()

	handler, ok := n.handlers()[command]
	if !ok {
		return encodeError(id, &rpcError{Code: "unknownCmd", Number: 32, Message: "Unknown method."})
	}

	n.mu.Lock()
	result, rpcErr := handler(cmdMap)
	n.mu.Unlock()
	if rpcErr != nil {
		return encodeError(id, rpcErr)
	}
	out, _ := json.Marshal(map[string]any{
		"id":     id,
		"type":   "response",
		"status": "success",
		"result": result,
	})
	return out
}

func encodeError(id any, e *rpcError) []byte {
	out, _ := json.Marshal(map[string]any{
		"id":            id,
		"type":          "response",
		"status":        "error",
		"error":         e.Code,
		"error_code":    e.Number,
		"error_message": e.Message,
	})
	return out
}
