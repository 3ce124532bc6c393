// Package notify maintains the realtime notification channel: a
// websocket connection with a reconnect state machine, an in-memory
// feed with unread accounting, and a polling fallback. Channel
// failures are never fatal — they only degrade the live indicator and
// notification freshness.
package notify

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/gorilla/websocket"

	"github.com/civiceye/civiceye/internal/model"
)

// State is the channel's connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

// String renders the state for the Live/Offline indicator.
func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "live"
	default:
		return "offline"
	}
}

// StateMsg is a tea.Msg announcing a connection state change.
type StateMsg struct {
	State State
}

// EventMsg is a tea.Msg carrying one parsed notification, delivered in
// arrival order.
type EventMsg struct {
	Event model.NotificationEvent
}

// TokenSource supplies the current access token at connect time.
type TokenSource func() string

// wsConn is the slice of *websocket.Conn the channel needs; tests
// substitute fakes.
type wsConn interface {
	ReadMessage() (int, []byte, error)
	Close() error
}

// dialFunc opens a websocket connection to url.
type dialFunc func(url string) (wsConn, error)

func gorillaDial(url string) (wsConn, error) {
	dialer := &websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.Dial(url, http.Header{})
	return conn, err
}

// Channel owns one realtime connection and its reconnect policy:
// DISCONNECTED -> CONNECTING -> CONNECTED, back to DISCONNECTED on any
// error or close, then a single fixed-delay reconnect unless the owner
// has torn the channel down.
type Channel struct {
	url    string
	tokens TokenSource
	delay  time.Duration
	logger *slog.Logger
	dial   dialFunc

	mu        sync.Mutex
	state     State
	conn      wsConn
	reconnect *time.Timer
	scheduled int // reconnects scheduled, for tests and logging
	closed    bool

	msgs chan tea.Msg
}

// NewChannel creates a channel for the given websocket URL. The token
// source is read at every connection attempt; delay is the fixed
// reconnect backoff.
func NewChannel(url string, tokens TokenSource, delay time.Duration, logger *slog.Logger) *Channel {
	if delay <= 0 {
		delay = 3 * time.Second
	}
	return &Channel{
		url:    url,
		tokens: tokens,
		delay:  delay,
		logger: logger,
		dial:   gorillaDial,
		msgs:   make(chan tea.Msg, 64),
	}
}

// State returns the current connection state.
func (c *Channel) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Connect starts a connection attempt. It is a no-op when the channel
// is already connected or connecting, when it has been closed, or when
// no access token is available (no token, no attempt).
func (c *Channel) Connect() {
	c.mu.Lock()
	if c.closed || c.state != StateDisconnected {
		c.mu.Unlock()
		return
	}

	token := c.tokens()
	if token == "" {
		c.mu.Unlock()
		return
	}

	c.state = StateConnecting
	c.mu.Unlock()
	c.emit(StateMsg{State: StateConnecting})

	go c.open(c.url + "?token=" + token)
}

// open dials the endpoint and, on success, hands the connection to the
// read loop.
func (c *Channel) open(url string) {
	conn, err := c.dial(url)
	if err != nil {
		c.logger.Warn("notification channel dial failed", "error", err)
		c.dropAndReschedule()
		return
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return
	}
	c.conn = conn
	c.state = StateConnected
	c.mu.Unlock()

	c.emit(StateMsg{State: StateConnected})
	go c.readLoop(conn)
}

// readLoop processes incoming frames in arrival order until the
// connection drops. Malformed payloads are logged and dropped without
// tearing the connection down.
func (c *Channel) readLoop(conn wsConn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stale := c.conn != conn
			c.mu.Unlock()
			if !stale {
				c.dropAndReschedule()
			}
			return
		}

		var ev model.NotificationEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			c.logger.Warn("dropping malformed notification payload", "error", err)
			continue
		}
		c.emit(EventMsg{Event: ev})
	}
}

// dropAndReschedule moves the channel to DISCONNECTED and, unless the
// owner closed it, schedules exactly one reconnect attempt. A second
// drop while an attempt is pending must not create a second timer.
func (c *Channel) dropAndReschedule() {
	c.mu.Lock()

	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	wasConnected := c.state != StateDisconnected
	c.state = StateDisconnected

	if !c.closed && c.reconnect == nil {
		c.scheduled++
		c.reconnect = time.AfterFunc(c.delay, func() {
			c.mu.Lock()
			c.reconnect = nil
			c.mu.Unlock()
			c.Connect()
		})
	}
	c.mu.Unlock()

	if wasConnected {
		c.emit(StateMsg{State: StateDisconnected})
	}
}

// Close tears the channel down: the pending reconnect timer is
// cancelled synchronously and the socket is closed, so no callback can
// fire into a dead session after Close returns.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.reconnect != nil {
		c.reconnect.Stop()
		c.reconnect = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.state = StateDisconnected
}

// emit delivers a message without blocking; the UI drains the buffer
// via WaitForMsg. Overflow drops the message rather than stalling the
// read loop.
func (c *Channel) emit(msg tea.Msg) {
	select {
	case c.msgs <- msg:
	default:
		c.logger.Warn("notification message buffer full, dropping")
	}
}

// WaitForMsg returns a tea.Cmd that blocks for the next channel
// message. After handling each message the caller re-subscribes with
// another WaitForMsg, mirroring the Bubble Tea subscription idiom.
func (c *Channel) WaitForMsg() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-c.msgs
		if !ok {
			return nil
		}
		return msg
	}
}
