package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// SocketPath is where the backend accepts the persistent connection.
const SocketPath = "/socket"

var (
	// ErrChannelClosed is returned for emissions after Close or after the
	// server drops the connection.
	ErrChannelClosed = errors.New("realtime channel closed")
	// ErrAckTimeout is returned when the server does not acknowledge an
	// emission in time.
	ErrAckTimeout = errors.New("acknowledgment timed out")
)

// envelope is the frame exchanged on the wire. Server pushes carry an event
// name and payload; client emissions that expect an acknowledgment also
// carry an id the server echoes back on the matching "ack" frame.
type envelope struct {
	Event string          `json:"event"`
	ID    int64           `json:"id,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Handler consumes one pushed event payload. Handlers run on the single
// read loop goroutine, so events are observed strictly in delivery order.
type Handler func(data json.RawMessage)

// Channel is the persistent connection to the backend. Reconnection is the
// caller's problem (reopen after an OnClose notification); the channel
// itself only delivers what arrives.
type Channel struct {
	conn *websocket.Conn

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handlers  map[string][]Handler
	onClose   func(error)

	pendingMu sync.Mutex
	pending   map[int64]chan json.RawMessage
	nextID    atomic.Int64

	closed   atomic.Bool
	done     chan struct{}
	doneErr  error
	doneOnce sync.Once
}

// Dial opens the connection, authenticating with the bearer token and
// announcing the device id. The read loop starts immediately; register
// handlers before events are expected.
func Dial(serverURL, token, deviceID string) (*Channel, error) {
	wsURL, err := socketURL(serverURL)
	if err != nil {
		return nil, err
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	if deviceID != "" {
		header.Set("X-Device-ID", deviceID)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial channel: %w (status %s)", err, resp.Status)
		}
		return nil, fmt.Errorf("dial channel: %w", err)
	}
	c := &Channel{
		conn:     conn,
		handlers: make(map[string][]Handler),
		pending:  make(map[int64]chan json.RawMessage),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// On registers a handler for a pushed event. Multiple handlers for one
// event run in registration order.
func (c *Channel) On(event string, h Handler) {
	c.handlerMu.Lock()
	c.handlers[event] = append(c.handlers[event], h)
	c.handlerMu.Unlock()
}

// OnClose registers a callback invoked once when the connection ends, with
// the read error (nil after a local Close). Registering after the channel
// has already ended fires the callback immediately.
func (c *Channel) OnClose(fn func(error)) {
	c.handlerMu.Lock()
	select {
	case <-c.done:
		c.handlerMu.Unlock()
		fn(c.doneErr)
		return
	default:
	}
	c.onClose = fn
	c.handlerMu.Unlock()
}

// Connected reports whether the channel can still emit.
func (c *Channel) Connected() bool {
	return !c.closed.Load()
}

// Emit sends a fire-and-forget event.
func (c *Channel) Emit(event string, payload any) error {
	return c.write(envelope{Event: event}, payload)
}

// EmitWithAck sends an event and waits for the server's acknowledgment
// payload, up to timeout.
func (c *Channel) EmitWithAck(event string, payload any, timeout time.Duration) (json.RawMessage, error) {
	id := c.nextID.Add(1)
	ch := make(chan json.RawMessage, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	if err := c.write(envelope{Event: event, ID: id}, payload); err != nil {
		return nil, err
	}
	select {
	case data := <-ch:
		return data, nil
	case <-time.After(timeout):
		return nil, ErrAckTimeout
	case <-c.done:
		return nil, ErrChannelClosed
	}
}

// Close tears the connection down and stops the read loop. Safe to call
// more than once.
func (c *Channel) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	c.writeMu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.writeMu.Unlock()
	return c.conn.Close()
}

func (c *Channel) write(env envelope, payload any) error {
	if c.closed.Load() {
		return ErrChannelClosed
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		env.Data = data
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.WriteJSON(env); err != nil {
		return fmt.Errorf("emit %s: %w", env.Event, err)
	}
	return nil
}

// readLoop is the only reader. Dispatching from one goroutine is what
// guarantees the no-reorder contract for event handlers.
func (c *Channel) readLoop() {
	var readErr error
	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if !c.closed.Load() {
				readErr = err
			}
			break
		}
		if env.Event == "ack" {
			c.resolveAck(env)
			continue
		}
		c.dispatch(env)
	}
	c.closed.Store(true)
	_ = c.conn.Close()

	// Record the terminal error before closing done so late OnClose
	// registrations observe it.
	c.handlerMu.Lock()
	c.doneErr = readErr
	onClose := c.onClose
	c.doneOnce.Do(func() { close(c.done) })
	c.handlerMu.Unlock()

	if readErr != nil {
		slog.Warn("realtime channel dropped", "err", readErr)
	}
	if onClose != nil {
		onClose(readErr)
	}
}

func (c *Channel) resolveAck(env envelope) {
	c.pendingMu.Lock()
	ch, ok := c.pending[env.ID]
	c.pendingMu.Unlock()
	if !ok {
		slog.Debug("ack for unknown emission", "id", env.ID)
		return
	}
	// The waiter's buffer holds exactly one payload. A repeated ack for the
	// same id must not block the read loop, so surplus payloads are dropped.
	select {
	case ch <- env.Data:
	default:
		slog.Debug("surplus ack dropped", "id", env.ID)
	}
}

func (c *Channel) dispatch(env envelope) {
	c.handlerMu.RLock()
	handlers := c.handlers[env.Event]
	c.handlerMu.RUnlock()
	if len(handlers) == 0 {
		slog.Debug("unhandled event", "event", env.Event)
		return
	}
	for _, h := range handlers {
		h(env.Data)
	}
}

func socketURL(serverURL string) (string, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + SocketPath
	return u.String(), nil
}
