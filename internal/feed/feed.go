// Package feed maintains the upstream price-stream connection. It owns
// reconnect and backoff; everything downstream just sees raw market_data
// payloads on a channel and tolerates arbitrary gaps between them.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

type Feed interface {
	Run(ctx context.Context, onStatus func(connected bool))
	Messages() <-chan json.RawMessage
	Errors() <-chan error
	Connected() bool
	Close()
}

// WSFeed implements Feed against the provider's websocket endpoint, with
// exponential-backoff reconnect. A full resend of all symbols after a
// reconnect is delivered like any other message.
type WSFeed struct {
	url    string
	origin string
	log    *slog.Logger

	mu        sync.RWMutex
	connected bool

	msgCh  chan json.RawMessage
	errCh  chan error
	wsConn *websocket.Conn

	ctx    context.Context
	cancel context.CancelFunc
}

func NewWSFeed(url, origin string, logger *slog.Logger) *WSFeed {
	return &WSFeed{
		url:    url,
		origin: origin,
		log:    logger,
		msgCh:  make(chan json.RawMessage, 1024),
		errCh:  make(chan error, 16),
	}
}

func (f *WSFeed) Messages() <-chan json.RawMessage { return f.msgCh }
func (f *WSFeed) Errors() <-chan error             { return f.errCh }

func (f *WSFeed) Connected() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.connected
}

func (f *WSFeed) setConnected(v bool) {
	f.mu.Lock()
	f.connected = v
	f.mu.Unlock()
}

func (f *WSFeed) Close() {
	if f.cancel != nil {
		f.cancel()
	}
	close(f.errCh)
	close(f.msgCh)
}

func (f *WSFeed) Run(ctx context.Context, onStatus func(connected bool)) {
	if f.cancel != nil {
		return
	}
	f.ctx, f.cancel = context.WithCancel(ctx)

	backoff := time.Second
	for {
		select {
		case <-f.ctx.Done():
			return
		default:
		}

		ws, err := f.dial()
		if err != nil {
			onStatus(false)
			f.setConnected(false)
			f.emitErr(fmt.Errorf("feed dial: %w", err))
			time.Sleep(backoff)
			backoff = min(backoff*2, 30*time.Second)
			continue
		}
		f.wsConn = ws
		f.setConnected(true)
		onStatus(true)
		backoff = time.Second

		// Ask for a full snapshot so the session starts from complete state.
		_ = ws.WriteMessage(websocket.TextMessage, []byte(`{"event":"get_all_prices"}`))

		if err := f.readLoop(); err != nil {
			onStatus(false)
			f.setConnected(false)
			f.emitErr(err)
			// loop reconnects
		}
	}
}

func (f *WSFeed) dial() (*websocket.Conn, error) {
	d := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	hdr := http.Header{}
	if f.origin != "" {
		hdr.Set("Origin", f.origin)
	}
	ws, _, err := d.DialContext(f.ctx, f.url, hdr)
	return ws, err
}

// inbound is the provider's outer frame. Some builds wrap the payload in an
// event envelope, others send the payload bare; both are forwarded.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (f *WSFeed) readLoop() error {
	defer func() {
		if f.wsConn != nil {
			_ = f.wsConn.Close()
		}
	}()

	f.wsConn.SetReadLimit(1 << 20)
	_ = f.wsConn.SetReadDeadline(time.Now().Add(60 * time.Second))
	f.wsConn.SetPongHandler(func(string) error {
		_ = f.wsConn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-f.ctx.Done():
			return nil
		default:
		}

		// Keepalive ping
		select {
		case <-ticker.C:
			_ = f.wsConn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second))
		default:
		}

		_, data, err := f.wsConn.ReadMessage()
		if err != nil {
			return fmt.Errorf("feed read: %w", err)
		}

		payload := data
		var msg inbound
		if err := json.Unmarshal(data, &msg); err == nil && msg.Event != "" {
			if msg.Event != "market_data" {
				continue // ack/heartbeat
			}
			payload = msg.Data
		}
		if len(payload) == 0 {
			continue
		}

		f.msgCh <- json.RawMessage(payload)
	}
}

func (f *WSFeed) emitErr(err error) {
	select {
	case f.errCh <- err:
	default:
		// drop if buffer full
	}
}

// ---------- Test/mock feed (handy for integration tests & demos) ----------

type MockFeed struct {
	messages  chan json.RawMessage
	errors    chan error
	connected bool
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewMockFeed() *MockFeed {
	return &MockFeed{
		messages:  make(chan json.RawMessage, 10),
		errors:    make(chan error, 10),
		connected: true,
	}
}

func (m *MockFeed) Run(ctx context.Context, onStatus func(connected bool)) {
	m.ctx, m.cancel = context.WithCancel(ctx)
	go func() {
		onStatus(m.connected)
		<-m.ctx.Done()
	}()
}

func (m *MockFeed) Messages() <-chan json.RawMessage { return m.messages }
func (m *MockFeed) Errors() <-chan error             { return m.errors }
func (m *MockFeed) Connected() bool                  { return m.connected }

func (m *MockFeed) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	close(m.messages)
	close(m.errors)
}

// Helpers for tests
func (m *MockFeed) SendMessage(raw string) { m.messages <- json.RawMessage(raw) }
func (m *MockFeed) SendError(e error)      { m.errors <- e }
func (m *MockFeed) SetConnected(c bool)    { m.connected = c }
