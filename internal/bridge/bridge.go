package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/smartclass-id/classroom_core_v1/internal/apperrors"
)

const writeWait = 10 * time.Second

// Handler receives every message published on a subscribed topic. The payload
// is the raw JSON the broker delivered; parsing is the subscriber's problem.
type Handler func(topic string, payload []byte)

// Unsubscribe removes exactly the subscription that returned it. Calling it
// more than once, or after Disconnect, is safe.
type Unsubscribe func()

// State is reported to status listeners on every connect/disconnect
// transition.
type State string

const (
	StateConnected    State = "connected"
	StateDisconnected State = "disconnected"
)

// envelope is the frame format spoken with the broker: topic plus opaque
// payload.
type envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Bridge is the single ingress/egress for device and sensor traffic. It owns
// one persistent websocket to the broker and fans incoming frames out to all
// local subscribers of the frame's topic. It does not auto-reconnect; on
// transport failure it flips to disconnected, tells its status listeners, and
// waits for the caller to Connect again.
type Bridge struct {
	mu         sync.Mutex
	conn       *websocket.Conn
	connected  bool
	nextID     int
	subs       map[string]map[int]Handler
	statusSubs map[int]func(State)
}

func New() *Bridge {
	return &Bridge{
		subs:       make(map[string]map[int]Handler),
		statusSubs: make(map[int]func(State)),
	}
}

// Connect dials the broker endpoint and starts the read loop. Subscriptions
// survive a transport failure, so a re-Connect resumes delivery to them;
// only an explicit Disconnect clears them.
func (b *Bridge) Connect(ctx context.Context, endpoint string) error {
	b.mu.Lock()
	if b.connected {
		b.mu.Unlock()
		return fmt.Errorf("already connected: %w", apperrors.ErrConflict)
	}
	b.mu.Unlock()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", endpoint, apperrors.ErrConnection)
	}

	b.mu.Lock()
	b.conn = conn
	b.connected = true
	listeners := b.statusListeners()
	b.mu.Unlock()

	for _, fn := range listeners {
		fn(StateConnected)
	}

	go b.readLoop(conn)
	return nil
}

// Subscribe registers handler for every future message on topic. Multiple
// subscribers per topic each receive every message. Removal is by the
// returned handle, never by handler value, so duplicate handlers are fine.
func (b *Bridge) Subscribe(topic string, handler Handler) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[int]Handler)
	}
	b.subs[topic][id] = handler
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if hs, ok := b.subs[topic]; ok {
			delete(hs, id)
			if len(hs) == 0 {
				delete(b.subs, topic)
			}
		}
	}
}

// SubscribeStatus registers a listener for connect/disconnect transitions.
func (b *Bridge) SubscribeStatus(fn func(State)) Unsubscribe {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.statusSubs[id] = fn
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.statusSubs, id)
	}
}

// Publish sends payload on topic. While disconnected it fails immediately
// with ErrConnection instead of queueing; nothing is buffered.
func (b *Bridge) Publish(topic string, payload interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload for %s: %w", topic, apperrors.ErrValidation)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.connected || b.conn == nil {
		return fmt.Errorf("publish %s: %w", topic, apperrors.ErrConnection)
	}
	b.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := b.conn.WriteJSON(envelope{Topic: topic, Payload: raw}); err != nil {
		b.dropConnLocked()
		return fmt.Errorf("publish %s: %w", topic, apperrors.ErrConnection)
	}
	return nil
}

// Connected reports whether the bridge currently holds a live connection.
func (b *Bridge) Connected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

// Disconnect closes the connection and drops every subscription. Idempotent.
func (b *Bridge) Disconnect() {
	b.mu.Lock()
	wasConnected := b.connected
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.connected = false
	b.subs = make(map[string]map[int]Handler)
	listeners := b.statusListeners()
	b.statusSubs = make(map[int]func(State))
	b.mu.Unlock()

	if wasConnected {
		for _, fn := range listeners {
			fn(StateDisconnected)
		}
	}
}

func (b *Bridge) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			b.mu.Lock()
			// A stale loop from a previous connection must not clobber a
			// newer one.
			if b.conn != conn {
				b.mu.Unlock()
				return
			}
			b.dropConnLocked()
			listeners := b.statusListeners()
			b.mu.Unlock()
			for _, fn := range listeners {
				fn(StateDisconnected)
			}
			return
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil || env.Topic == "" {
			log.Printf("bridge: dropping malformed frame: %v", err)
			continue
		}
		b.dispatch(env.Topic, env.Payload)
	}
}

// dispatch delivers one frame to every current subscriber of its topic,
// synchronously, so each subscriber sees messages in arrival order.
func (b *Bridge) dispatch(topic string, payload []byte) {
	b.mu.Lock()
	handlers := make([]Handler, 0, len(b.subs[topic]))
	for _, h := range b.subs[topic] {
		handlers = append(handlers, h)
	}
	b.mu.Unlock()

	for _, h := range handlers {
		h(topic, payload)
	}
}

func (b *Bridge) dropConnLocked() {
	if b.conn != nil {
		b.conn.Close()
		b.conn = nil
	}
	b.connected = false
}

func (b *Bridge) statusListeners() []func(State) {
	out := make([]func(State), 0, len(b.statusSubs))
	for _, fn := range b.statusSubs {
		out = append(out, fn)
	}
	return out
}
