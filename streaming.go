package hypercube

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventStreamConfig configures the invalidation event stream.
type EventStreamConfig struct {
	// BufferSize is the per-subscription channel buffer. Events are
	// dropped for a subscriber that falls this far behind.
	BufferSize int
	// PingInterval is how often clients are pinged.
	PingInterval time.Duration
	// WriteTimeout bounds WebSocket writes.
	WriteTimeout time.Duration
}

// DefaultEventStreamConfig returns default streaming configuration.
func DefaultEventStreamConfig() EventStreamConfig {
	return EventStreamConfig{
		BufferSize:   64,
		PingInterval: 30 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}

// EventSubscription is one live invalidation event feed.
type EventSubscription struct {
	ID     string
	ch     chan InvalidationEvent
	done   chan struct{}
	closed bool
	mu     sync.Mutex
}

// C returns the channel events are delivered on.
func (s *EventSubscription) C() <-chan InvalidationEvent { return s.ch }

// Close ends the subscription.
func (s *EventSubscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.done)
}

// EventStreamHub fans engine invalidation events out to WebSocket clients
// and in-process subscribers.
type EventStreamHub struct {
	config      EventStreamConfig
	mu          sync.RWMutex
	subs        map[string]*EventSubscription
	nextID      uint64
	unsubscribe func()
}

// NewEventStreamHub creates a hub wired to an engine's invalidation events.
func NewEventStreamHub(e *Engine, cfg EventStreamConfig) *EventStreamHub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 64
	}
	h := &EventStreamHub{
		config: cfg,
		subs:   make(map[string]*EventSubscription),
	}
	h.unsubscribe = e.OnInvalidation(h.broadcast)
	return h
}

// Close detaches the hub from the engine and ends all subscriptions.
func (h *EventStreamHub) Close() {
	if h.unsubscribe != nil {
		h.unsubscribe()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		sub.Close()
		delete(h.subs, id)
	}
}

// Subscribe creates an in-process subscription.
func (h *EventStreamHub) Subscribe() *EventSubscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	sub := &EventSubscription{
		ID:   "sub-" + strconv.FormatUint(h.nextID, 10),
		ch:   make(chan InvalidationEvent, h.config.BufferSize),
		done: make(chan struct{}),
	}
	h.subs[sub.ID] = sub
	return sub
}

// Unsubscribe removes a subscription from the hub.
func (h *EventStreamHub) Unsubscribe(sub *EventSubscription) {
	h.mu.Lock()
	delete(h.subs, sub.ID)
	h.mu.Unlock()
	sub.Close()
}

func (h *EventStreamHub) broadcast(ev InvalidationEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.subs {
		select {
		case sub.ch <- ev:
		default:
			// Slow subscriber: drop rather than block the publisher.
		}
	}
}

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// HandleWebSocket upgrades the request and streams invalidation events as
// JSON messages until the client disconnects.
func (h *EventStreamHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	sub := h.Subscribe()
	defer h.Unsubscribe(sub)

	ticker := time.NewTicker(h.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sub.done:
			return
		case ev := <-sub.ch:
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// RegisterStreamHandlers mounts the WebSocket event stream on a mux.
func (h *EventStreamHub) RegisterStreamHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/events/ws", h.HandleWebSocket)
}
