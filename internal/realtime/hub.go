package realtime

import (
	"sync"

	"github.com/wms-platform/audit-service/pkg/logging"
	"github.com/wms-platform/audit-service/pkg/metrics"
)

// DefaultBuffer is the number of undelivered events kept per subscriber
const DefaultBuffer = 16

// Event is one message pushed to a subscriber
type Event struct {
	Name    string
	Payload any
}

type subscriber struct {
	events chan Event
}

// Hub routes events to the open streams of each recipient. A recipient may hold
// several streams, one per open browser tab.
type Hub struct {
	mu          sync.RWMutex
	subscribers map[string]map[*subscriber]struct{}
	closed      bool
	buffer      int
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewHub creates a Hub. m may be nil.
func NewHub(logger *logging.Logger, m *metrics.Metrics) *Hub {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Hub{
		subscribers: make(map[string]map[*subscriber]struct{}),
		buffer:      DefaultBuffer,
		logger:      logger.WithComponent("realtime"),
		metrics:     m,
	}
}

// Subscribe opens a stream for recipient. The returned func must be called to release it.
// The channel is closed on unsubscribe or when the hub shuts down.
func (h *Hub) Subscribe(recipient string) (<-chan Event, func()) {
	sub := &subscriber{events: make(chan Event, h.buffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.events)
		return sub.events, func() {}
	}
	if h.subscribers[recipient] == nil {
		h.subscribers[recipient] = make(map[*subscriber]struct{})
	}
	h.subscribers[recipient][sub] = struct{}{}
	h.mu.Unlock()
	h.gauge(1)

	var once sync.Once
	return sub.events, func() {
		once.Do(func() { h.unsubscribe(recipient, sub) })
	}
}

func (h *Hub) unsubscribe(recipient string, sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.subscribers[recipient]
	if !ok {
		return
	}
	if _, ok := subs[sub]; !ok {
		return
	}
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.subscribers, recipient)
	}
	close(sub.events)
	h.gauge(-1)
}

// Broadcast delivers an event to every stream of recipient. A stream whose buffer is
// full misses the event; the client catches up from the pending list.
func (h *Hub) Broadcast(recipient, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subscribers[recipient] {
		select {
		case sub.events <- Event{Name: event, Payload: payload}:
		default:
			h.logger.Warn("Dropped realtime event for slow subscriber", "recipient", recipient, "event", event)
		}
	}
}

// Subscribers returns the number of open streams for recipient
func (h *Hub) Subscribers(recipient string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers[recipient])
}

// Close ends every open stream. Later subscriptions are closed immediately.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for recipient, subs := range h.subscribers {
		for sub := range subs {
			close(sub.events)
			h.gauge(-1)
		}
		delete(h.subscribers, recipient)
	}
}

func (h *Hub) gauge(delta float64) {
	if h.metrics != nil {
		h.metrics.RealtimeSubscribers.Add(delta)
	}
}
