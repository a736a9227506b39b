package sim

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"uavnet-sim/internal/telemetry"
)

// Hub message types.
const (
	MessageEvent   = "event"
	MessageMetrics = "metrics"
)

// Message is what live subscribers receive.
type Message struct {
	Type    string                    `json:"type"`
	Event   *telemetry.PacketEventRow `json:"event,omitempty"`
	Metrics *telemetry.MetricsRow     `json:"metrics,omitempty"`
}

// EventHub fans packet events and metrics out to live subscribers. Slow
// subscribers lose messages instead of stalling the simulation.
type EventHub struct {
	mu          sync.RWMutex
	subscribers map[chan Message]struct{}
	buffer      int
	log         *slog.Logger
	dropped     atomic.Uint64
}

// NewEventHub creates a hub whose subscriber channels hold buffer messages.
func NewEventHub(buffer int, log *slog.Logger) *EventHub {
	if buffer <= 0 {
		buffer = 100
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &EventHub{
		subscribers: make(map[chan Message]struct{}),
		buffer:      buffer,
		log:         log.With("component", "EventHub"),
	}
}

// Publish sends m to all subscribers without blocking.
func (h *EventHub) Publish(m Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subscribers {
		select {
		case sub <- m:
		default:
			h.dropped.Add(1)
			h.log.Debug("dropping message: subscriber channel is full", "type", m.Type)
		}
	}
}

// Subscribe returns a new channel that will receive published messages.
func (h *EventHub) Subscribe() chan Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	ch := make(chan Message, h.buffer)
	h.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes and closes ch.
func (h *EventHub) Unsubscribe(ch chan Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subscribers[ch]; ok {
		delete(h.subscribers, ch)
		close(ch)
	}
}

// Subscribers returns the number of live subscribers.
func (h *EventHub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Dropped returns how many messages were discarded for full subscribers.
func (h *EventHub) Dropped() uint64 { return h.dropped.Load() }

// WriteEvent publishes a packet event.
func (h *EventHub) WriteEvent(row telemetry.PacketEventRow) error {
	h.Publish(Message{Type: MessageEvent, Event: &row})
	return nil
}

// WriteMetrics publishes a metrics sample.
func (h *EventHub) WriteMetrics(row telemetry.MetricsRow) error {
	h.Publish(Message{Type: MessageMetrics, Metrics: &row})
	return nil
}
