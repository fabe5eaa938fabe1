package app

import (
	"log/slog"
	"sync"
)

type SSEEvent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type SSEHub struct {
	log *slog.Logger

	mu     sync.RWMutex
	subs   map[string]map[chan SSEEvent]struct{} // topic -> set(ch)
	closed bool
}

func NewSSEHub(logger *slog.Logger) *SSEHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &SSEHub{
		log:  logger,
		subs: map[string]map[chan SSEEvent]struct{}{},
	}
}

// Subscribe returns a channel receiving events for topics and a func that
// unsubscribes and closes it. On a closed hub the channel is already closed.
func (h *SSEHub) Subscribe(topics []string, buf int) (<-chan SSEEvent, func()) {
	if buf <= 0 {
		buf = 16
	}
	ch := make(chan SSEEvent, buf)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	for _, t := range topics {
		if h.subs[t] == nil {
			h.subs[t] = map[chan SSEEvent]struct{}{}
		}
		h.subs[t][ch] = struct{}{}
	}
	h.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.closed {
				return
			}
			for _, t := range topics {
				if set, ok := h.subs[t]; ok {
					delete(set, ch)
					if len(set) == 0 {
						delete(h.subs, t)
					}
				}
			}
			close(ch)
		})
	}
	return ch, cancel
}

func (h *SSEHub) Broadcast(topic string, ev SSEEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs[topic] {
		select {
		case ch <- ev:
		default:
			h.log.Debug("sse subscriber slow, event dropped", "topic", topic, "type", ev.Type)
		}
	}
}

// Subscribers reports how many channels listen on topic.
func (h *SSEHub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// Close ends every subscription.
func (h *SSEHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	seen := map[chan SSEEvent]struct{}{}
	for _, set := range h.subs {
		for ch := range set {
			if _, ok := seen[ch]; !ok {
				seen[ch] = struct{}{}
				close(ch)
			}
		}
	}
	h.subs = map[string]map[chan SSEEvent]struct{}{}
}

/* ---- topic helpers ---- */

func TopicClient(id string) string { return "client:" + id }
func TopicInventory() string        { return "inventory:global" }

func (h *SSEHub) BroadcastClient(id string, ev SSEEvent) { h.Broadcast(TopicClient(id), ev) }
func (h *SSEHub) BroadcastInventory(ev SSEEvent)         { h.Broadcast(TopicInventory(), ev) }
