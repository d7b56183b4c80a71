// Package watch broadcasts in-process change notifications to view streams.
package watch

import (
	"sync"
	"time"
)

// Change describes a committed mutation.
type Change struct {
	Entity     string    `json:"entity"`
	Kind       string    `json:"kind"`
	ID         int64     `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Hub fans out changes to subscribers. Each subscriber channel holds at most
// one pending change; later changes are dropped while it is full, so a slow
// consumer wakes once and re-reads current state.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]chan Change
	nextID uint64
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[uint64]chan Change)}
}

// Subscribe registers a subscriber. The returned cancel func is idempotent
// and closes the channel.
func (h *Hub) Subscribe() (<-chan Change, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan Change, 1)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	id := h.nextID
	h.nextID++
	h.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if c, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(c)
			}
		})
	}
}

// Publish notifies every subscriber without blocking.
func (h *Hub) Publish(c Change) {
	if c.OccurredAt.IsZero() {
		c.OccurredAt = time.Now().UTC()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel. Later subscriptions get a closed channel.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
}
