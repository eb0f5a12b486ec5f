// Package events fans out run lifecycle notifications to SSE subscribers.
package events

import (
	"sync"
	"time"
)

// Hub distributes Events to any number of subscribers. Publishing never
// blocks: a subscriber whose buffer is full misses the event rather than
// stalling the run worker.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{clients: make(map[chan Event]struct{})}
}

func (h *Hub) Subscribe() chan Event {
	ch := make(chan Event, 10)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	delete(h.clients, ch)
	h.mu.Unlock()
	close(ch)
}

// Publish stamps the event time (unless the caller already did) and fans the
// event out to every live subscriber.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- e:
		default:
			// subscriber too slow, skip it
		}
	}
}
