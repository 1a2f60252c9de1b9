package events

import (
	"context"
	"sync"
)

const subscriberBuffer = 64

type subscriber struct {
	ch     chan Change
	filter map[string]bool
}

func (s *subscriber) wants(collection string) bool {
	return len(s.filter) == 0 || s.filter[collection]
}

// Hub fans changes out to in-process subscribers. A subscriber that falls
// behind loses changes rather than stalling writers.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*subscriber]struct{})}
}

// Subscribe returns a channel of changes to the given collections (all when
// none are given). The channel is closed when ctx is done.
func (h *Hub) Subscribe(ctx context.Context, collections ...string) <-chan Change {
	sub := &subscriber{ch: make(chan Change, subscriberBuffer), filter: map[string]bool{}}
	for _, c := range collections {
		if c != "" {
			sub.filter[c] = true
		}
	}

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, sub)
		close(sub.ch)
		h.mu.Unlock()
	}()

	return sub.ch
}

// Notify delivers the change to every interested subscriber
func (h *Hub) Notify(_ context.Context, change Change) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs {
		if !sub.wants(change.Collection) {
			continue
		}
		select {
		case sub.ch <- change:
		default:
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
