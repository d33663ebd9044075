package realtime

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"tierank/core"
)

type subscriber struct {
	ch     chan core.Event
	boards map[string]struct{} // empty means every board
}

func (s subscriber) wants(board string) bool {
	if len(s.boards) == 0 {
		return true
	}
	_, ok := s.boards[board]
	return ok
}

// Hub fans leaderboard events out to buffered channels.
type Hub struct {
	mu      sync.RWMutex
	subs    map[int]subscriber
	next    int
	dropped atomic.Uint64
}

func NewHub() *Hub { return &Hub{subs: map[int]subscriber{}} }

// Subscribe returns a channel receiving events for the given boards, or for
// every board when none are given.
func (h *Hub) Subscribe(buffer int, boards ...string) (int, <-chan core.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	id := h.next
	s := subscriber{ch: make(chan core.Event, buffer)}
	if len(boards) > 0 {
		s.boards = make(map[string]struct{}, len(boards))
		for _, b := range boards {
			s.boards[b] = struct{}{}
		}
	}
	h.subs[id] = s
	return id, s.ch
}

func (h *Hub) Unsubscribe(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if s, ok := h.subs[id]; ok {
		delete(h.subs, id)
		close(s.ch)
	}
}

// Broadcast delivers ev to interested subscribers. A full subscriber misses the event.
func (h *Hub) Broadcast(_ context.Context, ev core.Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs {
		if !s.wants(ev.Leaderboard) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			h.dropped.Add(1)
		}
	}
}

// Subscribers returns the number of open subscriptions.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped on full subscribers.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// MarshalJSON is a helper to convert events to JSON bytes for WebSocket/SSE.
func MarshalJSON(ev core.Event) []byte {
	b, _ := json.Marshal(ev)
	return b
}
