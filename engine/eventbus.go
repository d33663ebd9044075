package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"tierank/core"
)

type DispatchMode int

const (
	DispatchSync DispatchMode = iota
	DispatchAsync
)

// ParseDispatchMode accepts "sync" or "async".
func ParseDispatchMode(s string) (DispatchMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "sync":
		return DispatchSync, nil
	case "async":
		return DispatchAsync, nil
	default:
		return DispatchSync, fmt.Errorf("unknown dispatch mode %q", s)
	}
}

func (m DispatchMode) String() string {
	if m == DispatchAsync {
		return "async"
	}
	return "sync"
}

const (
	defaultQueueSize = 2048
	defaultWorkers   = 4
)

type Handler func(context.Context, core.Event)

type subscription struct {
	id  int64
	typ core.EventType
	fn  Handler
}

// EventBus provides thread-safe pub/sub with sync and async dispatch.
// Handlers subscribed to the empty type receive every event.
type EventBus struct {
	mode    DispatchMode
	mu      sync.RWMutex
	subs    map[core.EventType]map[int64]subscription
	nextID  int64
	queue   chan core.Event
	workers sync.WaitGroup
	closed  atomic.Bool
	once    sync.Once
	dropped atomic.Uint64
}

func NewEventBus(mode DispatchMode) *EventBus {
	eb := &EventBus{
		mode: mode,
		subs: make(map[core.EventType]map[int64]subscription),
	}
	if mode == DispatchAsync {
		eb.queue = make(chan core.Event, defaultQueueSize)
		eb.startWorkers(defaultWorkers)
	}
	return eb
}

func (e *EventBus) startWorkers(n int) {
	for i := 0; i < n; i++ {
		e.workers.Add(1)
		go func() {
			defer e.workers.Done()
			for ev := range e.queue {
				e.dispatch(context.Background(), ev)
			}
		}()
	}
}

// Close stops accepting events and, in async mode, waits for queued ones to be delivered.
func (e *EventBus) Close() {
	e.once.Do(func() {
		e.mu.Lock()
		e.closed.Store(true)
		if e.queue != nil {
			close(e.queue)
		}
		e.mu.Unlock()
		e.workers.Wait()
	})
}

// Dropped returns how many async events were discarded on a full queue.
func (e *EventBus) Dropped() uint64 { return e.dropped.Load() }

// Subscribe registers a handler for an event type. Returns unsubscribe func.
func (e *EventBus) Subscribe(typ core.EventType, handler Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	if e.subs[typ] == nil {
		e.subs[typ] = make(map[int64]subscription)
	}
	e.subs[typ][id] = subscription{id: id, typ: typ, fn: handler}
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if m := e.subs[typ]; m != nil {
			delete(m, id)
		}
	}
}

// SubscribeAll registers a handler for every event type.
func (e *EventBus) SubscribeAll(handler Handler) func() {
	return e.Subscribe("", handler)
}

// Publish sends an event to subscribers. After Close it is a no-op.
func (e *EventBus) Publish(ctx context.Context, ev core.Event) {
	if e.mode == DispatchAsync {
		e.mu.RLock()
		defer e.mu.RUnlock()
		if e.closed.Load() {
			return
		}
		select {
		case e.queue <- ev:
		default:
			e.dropped.Add(1)
		}
		return
	}
	if e.closed.Load() {
		return
	}
	e.dispatch(ctx, ev)
}

func (e *EventBus) dispatch(ctx context.Context, ev core.Event) {
	e.mu.RLock()
	// copy to avoid holding lock during callbacks
	handlers := make([]Handler, 0, len(e.subs[ev.Type])+len(e.subs[""]))
	for _, s := range e.subs[ev.Type] {
		handlers = append(handlers, s.fn)
	}
	for _, s := range e.subs[""] {
		handlers = append(handlers, s.fn)
	}
	e.mu.RUnlock()
	for _, h := range handlers {
		h(ctx, ev)
	}
}
