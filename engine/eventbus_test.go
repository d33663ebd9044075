package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tierank/core"
)

func TestEventBusSync(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	count := 0
	bus.Subscribe(core.EventMemberRanked, func(ctx context.Context, e core.Event) { count++ })
	bus.Publish(context.Background(), core.NewMemberRanked("b", "m", 1, 1))
	bus.Publish(context.Background(), core.NewMemberRemoved("b", "m"))
	assert.Equal(t, 1, count)
}

func TestEventBusAsync(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	defer bus.Close()
	ch := make(chan struct{})
	bus.Subscribe(core.EventMemberRanked, func(ctx context.Context, e core.Event) { close(ch) })
	bus.Publish(context.Background(), core.NewMemberRanked("b", "m", 1, 1))
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("timeout")
	}
}

func TestEventBusSubscribeAllAndUnsubscribe(t *testing.T) {
	bus := NewEventBus(DispatchSync)
	var seen []core.EventType
	unsubscribe := bus.SubscribeAll(func(ctx context.Context, e core.Event) { seen = append(seen, e.Type) })

	bus.Publish(context.Background(), core.NewMemberRanked("b", "m", 1, 1))
	bus.Publish(context.Background(), core.NewLeaderboardDeleted("b"))
	unsubscribe()
	bus.Publish(context.Background(), core.NewMemberRemoved("b", "m"))

	assert.Equal(t, []core.EventType{core.EventMemberRanked, core.EventLeaderboardDeleted}, seen)
}

func TestEventBusCloseDrainsQueue(t *testing.T) {
	bus := NewEventBus(DispatchAsync)
	var delivered atomic.Int64
	bus.SubscribeAll(func(ctx context.Context, e core.Event) { delivered.Add(1) })

	for i := 0; i < 100; i++ {
		bus.Publish(context.Background(), core.NewMemberRanked("b", "m", float64(i), 1))
	}
	bus.Close()
	assert.Equal(t, int64(100)-int64(bus.Dropped()), delivered.Load())

	// publishing after close is ignored
	bus.Publish(context.Background(), core.NewMemberRemoved("b", "m"))
	bus.Close()
}

func TestParseDispatchMode(t *testing.T) {
	m, err := ParseDispatchMode("async")
	require.NoError(t, err)
	assert.Equal(t, DispatchAsync, m)
	assert.Equal(t, "async", m.String())

	m, err = ParseDispatchMode("")
	require.NoError(t, err)
	assert.Equal(t, DispatchSync, m)

	_, err = ParseDispatchMode("later")
	assert.Error(t, err)
}
