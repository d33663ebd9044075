// Package tierank assembles an embeddable leaderboard service.
package tierank

import (
	mem "tierank/adapters/memory"
	"tierank/engine"
	"tierank/leaderboard"
	"tierank/realtime"
)

// Option configures the service builder.
type Option func(*config)

type config struct {
	store leaderboard.Store
	opts  []engine.Option
}

// WithStore sets the ordered store.
func WithStore(s leaderboard.Store) Option { return func(c *config) { c.store = s } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m engine.DispatchMode) Option {
	return func(c *config) { c.opts = append(c.opts, engine.WithDispatchMode(m)) }
}

// WithLeaderboardConfig sets the settings every board is opened with.
func WithLeaderboardConfig(lc leaderboard.Config) Option {
	return func(c *config) { c.opts = append(c.opts, engine.WithLeaderboardConfig(lc)) }
}

// WithRealtime forwards every event to the hub.
func WithRealtime(h *realtime.Hub) Option {
	return func(c *config) { c.opts = append(c.opts, engine.WithEventSink(h.Broadcast)) }
}

// WithEngineOptions passes options straight to engine.NewService.
func WithEngineOptions(opts ...engine.Option) Option {
	return func(c *config) { c.opts = append(c.opts, opts...) }
}

// New builds a configured Service. If not provided, defaults are used:
//   - store: in-memory
//   - dispatch: async
//   - boards: descending, 25 per page
func New(opts ...Option) (*engine.Service, error) {
	cfg := &config{opts: []engine.Option{engine.WithDispatchMode(engine.DispatchAsync)}}
	for _, o := range opts {
		o(cfg)
	}
	if cfg.store == nil {
		cfg.store = mem.New()
	}
	return engine.NewService(cfg.store, cfg.opts...)
}
