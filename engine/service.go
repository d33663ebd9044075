package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tierank/core"
	"tierank/leaderboard"
)

// Service wires storage, the event bus and per-name leaderboards into one API.
type Service struct {
	store  leaderboard.Store
	bus    *EventBus
	cfg    leaderboard.Config
	mode   DispatchMode
	logger *slog.Logger
	locks  *keyedMutex
	sinks  []Handler
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used for mutations and store failures.
func WithLogger(l *slog.Logger) Option { return func(s *Service) { s.logger = l } }

// WithLeaderboardConfig sets the settings every leaderboard is opened with.
func WithLeaderboardConfig(cfg leaderboard.Config) Option { return func(s *Service) { s.cfg = cfg } }

// WithDispatchMode selects sync or async event dispatch.
func WithDispatchMode(m DispatchMode) Option { return func(s *Service) { s.mode = m } }

// WithSerializedWrites makes writers on the same leaderboard wait for each other.
// It only coordinates writers sharing this Service.
func WithSerializedWrites() Option { return func(s *Service) { s.locks = newKeyedMutex() } }

// WithEventSink receives every published event.
func WithEventSink(fn func(context.Context, core.Event)) Option {
	return func(s *Service) { s.sinks = append(s.sinks, fn) }
}

// NewService builds a Service over store. Dispatch defaults to sync.
func NewService(store leaderboard.Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("engine: store is required")
	}
	s := &Service{
		store:  store,
		cfg:    leaderboard.DefaultConfig(),
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(s)
	}
	s.cfg = s.cfg.Normalize()
	if err := s.cfg.Validate(); err != nil {
		return nil, err
	}
	s.bus = NewEventBus(s.mode)
	for _, sink := range s.sinks {
		s.bus.SubscribeAll(sink)
	}
	return s, nil
}

// Board returns a handle for name. Handles hold no state beyond the store,
// so one is built per call and nothing is retained per name.
func (s *Service) Board(name string) (*leaderboard.TieRanking, error) {
	return leaderboard.New(name, s.store, s.cfg)
}

// Subscribe convenience method.
func (s *Service) Subscribe(typ core.EventType, handler func(context.Context, core.Event)) func() {
	return s.bus.Subscribe(typ, handler)
}

func (s *Service) Publish(ctx context.Context, ev core.Event) {
	s.bus.Publish(ctx, ev)
}

// Health pings the store when it supports it.
func (s *Service) Health(ctx context.Context) error {
	if p, ok := s.store.(leaderboard.Pinger); ok {
		return p.Ping(ctx)
	}
	return nil
}

func (s *Service) Close() { s.bus.Close() }

// write runs fn against name's board, holding the board's lock if writes are serialized.
func (s *Service) write(ctx context.Context, op, name string, fn func(*leaderboard.TieRanking) error) error {
	lb, err := s.Board(name)
	if err != nil {
		return err
	}
	if s.locks != nil {
		unlock := s.locks.Lock(name)
		defer unlock()
	}
	if err := fn(lb); err != nil {
		s.logger.WarnContext(ctx, "leaderboard write failed", "op", op, "board", name, "error", err)
		return err
	}
	return nil
}

// RankMember sets member's score and returns its new ranked record.
func (s *Service) RankMember(ctx context.Context, name, member string, score float64) (core.RankedMember, error) {
	return s.rank(ctx, name, member, score, nil)
}

// RankMemberWithData sets member's score and data and returns its new ranked record.
func (s *Service) RankMemberWithData(ctx context.Context, name, member string, score float64, data string) (core.RankedMember, error) {
	return s.rank(ctx, name, member, score, &data)
}

func (s *Service) rank(ctx context.Context, name, member string, score float64, data *string) (core.RankedMember, error) {
	var rec core.RankedMember
	err := s.write(ctx, "rank_member", name, func(lb *leaderboard.TieRanking) error {
		var err error
		if data != nil {
			err = lb.RankMemberWithData(ctx, member, score, *data)
		} else {
			err = lb.RankMember(ctx, member, score)
		}
		if err != nil {
			return err
		}
		rec, err = s.recordAfterWrite(ctx, lb, member)
		return err
	})
	if err != nil {
		return core.RankedMember{}, err
	}
	s.logger.DebugContext(ctx, "member ranked", "board", name, "member", member, "score", score, "rank", rec.Rank)
	s.bus.Publish(ctx, core.NewMemberRanked(name, member, rec.Score, rec.Rank))
	return rec, nil
}

// RankMemberIf ranks member only when cond allows it. It returns the member's
// record either way, and whether the write happened.
func (s *Service) RankMemberIf(ctx context.Context, name string, cond core.Condition, member string, score float64, data string) (core.RankedMember, bool, error) {
	var (
		rec    core.RankedMember
		ranked bool
	)
	err := s.write(ctx, "rank_member_if", name, func(lb *leaderboard.TieRanking) error {
		var err error
		if ranked, err = lb.RankMemberIf(ctx, cond, member, score, data); err != nil {
			return err
		}
		rec, _, err = lb.ScoreAndRankFor(ctx, member, leaderboard.WithMemberData())
		return err
	})
	if err != nil {
		return core.RankedMember{}, false, err
	}
	if ranked {
		s.logger.DebugContext(ctx, "member ranked", "board", name, "member", member, "score", score, "rank", rec.Rank)
		s.bus.Publish(ctx, core.NewMemberRanked(name, member, rec.Score, rec.Rank))
	}
	return rec, ranked, nil
}

// ChangeScoreFor adds delta to member's score and returns the new ranked record.
func (s *Service) ChangeScoreFor(ctx context.Context, name, member string, delta float64) (core.RankedMember, error) {
	var rec core.RankedMember
	err := s.write(ctx, "change_score", name, func(lb *leaderboard.TieRanking) error {
		if _, err := lb.ChangeScoreFor(ctx, member, delta); err != nil {
			return err
		}
		var err error
		rec, err = s.recordAfterWrite(ctx, lb, member)
		return err
	})
	if err != nil {
		return core.RankedMember{}, err
	}
	s.logger.DebugContext(ctx, "member score changed", "board", name, "member", member, "delta", delta, "score", rec.Score)
	s.bus.Publish(ctx, core.NewMemberRanked(name, member, rec.Score, rec.Rank))
	return rec, nil
}

func (s *Service) recordAfterWrite(ctx context.Context, lb *leaderboard.TieRanking, member string) (core.RankedMember, error) {
	rec, ok, err := lb.ScoreAndRankFor(ctx, member, leaderboard.WithMemberData())
	if err != nil {
		return core.RankedMember{}, err
	}
	if !ok {
		// removed by a writer outside this service between the two calls
		return core.RankedMember{Member: member}, nil
	}
	return rec, nil
}

// RemoveMember removes member from name. Removing an absent member publishes nothing.
func (s *Service) RemoveMember(ctx context.Context, name, member string) error {
	var existed bool
	err := s.write(ctx, "remove_member", name, func(lb *leaderboard.TieRanking) error {
		var err error
		if existed, err = lb.CheckMember(ctx, member); err != nil || !existed {
			return err
		}
		return lb.RemoveMember(ctx, member)
	})
	if err != nil || !existed {
		return err
	}
	s.logger.DebugContext(ctx, "member removed", "board", name, "member", member)
	s.bus.Publish(ctx, core.NewMemberRemoved(name, member))
	return nil
}

// RemoveMembersInScoreRange removes every member of name with min <= score <= max.
func (s *Service) RemoveMembersInScoreRange(ctx context.Context, name string, min, max float64) error {
	err := s.write(ctx, "remove_score_range", name, func(lb *leaderboard.TieRanking) error {
		return lb.RemoveMembersInScoreRange(ctx, min, max)
	})
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "score range removed", "board", name, "min", min, "max", max)
	s.bus.Publish(ctx, core.NewScoreRangeRemoved(name, min, max))
	return nil
}

// UpdateMemberData replaces member's data on name.
func (s *Service) UpdateMemberData(ctx context.Context, name, member, data string) error {
	return s.write(ctx, "update_member_data", name, func(lb *leaderboard.TieRanking) error {
		return lb.UpdateMemberData(ctx, member, data)
	})
}

// DeleteLeaderboard removes name with its tie board and member data.
func (s *Service) DeleteLeaderboard(ctx context.Context, name string) error {
	err := s.write(ctx, "delete_leaderboard", name, func(lb *leaderboard.TieRanking) error {
		return lb.Delete(ctx)
	})
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "leaderboard deleted", "board", name)
	s.bus.Publish(ctx, core.NewLeaderboardDeleted(name))
	return nil
}

// ExpireLeaderboard expires name and its companions after ttl.
func (s *Service) ExpireLeaderboard(ctx context.Context, name string, ttl time.Duration) error {
	at := time.Now().Add(ttl)
	err := s.write(ctx, "expire_leaderboard", name, func(lb *leaderboard.TieRanking) error {
		return lb.Expire(ctx, ttl)
	})
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "leaderboard expiry set", "board", name, "ttl", ttl)
	s.bus.Publish(ctx, core.NewLeaderboardExpired(name, at))
	return nil
}

// ExpireLeaderboardAt expires name and its companions at at.
func (s *Service) ExpireLeaderboardAt(ctx context.Context, name string, at time.Time) error {
	err := s.write(ctx, "expire_leaderboard_at", name, func(lb *leaderboard.TieRanking) error {
		return lb.ExpireAt(ctx, at)
	})
	if err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "leaderboard expiry set", "board", name, "at", at)
	s.bus.Publish(ctx, core.NewLeaderboardExpired(name, at))
	return nil
}
