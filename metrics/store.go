package metrics

import (
	"context"
	"time"

	"tierank/core"
	"tierank/leaderboard"
)

// InstrumentStore wraps store so every command is timed and its failures counted.
func InstrumentStore(store leaderboard.Store, rec *Recorder) leaderboard.Store {
	return &instrumentedStore{inner: store, rec: rec}
}

type instrumentedStore struct {
	inner leaderboard.Store
	rec   *Recorder
}

func (s *instrumentedStore) SortedSet(key string) leaderboard.SortedSet {
	return &instrumentedSet{inner: s.inner.SortedSet(key), rec: s.rec}
}

func (s *instrumentedStore) MemberData(key string) leaderboard.MemberData {
	return &instrumentedData{inner: s.inner.MemberData(key), rec: s.rec}
}

func (s *instrumentedStore) Delete(ctx context.Context, keys ...string) error {
	start := time.Now()
	err := s.inner.Delete(ctx, keys...)
	s.rec.ObserveCommand("delete", start, err)
	return err
}

// Ping forwards to the wrapped store when it can be pinged.
func (s *instrumentedStore) Ping(ctx context.Context) error {
	p, ok := s.inner.(leaderboard.Pinger)
	if !ok {
		return nil
	}
	start := time.Now()
	err := p.Ping(ctx)
	s.rec.ObserveCommand("ping", start, err)
	return err
}

type instrumentedSet struct {
	inner leaderboard.SortedSet
	rec   *Recorder
}

func (z *instrumentedSet) Upsert(ctx context.Context, member string, score float64) error {
	start := time.Now()
	err := z.inner.Upsert(ctx, member, score)
	z.rec.ObserveCommand("sorted_set_upsert", start, err)
	return err
}

func (z *instrumentedSet) Remove(ctx context.Context, members ...string) error {
	start := time.Now()
	err := z.inner.Remove(ctx, members...)
	z.rec.ObserveCommand("sorted_set_remove", start, err)
	return err
}

func (z *instrumentedSet) RemoveRangeByScore(ctx context.Context, min, max float64) error {
	start := time.Now()
	err := z.inner.RemoveRangeByScore(ctx, min, max)
	z.rec.ObserveCommand("sorted_set_remove_range_by_score", start, err)
	return err
}

func (z *instrumentedSet) Score(ctx context.Context, member string) (float64, bool, error) {
	start := time.Now()
	score, ok, err := z.inner.Score(ctx, member)
	z.rec.ObserveCommand("sorted_set_score", start, err)
	return score, ok, err
}

func (z *instrumentedSet) Rank(ctx context.Context, member string, order core.SortOrder) (int64, bool, error) {
	start := time.Now()
	rank, ok, err := z.inner.Rank(ctx, member, order)
	z.rec.ObserveCommand("sorted_set_rank", start, err)
	return rank, ok, err
}

func (z *instrumentedSet) RangeByPosition(ctx context.Context, start, stop int64, order core.SortOrder) ([]core.Entry, error) {
	began := time.Now()
	out, err := z.inner.RangeByPosition(ctx, start, stop, order)
	z.rec.ObserveCommand("sorted_set_range_by_position", began, err)
	return out, err
}

func (z *instrumentedSet) RangeByScore(ctx context.Context, min, max float64, order core.SortOrder) ([]core.Entry, error) {
	start := time.Now()
	out, err := z.inner.RangeByScore(ctx, min, max, order)
	z.rec.ObserveCommand("sorted_set_range_by_score", start, err)
	return out, err
}

func (z *instrumentedSet) Count(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := z.inner.Count(ctx)
	z.rec.ObserveCommand("sorted_set_count", start, err)
	return n, err
}

func (z *instrumentedSet) CountInRange(ctx context.Context, min, max float64) (int64, error) {
	start := time.Now()
	n, err := z.inner.CountInRange(ctx, min, max)
	z.rec.ObserveCommand("sorted_set_count_in_range", start, err)
	return n, err
}

func (z *instrumentedSet) Exists(ctx context.Context) (bool, error) {
	return observeExists(ctx, z.rec, "sorted_set", z.inner)
}

func (z *instrumentedSet) Expire(ctx context.Context, ttl time.Duration) error {
	return observeExpire(ctx, z.rec, "sorted_set", z.inner, ttl)
}

func (z *instrumentedSet) ExpireAt(ctx context.Context, at time.Time) error {
	return observeExpireAt(ctx, z.rec, "sorted_set", z.inner, at)
}

func (z *instrumentedSet) TTL(ctx context.Context) (time.Duration, error) {
	return observeTTL(ctx, z.rec, "sorted_set", z.inner)
}

type instrumentedData struct {
	inner leaderboard.MemberData
	rec   *Recorder
}

func (h *instrumentedData) Set(ctx context.Context, member, data string) error {
	start := time.Now()
	err := h.inner.Set(ctx, member, data)
	h.rec.ObserveCommand("member_data_set", start, err)
	return err
}

func (h *instrumentedData) Get(ctx context.Context, member string) (string, bool, error) {
	start := time.Now()
	data, ok, err := h.inner.Get(ctx, member)
	h.rec.ObserveCommand("member_data_get", start, err)
	return data, ok, err
}

func (h *instrumentedData) GetMany(ctx context.Context, members ...string) (map[string]string, error) {
	start := time.Now()
	out, err := h.inner.GetMany(ctx, members...)
	h.rec.ObserveCommand("member_data_get_many", start, err)
	return out, err
}

func (h *instrumentedData) Remove(ctx context.Context, members ...string) error {
	start := time.Now()
	err := h.inner.Remove(ctx, members...)
	h.rec.ObserveCommand("member_data_remove", start, err)
	return err
}

func (h *instrumentedData) Exists(ctx context.Context) (bool, error) {
	return observeExists(ctx, h.rec, "member_data", h.inner)
}

func (h *instrumentedData) Expire(ctx context.Context, ttl time.Duration) error {
	return observeExpire(ctx, h.rec, "member_data", h.inner, ttl)
}

func (h *instrumentedData) ExpireAt(ctx context.Context, at time.Time) error {
	return observeExpireAt(ctx, h.rec, "member_data", h.inner, at)
}

func (h *instrumentedData) TTL(ctx context.Context) (time.Duration, error) {
	return observeTTL(ctx, h.rec, "member_data", h.inner)
}

func observeExists(ctx context.Context, rec *Recorder, kind string, e leaderboard.Expirable) (bool, error) {
	start := time.Now()
	ok, err := e.Exists(ctx)
	rec.ObserveCommand(kind+"_exists", start, err)
	return ok, err
}

func observeExpire(ctx context.Context, rec *Recorder, kind string, e leaderboard.Expirable, ttl time.Duration) error {
	start := time.Now()
	err := e.Expire(ctx, ttl)
	rec.ObserveCommand(kind+"_expire", start, err)
	return err
}

func observeExpireAt(ctx context.Context, rec *Recorder, kind string, e leaderboard.Expirable, at time.Time) error {
	start := time.Now()
	err := e.ExpireAt(ctx, at)
	rec.ObserveCommand(kind+"_expire_at", start, err)
	return err
}

func observeTTL(ctx context.Context, rec *Recorder, kind string, e leaderboard.Expirable) (time.Duration, error) {
	start := time.Now()
	ttl, err := e.TTL(ctx)
	rec.ObserveCommand(kind+"_ttl", start, err)
	return ttl, err
}

var (
	_ leaderboard.Store  = (*instrumentedStore)(nil)
	_ leaderboard.Pinger = (*instrumentedStore)(nil)
)
