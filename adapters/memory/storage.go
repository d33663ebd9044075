package memory

import (
	"context"
	"sync"
	"time"

	"tierank/core"
	"tierank/leaderboard"
)

// Store is a concurrent in-process ordered store. Each key holds either a
// sorted set or a hash and may carry an expiry. It mirrors Redis semantics the
// leaderboard relies on: emptied keys vanish, expired keys read as missing,
// and a non-positive or past expiry deletes the key.
type Store struct {
	mu      sync.Mutex
	now     func() time.Time
	sets    map[string]*skipList
	hashes  map[string]map[string]string
	expires map[string]time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides time.Now, e.g. to step expiries in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		now:     time.Now,
		sets:    map[string]*skipList{},
		hashes:  map[string]map[string]string{},
		expires: map[string]time.Time{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) SortedSet(key string) leaderboard.SortedSet { return &sortedSet{s: s, key: key} }

func (s *Store) MemberData(key string) leaderboard.MemberData { return &hash{s: s, key: key} }

// Delete removes keys under a single lock, so observers see all or none gone.
func (s *Store) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.dropLocked(k)
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) dropLocked(key string) {
	delete(s.sets, key)
	delete(s.hashes, key)
	delete(s.expires, key)
}

// liveLocked evicts key if its expiry passed and reports whether it exists.
func (s *Store) liveLocked(key string) bool {
	if at, ok := s.expires[key]; ok && !s.now().Before(at) {
		s.dropLocked(key)
		return false
	}
	_, isSet := s.sets[key]
	_, isHash := s.hashes[key]
	return isSet || isHash
}

func (s *Store) expireAtLocked(key string, at time.Time) {
	if !s.liveLocked(key) {
		return
	}
	if !at.After(s.now()) {
		s.dropLocked(key)
		return
	}
	s.expires[key] = at
}

func (s *Store) ttlLocked(key string) time.Duration {
	if !s.liveLocked(key) {
		return leaderboard.KeyMissing
	}
	at, ok := s.expires[key]
	if !ok {
		return leaderboard.NoExpiry
	}
	return at.Sub(s.now())
}

// keyLifecycle implements leaderboard.Expirable for any key kind.
type keyLifecycle struct {
	s   *Store
	key string
}

func (k keyLifecycle) Exists(context.Context) (bool, error) {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	return k.s.liveLocked(k.key), nil
}

func (k keyLifecycle) Expire(_ context.Context, ttl time.Duration) error {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	k.s.expireAtLocked(k.key, k.s.now().Add(ttl))
	return nil
}

func (k keyLifecycle) ExpireAt(_ context.Context, at time.Time) error {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	k.s.expireAtLocked(k.key, at)
	return nil
}

func (k keyLifecycle) TTL(context.Context) (time.Duration, error) {
	k.s.mu.Lock()
	defer k.s.mu.Unlock()
	return k.s.ttlLocked(k.key), nil
}

type sortedSet struct {
	s   *Store
	key string
}

func (z *sortedSet) life() keyLifecycle { return keyLifecycle{z.s, z.key} }

// getLocked returns the live set for key, creating it when create is set.
func (z *sortedSet) getLocked(create bool) *skipList {
	if z.s.liveLocked(z.key) {
		if sl, ok := z.s.sets[z.key]; ok {
			return sl
		}
	}
	if !create {
		return nil
	}
	sl := newSkipList()
	z.s.sets[z.key] = sl
	return sl
}

// pruneLocked removes the key once its set is empty.
func (z *sortedSet) pruneLocked(sl *skipList) {
	if sl != nil && sl.Len() == 0 {
		z.s.dropLocked(z.key)
	}
}

func (z *sortedSet) Upsert(_ context.Context, member string, score float64) error {
	z.s.mu.Lock()
	defer z.s.mu.Unlock()
	z.getLocked(true).Upsert(member, score)
	return nil
}

func (z *sortedSet) Remove(_ context.Context, members ...string) error {
	z.s.mu.Lock()
	defer z.s.mu.Unlock()
	sl := z.getLocked(false)
	if sl == nil {
		return nil
	}
	for _, m := range members {
		sl.Remove(m)
	}
	z.pruneLocked(sl)
	return nil
}

func (z *sortedSet) RemoveRangeByScore(_ context.Context, min, max float64) error {
	z.s.mu.Lock()
	defer z.s.mu.Unlock()
	sl := z.getLocked(false)
	if sl == nil {
		return nil
	}
	for _, e := range sl.ByScore(min, max) {
		sl.Remove(e.Member)
	}
	z.pruneLocked(sl)
	return nil
}

func (z *sortedSet) Score(_ context.Context, member string) (float64, bool, error) {
	z.s.mu.Lock()
	defer z.s.mu.Unlock()
	sl := z.getLocked(false)
	if sl == nil {
		return 0, false, nil
	}
	score, ok := sl.Score(member)
	return score, ok, nil
}

func (z *sortedSet) Rank(_ context.Context, member string, order core.SortOrder) (int64, bool, error) {
	z.s.mu.Lock()
	defer z.s.mu.Unlock()
	sl := z.getLocked(false)
	if sl == nil {
		return 0, false, nil
	}
	r, ok := sl.Rank(member)
	if !ok {
		return 0, false, nil
	}
	if order == core.Descending {
		r = sl.Len() - 1 - r
	}
	return int64(r), true, nil
}

func (z *sortedSet) RangeByPosition(_ context.Context, start, stop int64, order core.SortOrder) ([]core.Entry, error) {
	z.s.mu.Lock()
	defer z.s.mu.Unlock()
	sl := z.getLocked(false)
	if sl == nil {
		return []core.Entry{}, nil
	}
	n := int64(sl.Len())
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return []core.Entry{}, nil
	}
	if order == core.Ascending {
		return sl.Slice(int(start), int(stop)), nil
	}
	out := sl.Slice(int(n-1-stop), int(n-1-start))
	reverse(out)
	return out, nil
}

func (z *sortedSet) RangeByScore(_ context.Context, min, max float64, order core.SortOrder) ([]core.Entry, error) {
	z.s.mu.Lock()
	defer z.s.mu.Unlock()
	sl := z.getLocked(false)
	if sl == nil {
		return []core.Entry{}, nil
	}
	out := sl.ByScore(min, max)
	if out == nil {
		return []core.Entry{}, nil
	}
	if order == core.Descending {
		reverse(out)
	}
	return out, nil
}

func (z *sortedSet) Count(_ context.Context) (int64, error) {
	z.s.mu.Lock()
	defer z.s.mu.Unlock()
	sl := z.getLocked(false)
	if sl == nil {
		return 0, nil
	}
	return int64(sl.Len()), nil
}

func (z *sortedSet) CountInRange(_ context.Context, min, max float64) (int64, error) {
	z.s.mu.Lock()
	defer z.s.mu.Unlock()
	sl := z.getLocked(false)
	if sl == nil {
		return 0, nil
	}
	return int64(sl.CountByScore(min, max)), nil
}

func (z *sortedSet) Exists(ctx context.Context) (bool, error) { return z.life().Exists(ctx) }
func (z *sortedSet) Expire(ctx context.Context, ttl time.Duration) error {
	return z.life().Expire(ctx, ttl)
}
func (z *sortedSet) ExpireAt(ctx context.Context, at time.Time) error {
	return z.life().ExpireAt(ctx, at)
}
func (z *sortedSet) TTL(ctx context.Context) (time.Duration, error) { return z.life().TTL(ctx) }

type hash struct {
	s   *Store
	key string
}

func (h *hash) life() keyLifecycle { return keyLifecycle{h.s, h.key} }

func (h *hash) getLocked(create bool) map[string]string {
	if h.s.liveLocked(h.key) {
		if m, ok := h.s.hashes[h.key]; ok {
			return m
		}
	}
	if !create {
		return nil
	}
	m := map[string]string{}
	h.s.hashes[h.key] = m
	return m
}

func (h *hash) Set(_ context.Context, member, data string) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	h.getLocked(true)[member] = data
	return nil
}

func (h *hash) Get(_ context.Context, member string) (string, bool, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	v, ok := h.getLocked(false)[member]
	return v, ok, nil
}

func (h *hash) GetMany(_ context.Context, members ...string) (map[string]string, error) {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	m := h.getLocked(false)
	out := make(map[string]string, len(members))
	for _, member := range members {
		if v, ok := m[member]; ok {
			out[member] = v
		}
	}
	return out, nil
}

func (h *hash) Remove(_ context.Context, members ...string) error {
	h.s.mu.Lock()
	defer h.s.mu.Unlock()
	m := h.getLocked(false)
	if m == nil {
		return nil
	}
	for _, member := range members {
		delete(m, member)
	}
	if len(m) == 0 {
		h.s.dropLocked(h.key)
	}
	return nil
}

func (h *hash) Exists(ctx context.Context) (bool, error) { return h.life().Exists(ctx) }
func (h *hash) Expire(ctx context.Context, ttl time.Duration) error {
	return h.life().Expire(ctx, ttl)
}
func (h *hash) ExpireAt(ctx context.Context, at time.Time) error {
	return h.life().ExpireAt(ctx, at)
}
func (h *hash) TTL(ctx context.Context) (time.Duration, error) { return h.life().TTL(ctx) }

func reverse(es []core.Entry) {
	for i, j := 0, len(es)-1; i < j; i, j = i+1, j-1 {
		es[i], es[j] = es[j], es[i]
	}
}

var (
	_ leaderboard.Store  = (*Store)(nil)
	_ leaderboard.Pinger = (*Store)(nil)
)
