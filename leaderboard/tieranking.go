package leaderboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"tierank/core"
)

// TieRanking is a leaderboard whose ranks are dense: members sharing a score
// share a rank, and the next distinct score ranks exactly one lower.
//
// Next to the main board it keeps a tie board holding one entry per distinct
// score currently held by at least one member. A member's rank is the
// position of its score on the tie board, plus one.
//
// Writers on the same board are not coordinated. An interleaved RankMember and
// RemoveMember on one score can leave a stale or a missing tie entry;
// callers that need strict consistency serialize writers per board.
type TieRanking struct {
	name  string
	cfg   Config
	store Store
	board SortedSet
	ties  SortedSet
	data  MemberData
}

// New returns a handle on the leaderboard called name. Nothing is written
// until the first mutation. Zero fields in cfg take their defaults.
func New(name string, store Store, cfg Config) (*TieRanking, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if store == nil {
		return nil, fmt.Errorf("leaderboard %q: store is required", name)
	}
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("leaderboard %q: %w", name, err)
	}
	l := &TieRanking{name: name, cfg: cfg, store: store}
	l.board = store.SortedSet(name)
	l.ties = store.SortedSet(l.TiesKey())
	l.data = store.MemberData(l.MemberDataKey())
	return l, nil
}

func (l *TieRanking) Name() string   { return l.name }
func (l *TieRanking) Config() Config { return l.cfg }

// TiesKey is the key of the distinct-score index.
func (l *TieRanking) TiesKey() string {
	return l.name + l.cfg.KeyDelimiter + l.cfg.TiesNamespace
}

// MemberDataKey is the key of the member data collection.
func (l *TieRanking) MemberDataKey() string {
	return l.name + l.cfg.KeyDelimiter + l.cfg.MemberDataNamespace
}

func tieMember(score float64) string { return core.FormatScore(score) }

// checkMember rejects blank members. Members are opaque and stored verbatim.
func checkMember(member string) (string, error) {
	if _, err := core.NormalizeMember(member); err != nil {
		return "", ErrEmptyMember
	}
	return member, nil
}

// checkScore validates a score a member is about to hold and folds -0 into 0,
// so one numeric score always maps to one tie entry.
func checkScore(score float64) (float64, error) {
	if err := core.ValidateScore(score); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if math.IsInf(score, 0) {
		return 0, fmt.Errorf("%w: score is infinite", ErrInvalidScore)
	}
	return core.CanonicalScore(score), nil
}

// checkBound validates a range bound. Infinite bounds are allowed.
func checkBound(score float64) error {
	if err := core.ValidateScore(score); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	return nil
}

func checkRange(min, max float64) error {
	if err := checkBound(min); err != nil {
		return err
	}
	if err := checkBound(max); err != nil {
		return err
	}
	if min > max {
		return ErrInvalidRange
	}
	return nil
}

// Mutations

// RankMember sets member's score, inserting the member if needed.
func (l *TieRanking) RankMember(ctx context.Context, member string, score float64) error {
	return l.rankMember(ctx, member, score, nil)
}

// RankMemberWithData sets member's score and stores data alongside it.
func (l *TieRanking) RankMemberWithData(ctx context.Context, member string, score float64, data string) error {
	return l.rankMember(ctx, member, score, &data)
}

func (l *TieRanking) rankMember(ctx context.Context, member string, score float64, data *string) error {
	member, err := checkMember(member)
	if err != nil {
		return err
	}
	score, err = checkScore(score)
	if err != nil {
		return err
	}
	old, existed, err := l.board.Score(ctx, member)
	if err != nil {
		return fmt.Errorf("read score of %q: %w", member, err)
	}
	if err := l.board.Upsert(ctx, member, score); err != nil {
		return fmt.Errorf("rank %q: %w", member, err)
	}
	if existed && old != score {
		if err := l.releaseScore(ctx, old); err != nil {
			return err
		}
	}
	if err := l.ties.Upsert(ctx, tieMember(score), score); err != nil {
		return fmt.Errorf("index score %s: %w", tieMember(score), err)
	}
	if data != nil {
		if err := l.data.Set(ctx, member, *data); err != nil {
			return fmt.Errorf("store member data for %q: %w", member, err)
		}
	}
	return nil
}

// releaseScore drops score from the tie board once no member holds it.
func (l *TieRanking) releaseScore(ctx context.Context, score float64) error {
	holders, err := l.board.CountInRange(ctx, score, score)
	if err != nil {
		return fmt.Errorf("count holders of %s: %w", tieMember(score), err)
	}
	if holders > 0 {
		return nil
	}
	if err := l.ties.Remove(ctx, tieMember(score)); err != nil {
		return fmt.Errorf("unindex score %s: %w", tieMember(score), err)
	}
	return nil
}

// RankMembers ranks each entry in turn and stops at the first failure.
func (l *TieRanking) RankMembers(ctx context.Context, entries ...core.Entry) error {
	for _, e := range entries {
		if err := l.RankMember(ctx, e.Member, e.Score); err != nil {
			return err
		}
	}
	return nil
}

// RankMemberIf ranks member only when cond allows it and reports whether it did.
// A non-empty data is stored with the new score.
func (l *TieRanking) RankMemberIf(ctx context.Context, cond core.Condition, member string, score float64, data string) (bool, error) {
	member, err := checkMember(member)
	if err != nil {
		return false, err
	}
	current, exists, err := l.board.Score(ctx, member)
	if err != nil {
		return false, fmt.Errorf("read score of %q: %w", member, err)
	}
	c := core.Candidate{Member: member, Current: current, Exists: exists, Score: score, MemberData: data}
	if cond != nil && !cond.Allow(ctx, c) {
		return false, nil
	}
	var payload *string
	if data != "" {
		payload = &data
	}
	if err := l.rankMember(ctx, member, score, payload); err != nil {
		return false, err
	}
	return true, nil
}

// ChangeScoreFor adds delta to member's score (a missing member starts at 0)
// and returns the new score.
func (l *TieRanking) ChangeScoreFor(ctx context.Context, member string, delta float64) (float64, error) {
	member, err := checkMember(member)
	if err != nil {
		return 0, err
	}
	current, _, err := l.board.Score(ctx, member)
	if err != nil {
		return 0, fmt.Errorf("read score of %q: %w", member, err)
	}
	next, err := core.AddScore(current, delta)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidScore, err)
	}
	if err := l.rankMember(ctx, member, next, nil); err != nil {
		return 0, err
	}
	return core.CanonicalScore(next), nil
}

// RemoveMember removes member and its data. Removing an absent member is a no-op.
func (l *TieRanking) RemoveMember(ctx context.Context, member string) error {
	member, err := checkMember(member)
	if err != nil {
		return err
	}
	score, ok, err := l.board.Score(ctx, member)
	if err != nil {
		return fmt.Errorf("read score of %q: %w", member, err)
	}
	if !ok {
		return nil
	}
	if err := l.board.Remove(ctx, member); err != nil {
		return fmt.Errorf("remove %q: %w", member, err)
	}
	if err := l.data.Remove(ctx, member); err != nil {
		return fmt.Errorf("remove member data for %q: %w", member, err)
	}
	return l.releaseScore(ctx, score)
}

// RemoveMembersInScoreRange removes every member with min <= score <= max.
// The whole band is vacated, so the matching tie entries go too.
func (l *TieRanking) RemoveMembersInScoreRange(ctx context.Context, min, max float64) error {
	if err := checkRange(min, max); err != nil {
		return err
	}
	doomed, err := l.board.RangeByScore(ctx, min, max, l.cfg.Order)
	if err != nil {
		return fmt.Errorf("list members in [%s, %s]: %w", core.FormatScore(min), core.FormatScore(max), err)
	}
	if err := l.board.RemoveRangeByScore(ctx, min, max); err != nil {
		return fmt.Errorf("remove members in [%s, %s]: %w", core.FormatScore(min), core.FormatScore(max), err)
	}
	if err := l.ties.RemoveRangeByScore(ctx, min, max); err != nil {
		return fmt.Errorf("unindex scores in [%s, %s]: %w", core.FormatScore(min), core.FormatScore(max), err)
	}
	if len(doomed) == 0 {
		return nil
	}
	members := make([]string, len(doomed))
	for i, e := range doomed {
		members[i] = e.Member
	}
	if err := l.data.Remove(ctx, members...); err != nil {
		return fmt.Errorf("remove member data: %w", err)
	}
	return nil
}

// Member data

func (l *TieRanking) MemberDataFor(ctx context.Context, member string) (string, bool, error) {
	return l.data.Get(ctx, member)
}

// UpdateMemberData replaces member's data without touching its score.
func (l *TieRanking) UpdateMemberData(ctx context.Context, member, data string) error {
	member, err := checkMember(member)
	if err != nil {
		return err
	}
	return l.data.Set(ctx, member, data)
}

func (l *TieRanking) RemoveMemberData(ctx context.Context, member string) error {
	return l.data.Remove(ctx, member)
}

// Rank resolution

// resolveRank returns the dense rank of score.
func (l *TieRanking) resolveRank(ctx context.Context, score float64) (int64, error) {
	pos, ok, err := l.ties.Rank(ctx, tieMember(score), l.cfg.Order)
	if err != nil {
		return 0, fmt.Errorf("rank score %s: %w", tieMember(score), err)
	}
	if ok {
		return pos + 1, nil
	}
	// The entry was dropped by a racing writer. Count the distinct scores
	// that rank ahead instead, which is what its position would have been.
	var ahead int64
	if l.cfg.Order == core.Ascending {
		ahead, err = l.ties.CountInRange(ctx, math.Inf(-1), math.Nextafter(score, math.Inf(-1)))
	} else {
		ahead, err = l.ties.CountInRange(ctx, math.Nextafter(score, math.Inf(1)), math.Inf(1))
	}
	if err != nil {
		return 0, fmt.Errorf("count scores ahead of %s: %w", tieMember(score), err)
	}
	return ahead + 1, nil
}

// ScoreFor returns member's raw score.
func (l *TieRanking) ScoreFor(ctx context.Context, member string) (float64, bool, error) {
	score, ok, err := l.board.Score(ctx, member)
	if err != nil {
		return 0, false, fmt.Errorf("read score of %q: %w", member, err)
	}
	return score, ok, nil
}

// CheckMember reports whether member is on the board.
func (l *TieRanking) CheckMember(ctx context.Context, member string) (bool, error) {
	_, ok, err := l.ScoreFor(ctx, member)
	return ok, err
}

// RankFor returns member's dense rank, 1 being best.
func (l *TieRanking) RankFor(ctx context.Context, member string) (int64, bool, error) {
	score, ok, err := l.ScoreFor(ctx, member)
	if err != nil || !ok {
		return 0, false, err
	}
	rank, err := l.resolveRank(ctx, score)
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

// ScoreAndRankFor returns member's ranked record.
func (l *TieRanking) ScoreAndRankFor(ctx context.Context, member string, opts ...ReadOption) (core.RankedMember, bool, error) {
	o, err := l.readOptions(opts)
	if err != nil {
		return core.RankedMember{}, false, err
	}
	score, ok, err := l.ScoreFor(ctx, member)
	if err != nil || !ok {
		return core.RankedMember{}, false, err
	}
	out, err := l.decorate(ctx, []core.Entry{{Member: member, Score: score}}, o)
	if err != nil {
		return core.RankedMember{}, false, err
	}
	return out[0], true, nil
}

// RankedInList returns records for the listed members that are on the board,
// in the order given.
func (l *TieRanking) RankedInList(ctx context.Context, members []string, opts ...ReadOption) ([]core.RankedMember, error) {
	o, err := l.readOptions(opts)
	if err != nil {
		return nil, err
	}
	entries := make([]core.Entry, 0, len(members))
	for _, m := range members {
		score, ok, err := l.ScoreFor(ctx, m)
		if err != nil {
			return nil, err
		}
		if ok {
			entries = append(entries, core.Entry{Member: m, Score: score})
		}
	}
	return l.decorate(ctx, entries, o)
}

// decorate attaches dense ranks, resolving each distinct score once.
func (l *TieRanking) decorate(ctx context.Context, entries []core.Entry, o readOptions) ([]core.RankedMember, error) {
	out := make([]core.RankedMember, 0, len(entries))
	if len(entries) == 0 {
		return out, nil
	}
	ranks := make(map[float64]int64)
	for _, e := range entries {
		rank, ok := ranks[e.Score]
		if !ok {
			var err error
			if rank, err = l.resolveRank(ctx, e.Score); err != nil {
				return nil, err
			}
			ranks[e.Score] = rank
		}
		out = append(out, core.RankedMember{Member: e.Member, Score: e.Score, Rank: rank})
	}
	if o.withData {
		members := make([]string, len(entries))
		for i, e := range entries {
			members[i] = e.Member
		}
		data, err := l.data.GetMany(ctx, members...)
		if err != nil {
			return nil, fmt.Errorf("read member data: %w", err)
		}
		for i := range out {
			out[i].MemberData = data[out[i].Member]
		}
	}
	return out, nil
}

// Pages and windows

// Leaders returns page (1-indexed) of the board. Pages past the end are empty.
func (l *TieRanking) Leaders(ctx context.Context, page int, opts ...ReadOption) ([]core.RankedMember, error) {
	o, err := l.readOptions(opts)
	if err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	start := int64(page-1) * int64(o.pageSize)
	return l.slice(ctx, start, start+int64(o.pageSize)-1, o)
}

// AllMembers returns the whole board.
func (l *TieRanking) AllMembers(ctx context.Context, opts ...ReadOption) ([]core.RankedMember, error) {
	o, err := l.readOptions(opts)
	if err != nil {
		return nil, err
	}
	return l.slice(ctx, 0, -1, o)
}

// MembersFromRankRange returns board positions start..end, 1-based and inclusive.
func (l *TieRanking) MembersFromRankRange(ctx context.Context, start, end int64, opts ...ReadOption) ([]core.RankedMember, error) {
	o, err := l.readOptions(opts)
	if err != nil {
		return nil, err
	}
	if start < 1 {
		start = 1
	}
	if end < start {
		return nil, ErrInvalidRange
	}
	return l.slice(ctx, start-1, end-1, o)
}

// MemberAt returns the member at 1-based board position.
func (l *TieRanking) MemberAt(ctx context.Context, position int64, opts ...ReadOption) (core.RankedMember, bool, error) {
	if position < 1 {
		return core.RankedMember{}, false, nil
	}
	out, err := l.MembersFromRankRange(ctx, position, position, opts...)
	if err != nil || len(out) == 0 {
		return core.RankedMember{}, false, err
	}
	return out[0], true, nil
}

// MembersFromScoreRange returns members with min <= score <= max in board order.
func (l *TieRanking) MembersFromScoreRange(ctx context.Context, min, max float64, opts ...ReadOption) ([]core.RankedMember, error) {
	o, err := l.readOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := checkRange(min, max); err != nil {
		return nil, err
	}
	entries, err := l.board.RangeByScore(ctx, min, max, l.cfg.Order)
	if err != nil {
		return nil, fmt.Errorf("range %q by score: %w", l.name, err)
	}
	return l.decorate(ctx, entries, o)
}

// AroundMe returns a page-sized window of the board centered on member.
// Near either end the window shifts to stay full, so member may be off center.
// An absent member yields an empty window.
func (l *TieRanking) AroundMe(ctx context.Context, member string, opts ...ReadOption) ([]core.RankedMember, error) {
	o, err := l.readOptions(opts)
	if err != nil {
		return nil, err
	}
	pos, ok, err := l.board.Rank(ctx, member, l.cfg.Order)
	if err != nil {
		return nil, fmt.Errorf("locate %q: %w", member, err)
	}
	if !ok {
		return []core.RankedMember{}, nil
	}
	total, err := l.board.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count %q: %w", l.name, err)
	}
	start, stop := window(pos, total, int64(o.pageSize))
	return l.slice(ctx, start, stop, o)
}

// window returns the inclusive bounds of a size-long slice of [0,total) around pos.
func window(pos, total, size int64) (int64, int64) {
	start := pos - size/2
	if start < 0 {
		start = 0
	}
	stop := start + size - 1
	if stop >= total {
		stop = total - 1
		start = stop - size + 1
		if start < 0 {
			start = 0
		}
	}
	return start, stop
}

func (l *TieRanking) slice(ctx context.Context, start, stop int64, o readOptions) ([]core.RankedMember, error) {
	entries, err := l.board.RangeByPosition(ctx, start, stop, l.cfg.Order)
	if err != nil {
		return nil, fmt.Errorf("range %q by position: %w", l.name, err)
	}
	return l.decorate(ctx, entries, o)
}

// TotalPages returns how many pages the board fills.
func (l *TieRanking) TotalPages(ctx context.Context, opts ...ReadOption) (int64, error) {
	o, err := l.readOptions(opts)
	if err != nil {
		return 0, err
	}
	total, err := l.TotalMembers(ctx)
	if err != nil {
		return 0, err
	}
	n := int64(o.pageSize)
	return (total + n - 1) / n, nil
}

// PageFor returns the page that lists member, or 0 when member is absent.
func (l *TieRanking) PageFor(ctx context.Context, member string, opts ...ReadOption) (int64, error) {
	o, err := l.readOptions(opts)
	if err != nil {
		return 0, err
	}
	pos, ok, err := l.board.Rank(ctx, member, l.cfg.Order)
	if err != nil {
		return 0, fmt.Errorf("locate %q: %w", member, err)
	}
	if !ok {
		return 0, nil
	}
	return pos/int64(o.pageSize) + 1, nil
}

// Lifecycle

// TotalMembers is the cardinality of the main board.
func (l *TieRanking) TotalMembers(ctx context.Context) (int64, error) {
	n, err := l.board.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", l.name, err)
	}
	return n, nil
}

// TotalMembersIn is the cardinality of any sorted set in the same store,
// e.g. TotalMembersIn(ctx, l.TiesKey()).
func (l *TieRanking) TotalMembersIn(ctx context.Context, key string) (int64, error) {
	n, err := l.store.SortedSet(key).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count %q: %w", key, err)
	}
	return n, nil
}

// TotalMembersInScoreRange counts members with min <= score <= max.
func (l *TieRanking) TotalMembersInScoreRange(ctx context.Context, min, max float64) (int64, error) {
	if err := checkRange(min, max); err != nil {
		return 0, err
	}
	n, err := l.board.CountInRange(ctx, min, max)
	if err != nil {
		return 0, fmt.Errorf("count %q in range: %w", l.name, err)
	}
	return n, nil
}

// Delete removes the main board, the tie board and the member data together.
func (l *TieRanking) Delete(ctx context.Context) error {
	if err := l.store.Delete(ctx, l.name, l.TiesKey(), l.MemberDataKey()); err != nil {
		return fmt.Errorf("delete leaderboard %q: %w", l.name, err)
	}
	return nil
}

type lifecycleKey struct {
	key string
	c   Expirable
}

func (l *TieRanking) lifecycle() []lifecycleKey {
	return []lifecycleKey{
		{l.name, l.board},
		{l.TiesKey(), l.ties},
		{l.MemberDataKey(), l.data},
	}
}

// Expire sets ttl on all three collections, one after the other. On failure
// the error names the key that failed; keys before it already carry the ttl.
func (l *TieRanking) Expire(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	for _, k := range l.lifecycle() {
		if err := k.c.Expire(ctx, ttl); err != nil {
			return fmt.Errorf("expire %q: %w", k.key, err)
		}
	}
	return nil
}

// ExpireAt sets an absolute expiry on all three collections, one after the other.
func (l *TieRanking) ExpireAt(ctx context.Context, at time.Time) error {
	for _, k := range l.lifecycle() {
		if err := k.c.ExpireAt(ctx, at); err != nil {
			return fmt.Errorf("expire %q at %s: %w", k.key, at.UTC().Format(time.RFC3339), err)
		}
	}
	return nil
}
