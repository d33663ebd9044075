package leaderboard_test

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tierank/adapters/memory"
	redisAdapter "tierank/adapters/redis"
	"tierank/core"
	"tierank/leaderboard"
)

// stores runs fn once per ordered store backend.
func stores(t *testing.T, fn func(t *testing.T, store leaderboard.Store)) {
	t.Helper()
	t.Run("memory", func(t *testing.T) {
		fn(t, memory.New())
	})
	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		fn(t, redisAdapter.NewWithClient(client))
	})
}

func newBoard(t *testing.T, store leaderboard.Store, cfg leaderboard.Config) *leaderboard.TieRanking {
	t.Helper()
	lb, err := leaderboard.New("ties", store, cfg)
	require.NoError(t, err)
	return lb
}

func rankAll(t *testing.T, lb *leaderboard.TieRanking, scores map[string]float64) {
	t.Helper()
	ctx := context.Background()
	for m, s := range scores {
		require.NoError(t, lb.RankMember(ctx, m, s))
	}
}

// rankMembersInLeaderboard ranks member_1..member_5 with scores 1..5 and member data.
func rankMembersInLeaderboard(t *testing.T, lb *leaderboard.TieRanking) {
	t.Helper()
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		member := fmt.Sprintf("member_%d", i)
		data := fmt.Sprintf(`{"member_name":"Leaderboard member %d"}`, i)
		require.NoError(t, lb.RankMemberWithData(ctx, member, float64(i), data))
	}
}

var tenMembers = map[string]float64{
	"member_1": 50, "member_2": 50, "member_3": 30, "member_4": 30, "member_5": 10,
	"member_6": 50, "member_7": 50, "member_8": 30, "member_9": 30, "member_10": 10,
}

func ranksOf(records []core.RankedMember) []int64 {
	out := make([]int64, len(records))
	for i, r := range records {
		out[i] = r.Rank
	}
	return out
}

func tieCount(t *testing.T, lb *leaderboard.TieRanking) int64 {
	t.Helper()
	n, err := lb.TotalMembersIn(context.Background(), lb.TiesKey())
	require.NoError(t, err)
	return n
}

func TestNew_Validation(t *testing.T) {
	_, err := leaderboard.New("", memory.New(), leaderboard.Config{})
	assert.ErrorIs(t, err, leaderboard.ErrEmptyName)

	_, err = leaderboard.New("b", nil, leaderboard.Config{})
	assert.Error(t, err)

	_, err = leaderboard.New("b", memory.New(), leaderboard.Config{Order: "sideways"})
	assert.Error(t, err)

	lb, err := leaderboard.New("b", memory.New(), leaderboard.Config{})
	require.NoError(t, err)
	assert.Equal(t, leaderboard.DefaultConfig(), lb.Config())
	assert.Equal(t, "b:ties", lb.TiesKey())
	assert.Equal(t, "b:member_data", lb.MemberDataKey())

	lb, err = leaderboard.New("b", memory.New(), leaderboard.Config{KeyDelimiter: "/", TiesNamespace: "distinct"})
	require.NoError(t, err)
	assert.Equal(t, "b/distinct", lb.TiesKey())
	assert.Equal(t, "b/member_data", lb.MemberDataKey())
}

func TestLeaders_DenseRankGrouping(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		lb := newBoard(t, store, leaderboard.Config{})
		rankAll(t, lb, map[string]float64{"member_1": 50, "member_2": 50, "member_3": 30, "member_4": 30, "member_5": 10})

		leaders, err := lb.Leaders(context.Background(), 1)
		require.NoError(t, err)
		require.Len(t, leaders, 5)
		assert.Equal(t, []int64{1, 1, 2, 2, 3}, ranksOf(leaders))
		assert.Equal(t, 50.0, leaders[0].Score)
		assert.Equal(t, 10.0, leaders[4].Score)
	})
}

func TestRankFor_SharedScoresShareRank(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankAll(t, lb, map[string]float64{"member_1": 50, "member_2": 50, "member_3": 30})

		for member, want := range map[string]int64{"member_1": 1, "member_2": 1, "member_3": 2} {
			rank, ok, err := lb.RankFor(ctx, member)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, want, rank, member)

			rec, ok, err := lb.ScoreAndRankFor(ctx, member)
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, want, rec.Rank, member)
			assert.Equal(t, member, rec.Member)
		}

		_, ok, err := lb.RankFor(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = lb.ScoreAndRankFor(ctx, "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRemoveMember_TieBoardCardinality(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankAll(t, lb, map[string]float64{"member_1": 50, "member_2": 50, "member_3": 30})
		assert.Equal(t, int64(2), tieCount(t, lb))

		require.NoError(t, lb.RemoveMember(ctx, "member_1"))
		assert.Equal(t, int64(2), tieCount(t, lb))
		require.NoError(t, lb.RemoveMember(ctx, "member_2"))
		assert.Equal(t, int64(1), tieCount(t, lb))
		require.NoError(t, lb.RemoveMember(ctx, "member_3"))
		assert.Equal(t, int64(0), tieCount(t, lb))

		// absent member is a no-op
		require.NoError(t, lb.RemoveMember(ctx, "member_3"))
		assert.ErrorIs(t, lb.RemoveMember(ctx, " "), leaderboard.ErrEmptyMember)
	})
}

func TestRankMember_MovingScoreReleasesOldTie(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankAll(t, lb, map[string]float64{"a": 50, "b": 50, "c": 30})

		require.NoError(t, lb.RankMember(ctx, "c", 70))
		assert.Equal(t, int64(2), tieCount(t, lb), "30 is gone, 70 is new")

		require.NoError(t, lb.RankMember(ctx, "a", 70))
		assert.Equal(t, int64(2), tieCount(t, lb), "50 still held by b")

		rank, _, err := lb.RankFor(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, int64(2), rank)

		require.NoError(t, lb.RankMember(ctx, "b", 70))
		assert.Equal(t, int64(1), tieCount(t, lb))
	})
}

func TestRankMember_NegativeZeroSharesZeroTie(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		require.NoError(t, lb.RankMember(ctx, "a", 0))
		require.NoError(t, lb.RankMember(ctx, "b", math.Copysign(0, -1)))

		assert.Equal(t, int64(1), tieCount(t, lb))
		for _, m := range []string{"a", "b"} {
			rank, ok, err := lb.RankFor(ctx, m)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, int64(1), rank, m)
		}
		score, _, err := lb.ScoreFor(ctx, "b")
		require.NoError(t, err)
		assert.False(t, math.Signbit(score))

		leaders, err := lb.Leaders(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 1}, ranksOf(leaders))

		require.NoError(t, lb.RemoveMember(ctx, "a"))
		assert.Equal(t, int64(1), tieCount(t, lb), "b still holds 0")
		require.NoError(t, lb.RemoveMember(ctx, "b"))
		assert.Zero(t, tieCount(t, lb))
	})
}

func TestRankMember_TieBoardScoreShapes(t *testing.T) {
	tenth := 0.1
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankAll(t, lb, map[string]float64{
			"zero":     0,
			"neg_zero": math.Copysign(0, -1),
			"negative": -1.5,
			"sum":      tenth + 0.2,
			"literal":  0.3,
		})

		// 0.1+0.2 and 0.3 differ in binary, the two zeros do not
		assert.Equal(t, int64(4), tieCount(t, lb))

		want := map[string]int64{"sum": 1, "literal": 2, "zero": 3, "neg_zero": 3, "negative": 4}
		for member, rank := range want {
			got, ok, err := lb.RankFor(ctx, member)
			require.NoError(t, err)
			require.True(t, ok, member)
			assert.Equal(t, rank, got, member)
		}

		all, err := lb.AllMembers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3, 3, 4}, ranksOf(all))
	})
}

func TestRankMember_RejectsInfiniteScores(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		require.NoError(t, lb.RankMember(ctx, "a", 10))

		for _, score := range []float64{math.Inf(1), math.Inf(-1)} {
			assert.ErrorIs(t, lb.RankMember(ctx, "b", score), leaderboard.ErrInvalidScore)
			_, err := lb.ChangeScoreFor(ctx, "a", score)
			assert.ErrorIs(t, err, leaderboard.ErrInvalidScore)
		}
		assert.ErrorIs(t, lb.RankMember(ctx, "b", math.NaN()), leaderboard.ErrInvalidScore)

		ok, err := lb.CheckMember(ctx, "b")
		require.NoError(t, err)
		assert.False(t, ok)
		score, _, err := lb.ScoreFor(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 10.0, score)
		assert.Equal(t, int64(1), tieCount(t, lb))

		n, err := lb.TotalMembersInScoreRange(ctx, math.Inf(-1), math.Inf(1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		require.NoError(t, lb.RemoveMembersInScoreRange(ctx, math.Inf(-1), math.Inf(1)))
		assert.Zero(t, tieCount(t, lb))
	})
}

func TestRemoveMembersInScoreRange(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankMembersInLeaderboard(t, lb)

		total, err := lb.TotalMembers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)

		require.NoError(t, lb.RankMemberWithData(ctx, "cheater_1", 100, "c1"))
		require.NoError(t, lb.RankMember(ctx, "cheater_2", 101))
		require.NoError(t, lb.RankMember(ctx, "cheater_3", 102))

		total, err = lb.TotalMembers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(8), total)
		assert.Equal(t, int64(8), tieCount(t, lb))

		require.NoError(t, lb.RemoveMembersInScoreRange(ctx, 100, 102))

		total, err = lb.TotalMembers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(5), total)
		assert.Equal(t, int64(5), tieCount(t, lb))

		leaders, err := lb.Leaders(ctx, 1)
		require.NoError(t, err)
		for _, leader := range leaders {
			assert.Less(t, leader.Score, 100.0)
		}

		_, ok, err := lb.MemberDataFor(ctx, "cheater_1")
		require.NoError(t, err)
		assert.False(t, ok, "member data of removed members is cleaned up")

		assert.ErrorIs(t, lb.RemoveMembersInScoreRange(ctx, 5, 1), leaderboard.ErrInvalidRange)
	})
}

func TestLeaders_Pagination(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankAll(t, lb, tenMembers)

		page1, err := lb.Leaders(ctx, 1, leaderboard.WithPageSize(3))
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 1, 1}, ranksOf(page1))

		page2, err := lb.Leaders(ctx, 2, leaderboard.WithPageSize(3))
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 2}, ranksOf(page2))

		page4, err := lb.Leaders(ctx, 4, leaderboard.WithPageSize(3))
		require.NoError(t, err)
		assert.Equal(t, []int64{3}, ranksOf(page4))

		beyond, err := lb.Leaders(ctx, 5, leaderboard.WithPageSize(3))
		require.NoError(t, err)
		assert.Empty(t, beyond)

		zero, err := lb.Leaders(ctx, 0, leaderboard.WithPageSize(3))
		require.NoError(t, err)
		assert.Equal(t, page1, zero, "page < 1 reads the first page")

		_, err = lb.Leaders(ctx, 1, leaderboard.WithPageSize(0))
		assert.ErrorIs(t, err, leaderboard.ErrInvalidPageSize)

		pages, err := lb.TotalPages(ctx, leaderboard.WithPageSize(3))
		require.NoError(t, err)
		assert.Equal(t, int64(4), pages)

		pages, err = lb.TotalPages(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), pages)
	})
}

func TestAroundMe(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankAll(t, lb, tenMembers)

		window, err := lb.AroundMe(ctx, "member_3", leaderboard.WithPageSize(3))
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 2, 3}, ranksOf(window))
		assert.Equal(t, "member_3", window[1].Member)

		// near the top the window shifts down to stay full
		top, err := lb.AroundMe(ctx, "member_7", leaderboard.WithPageSize(4))
		require.NoError(t, err)
		require.Len(t, top, 4)
		assert.Equal(t, []int64{1, 1, 1, 1}, ranksOf(top))

		// near the bottom it shifts up
		bottom, err := lb.AroundMe(ctx, "member_10", leaderboard.WithPageSize(5))
		require.NoError(t, err)
		require.Len(t, bottom, 5)
		assert.Equal(t, "member_10", bottom[4].Member)
		assert.Equal(t, []int64{2, 2, 2, 3, 3}, ranksOf(bottom))

		wide, err := lb.AroundMe(ctx, "member_3", leaderboard.WithPageSize(50))
		require.NoError(t, err)
		assert.Len(t, wide, 10)

		missing, err := lb.AroundMe(ctx, "nobody", leaderboard.WithPageSize(3))
		require.NoError(t, err)
		assert.Empty(t, missing)
	})
}

func TestExpire_SynchronizedTTL(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankMembersInLeaderboard(t, lb)

		require.NoError(t, lb.Expire(ctx, 3*time.Second))
		for _, c := range lifecycleOf(store, lb) {
			ttl, err := c.TTL(ctx)
			require.NoError(t, err)
			assert.Greater(t, ttl, time.Second)
			assert.LessOrEqual(t, ttl, 3*time.Second)
		}

		assert.ErrorIs(t, lb.Expire(ctx, 0), leaderboard.ErrInvalidTTL)
	})
}

func TestExpireAt_SynchronizedTTL(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankMembersInLeaderboard(t, lb)

		require.NoError(t, lb.ExpireAt(ctx, time.Now().Add(10*time.Second)))
		for _, c := range lifecycleOf(store, lb) {
			ttl, err := c.TTL(ctx)
			require.NoError(t, err)
			assert.Greater(t, ttl, time.Second)
			assert.LessOrEqual(t, ttl, 10*time.Second)
		}
	})
}

func lifecycleOf(store leaderboard.Store, lb *leaderboard.TieRanking) []leaderboard.Expirable {
	return []leaderboard.Expirable{
		store.SortedSet(lb.Name()),
		store.SortedSet(lb.TiesKey()),
		store.MemberData(lb.MemberDataKey()),
	}
}

func TestDelete_Cascade(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankMembersInLeaderboard(t, lb)
		rankAll(t, lb, map[string]float64{"member_6": 50, "member_7": 50})

		for _, c := range lifecycleOf(store, lb) {
			exists, err := c.Exists(ctx)
			require.NoError(t, err)
			assert.True(t, exists)
		}

		require.NoError(t, lb.Delete(ctx))

		for _, c := range lifecycleOf(store, lb) {
			exists, err := c.Exists(ctx)
			require.NoError(t, err)
			assert.False(t, exists)
		}
	})
}

func TestRankMember_Idempotent(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankAll(t, lb, map[string]float64{"a": 10, "b": 20})

		require.NoError(t, lb.RankMember(ctx, "m", 15))
		total1, _ := lb.TotalMembers(ctx)
		ties1 := tieCount(t, lb)
		rank1, _, _ := lb.RankFor(ctx, "m")

		require.NoError(t, lb.RankMember(ctx, "m", 15))
		total2, _ := lb.TotalMembers(ctx)
		rank2, _, _ := lb.RankFor(ctx, "m")

		assert.Equal(t, total1, total2)
		assert.Equal(t, ties1, tieCount(t, lb))
		assert.Equal(t, rank1, rank2)
		assert.Equal(t, int64(2), rank2)
	})
}

func TestAscendingOrder(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{Order: core.Ascending})
		rankAll(t, lb, map[string]float64{"fast": 9.5, "tied_a": 10.25, "tied_b": 10.25, "slow": 12})

		leaders, err := lb.Leaders(ctx, 1)
		require.NoError(t, err)
		require.Len(t, leaders, 4)
		assert.Equal(t, "fast", leaders[0].Member)
		assert.Equal(t, []int64{1, 2, 2, 3}, ranksOf(leaders))
		assert.Equal(t, "tied_a", leaders[1].Member, "ascending ties list members in ascending order")

		rank, ok, err := lb.RankFor(ctx, "slow")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, int64(3), rank)

		band, err := lb.MembersFromScoreRange(ctx, 10, 12)
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 2, 3}, ranksOf(band))
	})
}

func TestMemberData(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankMembersInLeaderboard(t, lb)

		leaders, err := lb.Leaders(ctx, 1, leaderboard.WithMemberData())
		require.NoError(t, err)
		require.Len(t, leaders, 5)
		assert.Equal(t, "member_5", leaders[0].Member)
		assert.Equal(t, `{"member_name":"Leaderboard member 5"}`, leaders[0].MemberData)

		plain, err := lb.Leaders(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, plain[0].MemberData)

		require.NoError(t, lb.UpdateMemberData(ctx, "member_5", "updated"))
		rec, ok, err := lb.ScoreAndRankFor(ctx, "member_5", leaderboard.WithMemberData())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "updated", rec.MemberData)
		assert.Equal(t, int64(1), rec.Rank)

		require.NoError(t, lb.RemoveMemberData(ctx, "member_5"))
		_, ok, err = lb.MemberDataFor(ctx, "member_5")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, lb.RemoveMember(ctx, "member_4"))
		_, ok, err = lb.MemberDataFor(ctx, "member_4")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestChangeScoreFor(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		rankAll(t, lb, map[string]float64{"a": 10, "b": 10})

		score, err := lb.ChangeScoreFor(ctx, "a", 5)
		require.NoError(t, err)
		assert.Equal(t, 15.0, score)
		assert.Equal(t, int64(2), tieCount(t, lb))

		score, err = lb.ChangeScoreFor(ctx, "new", 3)
		require.NoError(t, err)
		assert.Equal(t, 3.0, score)

		score, err = lb.ChangeScoreFor(ctx, "b", 5)
		require.NoError(t, err)
		assert.Equal(t, 15.0, score)
		assert.Equal(t, int64(2), tieCount(t, lb), "10 vacated, 15 shared")

		rank, _, err := lb.RankFor(ctx, "new")
		require.NoError(t, err)
		assert.Equal(t, int64(2), rank)
	})
}

func TestRankMemberIf(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})
		best := core.BestScoreWins(core.Descending)

		ranked, err := lb.RankMemberIf(ctx, best, "a", 10, "")
		require.NoError(t, err)
		assert.True(t, ranked)

		ranked, err = lb.RankMemberIf(ctx, best, "a", 5, "ignored")
		require.NoError(t, err)
		assert.False(t, ranked)
		score, _, _ := lb.ScoreFor(ctx, "a")
		assert.Equal(t, 10.0, score)
		_, ok, _ := lb.MemberDataFor(ctx, "a")
		assert.False(t, ok)

		ranked, err = lb.RankMemberIf(ctx, best, "a", 20, "pb")
		require.NoError(t, err)
		assert.True(t, ranked)
		data, _, _ := lb.MemberDataFor(ctx, "a")
		assert.Equal(t, "pb", data)
		assert.Equal(t, int64(1), tieCount(t, lb))
	})
}

func TestRankMembersAndReads(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{PageSize: 2})
		require.NoError(t, lb.RankMembers(ctx,
			core.Entry{Member: "a", Score: 3},
			core.Entry{Member: "b", Score: 2},
			core.Entry{Member: "c", Score: 2},
			core.Entry{Member: "d", Score: 1},
		))

		all, err := lb.AllMembers(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 2, 3}, ranksOf(all))

		mid, err := lb.MembersFromRankRange(ctx, 2, 3)
		require.NoError(t, err)
		require.Len(t, mid, 2)
		assert.Equal(t, []int64{2, 2}, ranksOf(mid))

		_, err = lb.MembersFromRankRange(ctx, 3, 2)
		assert.ErrorIs(t, err, leaderboard.ErrInvalidRange)

		at, ok, err := lb.MemberAt(ctx, 4)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "d", at.Member)
		assert.Equal(t, int64(3), at.Rank)

		_, ok, err = lb.MemberAt(ctx, 5)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = lb.MemberAt(ctx, 0)
		require.NoError(t, err)
		assert.False(t, ok)

		page, err := lb.PageFor(ctx, "d")
		require.NoError(t, err)
		assert.Equal(t, int64(2), page)

		page, err = lb.PageFor(ctx, "a", leaderboard.WithPageSize(10))
		require.NoError(t, err)
		assert.Equal(t, int64(1), page)

		page, err = lb.PageFor(ctx, "nobody")
		require.NoError(t, err)
		assert.Zero(t, page)

		list, err := lb.RankedInList(ctx, []string{"d", "nobody", "b"})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "d", list[0].Member)
		assert.Equal(t, int64(3), list[0].Rank)
		assert.Equal(t, "b", list[1].Member)
		assert.Equal(t, int64(2), list[1].Rank)

		n, err := lb.TotalMembersInScoreRange(ctx, 2, 3)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		exists, err := lb.CheckMember(ctx, "c")
		require.NoError(t, err)
		assert.True(t, exists)
	})
}

func TestReadsOnEmptyBoard(t *testing.T) {
	stores(t, func(t *testing.T, store leaderboard.Store) {
		ctx := context.Background()
		lb := newBoard(t, store, leaderboard.Config{})

		leaders, err := lb.Leaders(ctx, 1)
		require.NoError(t, err)
		assert.Empty(t, leaders)

		pages, err := lb.TotalPages(ctx)
		require.NoError(t, err)
		assert.Zero(t, pages)

		require.NoError(t, lb.Delete(ctx))
		require.NoError(t, lb.Expire(ctx, time.Second))
	})
}
