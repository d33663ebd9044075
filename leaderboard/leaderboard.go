package leaderboard

import (
	"context"
	"time"

	"tierank/core"
)

// TTL sentinels reported by Expirable.TTL, matching Redis TTL replies.
const (
	NoExpiry   time.Duration = -1
	KeyMissing time.Duration = -2
)

// Expirable is the lifecycle half of a keyed collection.
type Expirable interface {
	Exists(ctx context.Context) (bool, error)
	Expire(ctx context.Context, ttl time.Duration) error
	ExpireAt(ctx context.Context, at time.Time) error
	TTL(ctx context.Context) (time.Duration, error)
}

// SortedSet abstracts one ordered member->score collection in an ordered store.
// Members with equal scores are ordered by member bytes, ascending for
// core.Ascending and reversed for core.Descending.
type SortedSet interface {
	Upsert(ctx context.Context, member string, score float64) error
	Remove(ctx context.Context, members ...string) error
	RemoveRangeByScore(ctx context.Context, min, max float64) error
	Score(ctx context.Context, member string) (float64, bool, error)
	// Rank returns the 0-indexed position of member in order.
	Rank(ctx context.Context, member string, order core.SortOrder) (int64, bool, error)
	// RangeByPosition returns positions start..stop inclusive. Negative
	// indexes count from the end, so 0..-1 is the whole set.
	RangeByPosition(ctx context.Context, start, stop int64, order core.SortOrder) ([]core.Entry, error)
	// RangeByScore returns entries with min <= score <= max in order.
	RangeByScore(ctx context.Context, min, max float64, order core.SortOrder) ([]core.Entry, error)
	Count(ctx context.Context) (int64, error)
	CountInRange(ctx context.Context, min, max float64) (int64, error)
	Expirable
}

// MemberData abstracts the optional member -> opaque payload collection.
type MemberData interface {
	Set(ctx context.Context, member, data string) error
	Get(ctx context.Context, member string) (string, bool, error)
	// GetMany omits members without data from the result.
	GetMany(ctx context.Context, members ...string) (map[string]string, error)
	Remove(ctx context.Context, members ...string) error
	Expirable
}

// Store hands out keyed collections of one ordered store.
type Store interface {
	SortedSet(key string) SortedSet
	MemberData(key string) MemberData
	// Delete removes all keys in one step where the backend allows it.
	Delete(ctx context.Context, keys ...string) error
}

// Pinger is implemented by stores that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}
