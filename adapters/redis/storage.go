package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tierank/core"
	"tierank/leaderboard"

	"github.com/redis/go-redis/v9"
)

// Config holds Redis connection configuration
type Config struct {
	Addr         string        `json:"addr" env:"TIERANK_REDIS_ADDR"`
	Password     string        `json:"password" env:"TIERANK_REDIS_PASSWORD"`
	DB           int           `json:"db" env:"TIERANK_REDIS_DB"`
	PoolSize     int           `json:"pool_size" env:"TIERANK_REDIS_POOL_SIZE"`
	MinIdleConns int           `json:"min_idle_conns" env:"TIERANK_REDIS_MIN_IDLE_CONNS"`
	DialTimeout  time.Duration `json:"dial_timeout" env:"TIERANK_REDIS_DIAL_TIMEOUT"`
	ReadTimeout  time.Duration `json:"read_timeout" env:"TIERANK_REDIS_READ_TIMEOUT"`
	WriteTimeout time.Duration `json:"write_timeout" env:"TIERANK_REDIS_WRITE_TIMEOUT"`
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		Addr:         "localhost:6379",
		Password:     "",
		DB:           0,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Store implements leaderboard.Store on Redis.
// Data structure:
//   - {name} -> sorted set, member -> score (main board)
//   - {name}:ties -> sorted set, formatted score -> score (distinct scores)
//   - {name}:member_data -> hash, member -> opaque payload
type Store struct {
	client redis.UniversalClient
}

// New creates a new Redis-backed store with the provided configuration
func New(config Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient creates a Store using an existing Redis client (useful for testing)
func NewWithClient(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks that Redis answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) SortedSet(key string) leaderboard.SortedSet {
	return &sortedSet{client: s.client, key: key}
}

func (s *Store) MemberData(key string) leaderboard.MemberData {
	return &hash{client: s.client, key: key}
}

// Delete removes all keys with a single DEL, which Redis applies atomically.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete keys: %w", err)
	}
	return nil
}

// keyLifecycle implements leaderboard.Expirable for any key.
type keyLifecycle struct {
	client redis.UniversalClient
	key    string
}

func (k keyLifecycle) Exists(ctx context.Context) (bool, error) {
	n, err := k.client.Exists(ctx, k.key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (k keyLifecycle) Expire(ctx context.Context, ttl time.Duration) error {
	return k.client.Expire(ctx, k.key, ttl).Err()
}

func (k keyLifecycle) ExpireAt(ctx context.Context, at time.Time) error {
	return k.client.ExpireAt(ctx, k.key, at).Err()
}

func (k keyLifecycle) TTL(ctx context.Context) (time.Duration, error) {
	return k.client.TTL(ctx, k.key).Result()
}

type sortedSet struct {
	client redis.UniversalClient
	key    string
}

func (z *sortedSet) life() keyLifecycle { return keyLifecycle{client: z.client, key: z.key} }

func (z *sortedSet) Upsert(ctx context.Context, member string, score float64) error {
	return z.client.ZAdd(ctx, z.key, redis.Z{Score: score, Member: member}).Err()
}

func (z *sortedSet) Remove(ctx context.Context, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return z.client.ZRem(ctx, z.key, toArgs(members)...).Err()
}

func (z *sortedSet) RemoveRangeByScore(ctx context.Context, min, max float64) error {
	return z.client.ZRemRangeByScore(ctx, z.key, core.FormatScore(min), core.FormatScore(max)).Err()
}

func (z *sortedSet) Score(ctx context.Context, member string) (float64, bool, error) {
	score, err := z.client.ZScore(ctx, z.key, member).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return score, true, nil
}

func (z *sortedSet) Rank(ctx context.Context, member string, order core.SortOrder) (int64, bool, error) {
	var cmd *redis.IntCmd
	if order == core.Descending {
		cmd = z.client.ZRevRank(ctx, z.key, member)
	} else {
		cmd = z.client.ZRank(ctx, z.key, member)
	}
	rank, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rank, true, nil
}

func (z *sortedSet) RangeByPosition(ctx context.Context, start, stop int64, order core.SortOrder) ([]core.Entry, error) {
	var cmd *redis.ZSliceCmd
	if order == core.Descending {
		cmd = z.client.ZRevRangeWithScores(ctx, z.key, start, stop)
	} else {
		cmd = z.client.ZRangeWithScores(ctx, z.key, start, stop)
	}
	return toEntries(cmd)
}

func (z *sortedSet) RangeByScore(ctx context.Context, min, max float64, order core.SortOrder) ([]core.Entry, error) {
	by := &redis.ZRangeBy{Min: core.FormatScore(min), Max: core.FormatScore(max)}
	var cmd *redis.ZSliceCmd
	if order == core.Descending {
		cmd = z.client.ZRevRangeByScoreWithScores(ctx, z.key, by)
	} else {
		cmd = z.client.ZRangeByScoreWithScores(ctx, z.key, by)
	}
	return toEntries(cmd)
}

func (z *sortedSet) Count(ctx context.Context) (int64, error) {
	return z.client.ZCard(ctx, z.key).Result()
}

func (z *sortedSet) CountInRange(ctx context.Context, min, max float64) (int64, error) {
	return z.client.ZCount(ctx, z.key, core.FormatScore(min), core.FormatScore(max)).Result()
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
	client redis.UniversalClient
	key    string
}

func (h *hash) life() keyLifecycle { return keyLifecycle{client: h.client, key: h.key} }

func (h *hash) Set(ctx context.Context, member, data string) error {
	return h.client.HSet(ctx, h.key, member, data).Err()
}

func (h *hash) Get(ctx context.Context, member string) (string, bool, error) {
	v, err := h.client.HGet(ctx, h.key, member).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (h *hash) GetMany(ctx context.Context, members ...string) (map[string]string, error) {
	out := make(map[string]string, len(members))
	if len(members) == 0 {
		return out, nil
	}
	vals, err := h.client.HMGet(ctx, h.key, members...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range vals {
		if s, ok := v.(string); ok {
			out[members[i]] = s
		}
	}
	return out, nil
}

func (h *hash) Remove(ctx context.Context, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return h.client.HDel(ctx, h.key, members...).Err()
}

func (h *hash) Exists(ctx context.Context) (bool, error) { return h.life().Exists(ctx) }
func (h *hash) Expire(ctx context.Context, ttl time.Duration) error {
	return h.life().Expire(ctx, ttl)
}
func (h *hash) ExpireAt(ctx context.Context, at time.Time) error {
	return h.life().ExpireAt(ctx, at)
}
func (h *hash) TTL(ctx context.Context) (time.Duration, error) { return h.life().TTL(ctx) }

func toArgs(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}

func toEntries(cmd *redis.ZSliceCmd) ([]core.Entry, error) {
	zs, err := cmd.Result()
	if err != nil {
		return nil, err
	}
	out := make([]core.Entry, 0, len(zs))
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			return nil, fmt.Errorf("unexpected member type %T from Redis", z.Member)
		}
		out = append(out, core.Entry{Member: member, Score: z.Score})
	}
	return out, nil
}

var (
	_ leaderboard.Store  = (*Store)(nil)
	_ leaderboard.Pinger = (*Store)(nil)
)
