package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/orchestrator"
)

// counters outlive their day so late increments near midnight are not lost
const usageTTL = 48 * time.Hour

// RedisUsage counts requests per user per UTC day.
type RedisUsage struct {
	client *redis.Client
	limits map[ai.Tier]int
	now    func() time.Time
}

// NewRedisUsage returns a usage gate with daily limits per tier. A limit <= 0 means unlimited.
func NewRedisUsage(client *redis.Client, basicDaily, plusDaily int) *RedisUsage {
	return &RedisUsage{
		client: client,
		limits: map[ai.Tier]int{ai.TierBasic: basicDaily, ai.TierPlus: plusDaily},
		now:    time.Now,
	}
}

func (u *RedisUsage) key(userID string) string {
	return fmt.Sprintf("usage:%s:%s", userID, u.now().UTC().Format("20060102"))
}

// CheckLimits reports whether userID may make another request today.
func (u *RedisUsage) CheckLimits(ctx context.Context, userID string, tier ai.Tier) (orchestrator.UsageStatus, error) {
	limit := u.limits[tier]
	used, err := u.client.Get(ctx, u.key(userID)).Int()
	if err != nil && !errors.Is(err, redis.Nil) {
		return orchestrator.UsageStatus{}, err
	}
	return orchestrator.UsageStatus{CanUse: limit <= 0 || used < limit, Used: used, Limit: limit}, nil
}

// Increment adds delta to today's counter.
func (u *RedisUsage) Increment(ctx context.Context, userID string, delta int) error {
	key := u.key(userID)
	pipe := u.client.TxPipeline()
	pipe.IncrBy(ctx, key, int64(delta))
	pipe.Expire(ctx, key, usageTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// RedisSubscriptions reads the plan from the user's subscription hash.
type RedisSubscriptions struct {
	client *redis.Client
}

func NewRedisSubscriptions(client *redis.Client) *RedisSubscriptions {
	return &RedisSubscriptions{client: client}
}

func subscriptionKey(userID string) string { return fmt.Sprintf("user:%s:subscription", userID) }

// Tier returns the stored tier; users without a record are basic.
func (s *RedisSubscriptions) Tier(ctx context.Context, userID string) (ai.Tier, error) {
	v, err := s.client.HGet(ctx, subscriptionKey(userID), "tier").Result()
	if errors.Is(err, redis.Nil) {
		return ai.TierBasic, nil
	}
	if err != nil {
		return ai.TierBasic, err
	}
	return ai.ParseTier(v), nil
}

// SetTier records userID's plan.
func (s *RedisSubscriptions) SetTier(ctx context.Context, userID string, tier ai.Tier) error {
	return s.client.HSet(ctx, subscriptionKey(userID), map[string]interface{}{
		"tier":       strings.ToLower(string(tier)),
		"updated_at": time.Now().UTC().Format(time.RFC3339Nano),
	}).Err()
}
