// Package store holds the Redis-backed adapters for usage accounting, subscriptions and
// context memory.
package store

import (
	"context"
	"fmt"

	redis "github.com/redis/go-redis/v9"
)

// Open parses redisURL and verifies the server answers.
func Open(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	c := redis.NewClient(opt)
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return c, nil
}

// Pinger adapts a Redis client to error-returning health checks.
type Pinger struct{ Client *redis.Client }

func (p Pinger) Ping(ctx context.Context) error { return p.Client.Ping(ctx).Err() }
