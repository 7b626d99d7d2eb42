package dispatcher

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	mpkg "github.com/local/assistcore/internal/metrics"
)

// Breaker keeps failing provider:model pairs out of the chain for a cooldown.
type Breaker interface {
	IsOpen(ctx context.Context, provider, model string) bool
	Open(ctx context.Context, provider, model string)
	Close(ctx context.Context, provider, model string)
}

// CircuitBreaker manages circuit breaker state in Redis so every replica shares it.
// Redis errors never block a request: an unreadable breaker counts as closed.
type CircuitBreaker struct {
	redis       *redis.Client
	baseBackoff time.Duration
	maxBackoff  time.Duration
	now         func() time.Time
}

// NewCircuitBreaker creates a new circuit breaker
func NewCircuitBreaker(redisClient *redis.Client, baseBackoff, maxBackoff time.Duration) *CircuitBreaker {
	if baseBackoff <= 0 {
		baseBackoff = 30 * time.Second
	}
	if maxBackoff < baseBackoff {
		maxBackoff = baseBackoff
	}
	return &CircuitBreaker{
		redis:       redisClient,
		baseBackoff: baseBackoff,
		maxBackoff:  maxBackoff,
		now:         time.Now,
	}
}

func breakerKey(provider, model string) string {
	return fmt.Sprintf("cb:%s:%s", strings.ToLower(provider), strings.ToLower(model))
}

// Backoff returns the cooldown after the given number of consecutive failures:
// base, 2x base, 4x base... capped at max.
func (cb *CircuitBreaker) Backoff(failures int) time.Duration {
	backoff := cb.baseBackoff
	for i := 1; i < failures; i++ {
		backoff *= 2
		if backoff >= cb.maxBackoff {
			return cb.maxBackoff
		}
	}
	return backoff
}

// Open opens the circuit breaker for a provider:model combination
func (cb *CircuitBreaker) Open(ctx context.Context, provider, model string) {
	ctx = context.WithoutCancel(ctx)
	key := breakerKey(provider, model)

	failures, err := cb.redis.HIncrBy(ctx, key, "failures", 1).Result()
	if err != nil {
		log.Debug().Err(err).Str("provider", provider).Str("model", model).Msg("circuit breaker unavailable")
		return
	}

	backoff := cb.Backoff(int(failures))
	now := cb.now()
	retryAt := now.Add(backoff)

	pipe := cb.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"state":     "open",
		"retry_at":  retryAt.Unix(),
		"opened_at": now.Unix(),
	})
	// keep the failure count around long enough to keep escalating
	pipe.Expire(ctx, key, 2*cb.maxBackoff)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Debug().Err(err).Str("provider", provider).Str("model", model).Msg("circuit breaker write failed")
		return
	}
	mpkg.BreakerOpened(provider, model)

	log.Warn().
		Str("provider", provider).
		Str("model", model).
		Dur("cooldown", backoff).
		Int64("failures", failures).
		Time("retry_at", retryAt).
		Msg("circuit breaker OPENED")
}

// IsOpen checks if circuit breaker is open for a provider:model
func (cb *CircuitBreaker) IsOpen(ctx context.Context, provider, model string) bool {
	key := breakerKey(provider, model)

	vals, err := cb.redis.HMGet(ctx, key, "state", "retry_at").Result()
	if err != nil || len(vals) != 2 {
		// No breaker record → closed by default
		return false
	}
	state, _ := vals[0].(string)
	if state != "open" {
		return false
	}

	retryAtStr, _ := vals[1].(string)
	retryAt, _ := strconv.ParseInt(retryAtStr, 10, 64)
	if cb.now().Unix() >= retryAt {
		// Cooldown expired → half-open lets one probe through
		cb.redis.HSet(context.WithoutCancel(ctx), key, "state", "half_open")

		log.Info().
			Str("provider", provider).
			Str("model", model).
			Msg("circuit breaker moved to HALF-OPEN")
		return false
	}

	// Still in cooldown
	return true
}

// Close closes (resets) the circuit breaker on success
func (cb *CircuitBreaker) Close(ctx context.Context, provider, model string) {
	ctx = context.WithoutCancel(ctx)
	key := breakerKey(provider, model)

	n, err := cb.redis.Del(ctx, key).Result()
	if err != nil || n == 0 {
		// Already closed
		return
	}
	mpkg.BreakerClosed(provider, model)

	log.Info().
		Str("provider", provider).
		Str("model", model).
		Msg("circuit breaker CLOSED (reset)")
}
