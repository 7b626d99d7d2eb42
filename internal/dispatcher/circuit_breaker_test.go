package dispatcher

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBreaker(t *testing.T) (*CircuitBreaker, *miniredis.Miniredis, *time.Time) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker(rdb, 30*time.Second, 5*time.Minute)
	cb.now = func() time.Time { return now }
	return cb, mr, &now
}

func TestCircuitBreaker_OpenCooldownHalfOpen(t *testing.T) {
	cb, mr, now := newTestBreaker(t)
	ctx := context.Background()

	assert.False(t, cb.IsOpen(ctx, "openai", "gpt-4o"), "no record means closed")

	cb.Open(ctx, "OpenAI", "GPT-4o")
	assert.True(t, cb.IsOpen(ctx, "openai", "gpt-4o"))
	assert.True(t, mr.Exists("cb:openai:gpt-4o"))

	*now = now.Add(31 * time.Second)
	assert.False(t, cb.IsOpen(ctx, "openai", "gpt-4o"), "cooldown over lets a probe through")
	assert.Equal(t, "half_open", mr.HGet("cb:openai:gpt-4o", "state"))

	cb.Close(ctx, "openai", "gpt-4o")
	assert.False(t, mr.Exists("cb:openai:gpt-4o"))
	assert.False(t, cb.IsOpen(ctx, "openai", "gpt-4o"))
}

func TestCircuitBreaker_EscalatingBackoff(t *testing.T) {
	cb, mr, now := newTestBreaker(t)
	ctx := context.Background()

	cb.Open(ctx, "anthropic", "m")
	cb.Open(ctx, "anthropic", "m")
	cb.Open(ctx, "anthropic", "m")
	assert.Equal(t, "3", mr.HGet("cb:anthropic:m", "failures"))

	*now = now.Add(100 * time.Second)
	assert.True(t, cb.IsOpen(ctx, "anthropic", "m"), "third failure cools down for 120s")
	*now = now.Add(21 * time.Second)
	assert.False(t, cb.IsOpen(ctx, "anthropic", "m"))
}

func TestCircuitBreaker_Backoff(t *testing.T) {
	cb := NewCircuitBreaker(nil, 30*time.Second, 5*time.Minute)
	assert.Equal(t, 30*time.Second, cb.Backoff(1))
	assert.Equal(t, 60*time.Second, cb.Backoff(2))
	assert.Equal(t, 240*time.Second, cb.Backoff(4))
	assert.Equal(t, 5*time.Minute, cb.Backoff(5))
	assert.Equal(t, 5*time.Minute, cb.Backoff(50))
}

func TestCircuitBreaker_RedisDownCountsAsClosed(t *testing.T) {
	cb, mr, _ := newTestBreaker(t)
	mr.Close()
	ctx := context.Background()

	cb.Open(ctx, "gemini", "m")
	assert.False(t, cb.IsOpen(ctx, "gemini", "m"))
	cb.Close(ctx, "gemini", "m")
}

func TestCircuitBreaker_InChain(t *testing.T) {
	cb, _, _ := newTestBreaker(t)
	chain := NewChain(WithBreaker(cb))
	var calls []string
	steps := []Step{
		failing("openai", context.DeadlineExceeded, &calls),
		ok("mock", "local", &calls),
	}

	_, err := chain.Run(context.Background(), "r1", steps)
	require.NoError(t, err)
	_, err = chain.Run(context.Background(), "r2", steps)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai", "mock", "mock"}, calls, "second request skips the cooling provider")
}
