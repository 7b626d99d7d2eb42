package statuscheck

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/config"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newVendor(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		switch {
		case r.URL.Path == "/v1/models" && r.Header.Get("x-api-key") == "bad":
			w.WriteHeader(http.StatusUnauthorized)
		case r.URL.Path == "/models" && r.Header.Get("Authorization") == "Bearer sk-ok":
			_, _ = w.Write([]byte(`{"data":[]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestChecker_Providers(t *testing.T) {
	srv, hits := newVendor(t)
	c := New(Options{Providers: config.ProvidersConfig{
		OpenAI:    ai.Settings{APIKey: "sk-ok", BaseURL: srv.URL},
		Anthropic: ai.Settings{APIKey: "bad", BaseURL: srv.URL},
	}})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, c.Healthy(ctx, ai.ProviderOpenAI))
	assert.Equal(t, Status{OK: false, Message: "HTTP 401"}, c.Provider(ctx, ai.ProviderAnthropic))
	assert.Equal(t, Status{OK: false, Message: "API key missing"}, c.Provider(ctx, ai.ProviderHuggingFace))
	assert.True(t, c.Healthy(ctx, ai.ProviderMock))
	require.EqualValues(t, 2, hits.Load())

	c.Healthy(ctx, ai.ProviderOpenAI)
	assert.EqualValues(t, 2, hits.Load(), "cached")

	now = now.Add(time.Minute)
	c.Healthy(ctx, ai.ProviderOpenAI)
	assert.EqualValues(t, 3, hits.Load(), "stale entry probed again")
}

func TestChecker_GeminiProxy(t *testing.T) {
	proxy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	t.Cleanup(proxy.Close)
	c := New(Options{Providers: config.ProvidersConfig{GeminiProxyURL: proxy.URL}})
	assert.True(t, c.Healthy(context.Background(), ai.ProviderGemini))
}

func TestChecker_Summary(t *testing.T) {
	srv, _ := newVendor(t)
	c := New(Options{
		Redis:     pingFunc(func(context.Context) error { return errors.New("connection refused") }),
		Providers: config.ProvidersConfig{OpenAI: ai.Settings{APIKey: "sk-ok", BaseURL: srv.URL}},
	})
	s := c.Summary(context.Background())

	assert.Equal(t, Status{OK: false, Message: "connection refused"}, s.Redis)
	assert.Equal(t, Status{OK: false, Message: "Bucket not configured"}, s.Knowledge)
	assert.True(t, s.Providers[ai.ProviderOpenAI].OK)
	assert.True(t, s.Providers[ai.ProviderMock].OK)
	assert.False(t, s.Providers[ai.ProviderGemini].OK)
	assert.Len(t, s.Providers, len(ai.Providers))
}

func TestTrimError(t *testing.T) {
	assert.Empty(t, trimError(nil))
	long := errors.New(string(make([]byte, 200)))
	assert.Len(t, trimError(long), 120)
	assert.Equal(t, "timeout", trimError(context.DeadlineExceeded))
}
