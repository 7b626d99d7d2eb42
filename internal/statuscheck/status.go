// Package statuscheck probes the external systems the assistant depends on.
package statuscheck

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/assistcore/internal/ai"
	"github.com/local/assistcore/internal/config"
)

// RedisPinger models the minimal Redis capability we need for status checks.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// BucketChecker reports whether the knowledge bucket is reachable.
type BucketChecker interface {
	Head(ctx context.Context) error
}

// Checker aggregates health checks for providers and infrastructure. Provider results are
// cached for cacheTTL so per-request availability checks stay cheap.
type Checker struct {
	redis      RedisPinger
	bucket     BucketChecker
	providers  config.ProvidersConfig
	httpClient *http.Client
	cacheTTL   time.Duration
	now        func() time.Time

	mu    sync.Mutex
	cache map[ai.ProviderID]cached
}

type cached struct {
	status Status
	at     time.Time
}

// Options configures the Checker.
type Options struct {
	Redis      RedisPinger
	Bucket     BucketChecker
	Providers  config.ProvidersConfig
	HTTPClient *http.Client
	CacheTTL   time.Duration
}

// Status represents the readiness of a subsystem.
type Status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// Summary bundles all subsystem statuses for /health.
type Summary struct {
	Redis     Status                   `json:"redis"`
	Knowledge Status                   `json:"knowledge"`
	Providers map[ai.ProviderID]Status `json:"providers"`
}

// New creates a new Checker with the provided options.
func New(opts Options) *Checker {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Checker{
		redis:      opts.Redis,
		bucket:     opts.Bucket,
		providers:  opts.Providers,
		httpClient: client,
		cacheTTL:   ttl,
		now:        time.Now,
		cache:      make(map[ai.ProviderID]cached),
	}
}

// Summary returns the current status snapshot. Providers are probed concurrently.
func (c *Checker) Summary(ctx context.Context) Summary {
	s := Summary{
		Redis:     c.checkRedis(ctx),
		Knowledge: c.checkBucket(ctx),
		Providers: make(map[ai.ProviderID]Status),
	}
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, p := range ai.Providers {
		if p == ai.ProviderMock {
			continue
		}
		wg.Add(1)
		go func(p ai.ProviderID) {
			defer wg.Done()
			st := c.Provider(ctx, p)
			mu.Lock()
			s.Providers[p] = st
			mu.Unlock()
		}(p)
	}
	wg.Wait()
	s.Providers[ai.ProviderMock] = Status{OK: true, Message: "Always available"}
	return s
}

// Healthy reports whether p answered its last probe.
func (c *Checker) Healthy(ctx context.Context, p ai.ProviderID) bool {
	return c.Provider(ctx, p).OK
}

// Provider returns p's status, probing when the cached result is stale.
func (c *Checker) Provider(ctx context.Context, p ai.ProviderID) Status {
	if p == ai.ProviderMock {
		return Status{OK: true, Message: "Always available"}
	}
	c.mu.Lock()
	if e, ok := c.cache[p]; ok && c.now().Sub(e.at) < c.cacheTTL {
		c.mu.Unlock()
		return e.status
	}
	c.mu.Unlock()

	st := c.probe(ctx, p)
	if ctx.Err() == nil {
		c.mu.Lock()
		c.cache[p] = cached{status: st, at: c.now()}
		c.mu.Unlock()
	}
	if !st.OK {
		log.Debug().Str("provider", string(p)).Str("reason", st.Message).Msg("provider probe failed")
	}
	return st
}

func (c *Checker) probe(ctx context.Context, p ai.ProviderID) Status {
	if !c.providers.Configured(p) {
		return Status{OK: false, Message: "API key missing"}
	}
	req, err := c.probeRequest(ctx, p)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return Status{OK: false, Message: fmt.Sprintf("HTTP %d", resp.StatusCode)}
	}
	return Status{OK: true, Message: "Available"}
}

// probeRequest builds a cheap authenticated request against each vendor's model listing.
func (c *Checker) probeRequest(ctx context.Context, p ai.ProviderID) (*http.Request, error) {
	s := c.providers.Settings(p)
	var (
		target string
		header = http.Header{}
	)
	switch p {
	case ai.ProviderOpenAI:
		target = baseOr(s.BaseURL, "https://api.openai.com/v1") + "/models?limit=1"
		header.Set("Authorization", "Bearer "+s.APIKey)
	case ai.ProviderAnthropic:
		target = baseOr(s.BaseURL, "https://api.anthropic.com") + "/v1/models?limit=1"
		header.Set("x-api-key", s.APIKey)
		header.Set("anthropic-version", "2023-06-01")
	case ai.ProviderHuggingFace:
		target = baseOr(s.BaseURL, "https://api-inference.huggingface.co") + "/models/" + s.BasicModel
		header.Set("Authorization", "Bearer "+s.APIKey)
	case ai.ProviderGemini:
		if c.providers.GeminiProxyURL != "" {
			target = c.providers.GeminiProxyURL
			break
		}
		target = baseOr(s.BaseURL, "https://generativelanguage.googleapis.com") + "/v1beta/models?pageSize=1"
		header.Set("x-goog-api-key", s.APIKey)
	default:
		return nil, fmt.Errorf("unknown provider %q", p)
	}
	if _, err := url.Parse(target); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	req.Header = header
	return req, nil
}

func baseOr(base, def string) string {
	if base == "" {
		return def
	}
	return strings.TrimRight(base, "/")
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.redis == nil {
		return Status{OK: false, Message: "client unavailable"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := c.redis.Ping(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func (c *Checker) checkBucket(ctx context.Context) Status {
	if c.bucket == nil {
		return Status{OK: false, Message: "Bucket not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := c.bucket.Head(ctx); err != nil {
		return Status{OK: false, Message: trimError(err)}
	}
	return Status{OK: true, Message: "Connected"}
}

func trimError(err error) string {
	if err == nil {
		return ""
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	msg := err.Error()
	if len(msg) > 120 {
		return msg[:120]
	}
	return msg
}
