package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/local/assistcore/internal/ai"
)

func ok(provider, text string, calls *[]string) Step {
	return Step{Provider: provider, Model: provider + "-model", Run: func(context.Context) (ai.Response, error) {
		*calls = append(*calls, provider)
		return ai.Response{Content: text, Metadata: &ai.Metadata{ProviderID: ai.ProviderID(provider)}}, nil
	}}
}

func failing(provider string, err error, calls *[]string) Step {
	return Step{Provider: provider, Model: provider + "-model", Run: func(context.Context) (ai.Response, error) {
		*calls = append(*calls, provider)
		return ai.Response{}, err
	}}
}

func TestChain_FirstSuccessWins(t *testing.T) {
	var calls []string
	res, err := NewChain().Run(context.Background(), "req-1", []Step{
		failing("openai", &ai.HTTPError{StatusCode: 503, Provider: ai.ProviderOpenAI}, &calls),
		ok("anthropic", "from anthropic", &calls),
		ok("mock", "from mock", &calls),
	})
	require.NoError(t, err)
	assert.Equal(t, "from anthropic", res.Response.Content)
	assert.Equal(t, "anthropic", res.Provider)
	assert.Equal(t, "anthropic-model", res.Model)
	assert.Equal(t, []string{"openai", "anthropic"}, calls, "later steps never run after a success")
	require.Len(t, res.Failures, 1)
	assert.Equal(t, FailureTransport, res.Failures[0].Kind)
}

func TestChain_Exhausted(t *testing.T) {
	var calls []string
	cfgErr := &ai.ConfigError{Provider: ai.ProviderGemini, Missing: "GEMINI_API_KEY"}
	_, err := NewChain().Run(context.Background(), "req-2", []Step{
		failing("gemini", cfgErr, &calls),
		failing("huggingface", &ai.ParseError{Provider: ai.ProviderHuggingFace, Reason: "no text"}, &calls),
	})
	var exhausted *ExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 2)
	assert.Equal(t, FailureConfig, exhausted.Attempts[0].Kind)
	assert.Equal(t, FailureParse, exhausted.Attempts[1].Kind)
	assert.ErrorIs(t, err, cfgErr)
	assert.Equal(t, []string{"gemini", "huggingface"}, calls)
}

func TestChain_RefusalFallsBack(t *testing.T) {
	var calls []string
	refused := fmt.Errorf("anthropic claude-x: %w", ai.ErrContentRefused)
	res, err := NewChain().Run(context.Background(), "req-r", []Step{
		failing("anthropic", refused, &calls),
		ok("mock", "local", &calls),
	})
	require.NoError(t, err)
	assert.Equal(t, "mock", res.Provider)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, FailureRefused, res.Failures[0].Kind)
	assert.False(t, isTransientError(refused), "a refusal is not an outage")
}

func TestChain_NoSteps(t *testing.T) {
	_, err := NewChain().Run(context.Background(), "req", nil)
	assert.ErrorIs(t, err, ErrNoSteps)
}

func TestChain_AttemptTimeoutFallsBack(t *testing.T) {
	var calls []string
	slow := Step{Provider: "openai", Model: "gpt", Timeout: 20 * time.Millisecond, Run: func(ctx context.Context) (ai.Response, error) {
		<-ctx.Done()
		return ai.Response{}, errors.New("request aborted")
	}}
	res, err := NewChain().Run(context.Background(), "req-3", []Step{slow, ok("mock", "local", &calls)})
	require.NoError(t, err)
	assert.Equal(t, "mock", res.Provider)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, FailureTimeout, res.Failures[0].Kind)
}

func TestChain_PanicAndEmptyAreFailures(t *testing.T) {
	var calls []string
	panicky := Step{Provider: "anthropic", Model: "m", Run: func(context.Context) (ai.Response, error) { panic("boom") }}
	empty := ok("huggingface", "   ", &calls)
	noRunner := Step{Provider: "gemini", Model: "m"}
	res, err := NewChain().Run(context.Background(), "req-4", []Step{panicky, empty, noRunner, ok("mock", "local", &calls)})
	require.NoError(t, err)
	assert.Equal(t, "local", res.Response.Content)
	require.Len(t, res.Failures, 3)
	assert.Equal(t, FailureParse, res.Failures[1].Kind)
	assert.ErrorIs(t, res.Failures[1], ErrEmptyResponse)
}

type fakeBreaker struct {
	mu     sync.Mutex
	open   map[string]bool
	opened []string
	closed []string
}

func (f *fakeBreaker) IsOpen(_ context.Context, provider, _ string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.open[provider]
}

func (f *fakeBreaker) Open(_ context.Context, provider, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, provider)
}

func (f *fakeBreaker) Close(_ context.Context, provider, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, provider)
}

func TestChain_Breaker(t *testing.T) {
	var calls []string
	br := &fakeBreaker{open: map[string]bool{"openai": true, "mock": true}}
	steps := []Step{
		ok("openai", "skipped", &calls),
		failing("anthropic", &ai.HTTPError{StatusCode: 500, Provider: ai.ProviderAnthropic}, &calls),
		failing("huggingface", &ai.HTTPError{StatusCode: 400, Provider: ai.ProviderHuggingFace}, &calls),
		ok("gemini", "gemini text", &calls),
	}
	res, err := NewChain(WithBreaker(br)).Run(context.Background(), "req-5", steps)
	require.NoError(t, err)
	assert.Equal(t, "gemini", res.Provider)
	assert.Equal(t, []string{"anthropic", "huggingface", "gemini"}, calls)
	assert.Equal(t, FailureBreakerOpen, res.Failures[0].Kind)
	assert.Equal(t, []string{"anthropic"}, br.opened, "only 5xx opens the breaker")
	assert.Equal(t, []string{"gemini"}, br.closed)

	// terminal steps ignore the breaker
	calls = nil
	term := ok("mock", "local", &calls)
	term.Terminal = true
	res, err = NewChain(WithBreaker(br)).Run(context.Background(), "req-6", []Step{term})
	require.NoError(t, err)
	assert.Equal(t, "local", res.Response.Content)
}

type denyAll struct{ asked int }

func (d *denyAll) Allow(string, string) (func(), bool) {
	d.asked++
	return func() {}, false
}

func TestChain_LimiterThrottles(t *testing.T) {
	var calls []string
	lim := &denyAll{}
	term := ok("mock", "local", &calls)
	term.Terminal = true
	res, err := NewChain(WithLimiter(lim)).Run(context.Background(), "req-7", []Step{ok("openai", "x", &calls), term})
	require.NoError(t, err)
	assert.Equal(t, "mock", res.Provider)
	assert.Equal(t, 1, lim.asked)
	assert.Equal(t, FailureRateLimited, res.Failures[0].Kind)
	assert.Equal(t, []string{"mock"}, calls)
}

func TestChain_CanceledParentStillReachesTerminal(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := Step{Provider: "openai", Model: "m", Run: func(ctx context.Context) (ai.Response, error) {
		return ai.Response{}, ctx.Err()
	}}
	local := Step{Provider: "mock", Model: "local", Terminal: true, Run: func(context.Context) (ai.Response, error) {
		return ai.Response{Content: "still here"}, nil
	}}
	res, err := NewChain().Run(ctx, "req-8", []Step{provider, local})
	require.NoError(t, err)
	assert.Equal(t, "still here", res.Response.Content)
	assert.Equal(t, FailureCanceled, res.Failures[0].Kind)
}

func TestChain_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	var calls []string
	_, err := NewChain(WithTracer(tp.Tracer("test"))).Run(context.Background(), "req-9", []Step{
		failing("openai", errors.New("connection reset by peer"), &calls),
		ok("mock", "local", &calls),
	})
	require.NoError(t, err)

	var names []string
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"dispatcher.attempt", "dispatcher.attempt", "dispatcher.Chain.Run"}, names)
}
