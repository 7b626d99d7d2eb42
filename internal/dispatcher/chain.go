// Package dispatcher runs an ordered list of provider attempts and returns the first success.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/local/assistcore/internal/ai"
	mpkg "github.com/local/assistcore/internal/metrics"
)

// Step is one attempt in a chain.
type Step struct {
	Provider string
	Model    string
	// Timeout bounds this attempt only; zero means the caller's context alone.
	Timeout time.Duration
	// Terminal steps skip the breaker and the admission limiter. The local responder is
	// terminal so it can always answer.
	Terminal bool
	Run      func(ctx context.Context) (ai.Response, error)
}

// Admitter decides whether a provider call may start now.
type Admitter interface {
	Allow(provider, model string) (release func(), ok bool)
}

// Result is the winning response plus the failed attempts that preceded it.
type Result struct {
	Response ai.Response
	Provider string
	Model    string
	Failures []*StepError
}

// Chain is a "first success" combinator over Steps.
type Chain struct {
	breaker Breaker
	limiter Admitter
	tracer  trace.Tracer
}

type Option func(*Chain)

func WithBreaker(b Breaker) Option { return func(c *Chain) { c.breaker = b } }

func WithLimiter(a Admitter) Option { return func(c *Chain) { c.limiter = a } }

func WithTracer(t trace.Tracer) Option { return func(c *Chain) { c.tracer = t } }

func NewChain(opts ...Option) *Chain {
	c := &Chain{tracer: otel.Tracer("github.com/local/assistcore/internal/dispatcher")}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Run tries steps in order and returns the first success. Failures of any kind move on to
// the next step; only when every step failed is an *ExhaustedError returned.
func (c *Chain) Run(ctx context.Context, requestID string, steps []Step) (Result, error) {
	if len(steps) == 0 {
		return Result{}, ErrNoSteps
	}
	ctx, span := c.tracer.Start(ctx, "dispatcher.Chain.Run", trace.WithAttributes(
		attribute.String("request_id", requestID),
		attribute.Int("steps", len(steps)),
	))
	defer span.End()

	var res Result
	for i, st := range steps {
		log.Info().
			Str("request_id", requestID).
			Str("provider", st.Provider).
			Str("model", st.Model).
			Msgf("attempting step [%d/%d]", i+1, len(steps))

		resp, err := c.attempt(ctx, st)
		if err == nil {
			res.Response, res.Provider, res.Model = resp, st.Provider, st.Model
			span.SetAttributes(
				attribute.String("provider", st.Provider),
				attribute.Int("failed_attempts", len(res.Failures)),
			)
			return res, nil
		}

		kind := ClassifyFailure(err)
		res.Failures = append(res.Failures, &StepError{Provider: st.Provider, Model: st.Model, Kind: kind, Err: err})

		next := "none"
		if i+1 < len(steps) {
			next = steps[i+1].Provider
		}
		mpkg.IncFallback(st.Provider, next, string(kind))
		log.Warn().
			Err(err).
			Str("request_id", requestID).
			Str("provider", st.Provider).
			Str("model", st.Model).
			Str("reason", string(kind)).
			Str("next", next).
			Msg("step failed - falling back")
	}

	span.SetStatus(codes.Error, "all steps exhausted")
	log.Error().
		Str("request_id", requestID).
		Int("attempts", len(res.Failures)).
		Msg("all steps exhausted")
	return res, &ExhaustedError{Attempts: res.Failures}
}

func (c *Chain) attempt(ctx context.Context, st Step) (ai.Response, error) {
	if !st.Terminal {
		if c.breaker != nil && c.breaker.IsOpen(ctx, st.Provider, st.Model) {
			mpkg.BreakerSkipped(st.Provider, st.Model)
			return ai.Response{}, ErrBreakerOpen
		}
		if c.limiter != nil {
			release, ok := c.limiter.Allow(st.Provider, st.Model)
			if !ok {
				return ai.Response{}, ErrThrottled
			}
			defer release()
		}
	}

	actx := ctx
	if st.Timeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, st.Timeout)
		defer cancel()
	}
	actx, span := c.tracer.Start(actx, "dispatcher.attempt", trace.WithAttributes(
		attribute.String("provider", st.Provider),
		attribute.String("model", st.Model),
	))
	defer span.End()

	start := time.Now()
	resp, err := runStep(actx, st)
	dur := time.Since(start)

	if err == nil && strings.TrimSpace(resp.Content) == "" {
		err = ErrEmptyResponse
	}
	if err != nil && errors.Is(actx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
		err = fmt.Errorf("attempt exceeded %s: %w: %w", st.Timeout, context.DeadlineExceeded, err)
	}

	result := "success"
	if err != nil {
		result = string(ClassifyFailure(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, result)
	}
	mpkg.ObserveProvider(st.Provider, st.Model, result, dur)

	if !st.Terminal && c.breaker != nil {
		switch {
		case err == nil:
			c.breaker.Close(ctx, st.Provider, st.Model)
		case isTransientError(err):
			c.breaker.Open(ctx, st.Provider, st.Model)
		}
	}

	if err != nil {
		return ai.Response{}, err
	}
	log.Debug().
		Str("provider", st.Provider).
		Str("model", st.Model).
		Dur("duration", dur).
		Msg("step succeeded")
	return resp, nil
}

// runStep converts a panicking step into an ordinary failure.
func runStep(ctx context.Context, st Step) (resp ai.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("step %s panicked: %v", st.Provider, r)
		}
	}()
	if st.Run == nil {
		return ai.Response{}, fmt.Errorf("step %s has no runner", st.Provider)
	}
	return st.Run(ctx)
}
