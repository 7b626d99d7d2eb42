// Package limiter admits outbound provider calls: a token bucket per provider plus a cap on
// in-flight calls per provider:model.
package limiter

import (
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

type Adaptive struct {
	rps         rate.Limit
	burst       int
	maxInflight int

	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	sem     map[string]chan struct{}
}

type Options struct {
	RatePerSecond float64
	Burst         int
	MaxInflight   int
}

func New(opts Options) *Adaptive {
	if opts.MaxInflight <= 0 {
		opts.MaxInflight = 2
	}
	rps := rate.Limit(opts.RatePerSecond)
	if opts.RatePerSecond <= 0 {
		rps = rate.Inf
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	return &Adaptive{
		rps:         rps,
		burst:       opts.Burst,
		maxInflight: opts.MaxInflight,
		buckets:     map[string]*rate.Limiter{},
		sem:         map[string]chan struct{}{},
	}
}

// Allow tries to admit one call to provider/model without waiting. On success the returned
// release func must be called when the call finishes; otherwise it is a no-op and ok is false.
func (a *Adaptive) Allow(provider, model string) (release func(), ok bool) {
	p := strings.ToLower(provider)
	key := p + ":" + strings.ToLower(model)

	a.mu.Lock()
	bucket, found := a.buckets[p]
	if !found {
		bucket = rate.NewLimiter(a.rps, a.burst)
		a.buckets[p] = bucket
	}
	ch, found := a.sem[key]
	if !found {
		ch = make(chan struct{}, a.maxInflight)
		a.sem[key] = ch
	}
	a.mu.Unlock()

	select {
	case ch <- struct{}{}:
	default:
		return func() {}, false
	}
	if !bucket.Allow() {
		<-ch
		return func() {}, false
	}
	var once sync.Once
	return func() { once.Do(func() { <-ch }) }, true
}

// Inflight reports how many admitted calls to provider/model have not been released.
func (a *Adaptive) Inflight(provider, model string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	ch, ok := a.sem[strings.ToLower(provider)+":"+strings.ToLower(model)]
	if !ok {
		return 0
	}
	return len(ch)
}
