package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	providerReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistcore",
			Name:      "provider_requests_total",
			Help:      "Total provider requests by provider, model and result",
		},
		[]string{"provider", "model", "result"},
	)

	providerLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "assistcore",
			Name:      "provider_request_duration_seconds",
			Help:      "Duration of provider requests by provider and model",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"provider", "model"},
	)

	requests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistcore",
			Name:      "requests_total",
			Help:      "Generate requests by outcome and serving provider",
		},
		[]string{"result", "provider"},
	)

	fallbacks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistcore",
			Name:      "fallbacks_total",
			Help:      "Fallback transitions from a failed step to the next one",
		},
		[]string{"from", "to", "reason"},
	)

	routes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistcore",
			Name:      "classifier_routes_total",
			Help:      "Local classifier decisions by category and stage",
		},
		[]string{"category", "stage"},
	)

	usageChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistcore",
			Name:      "usage_checks_total",
			Help:      "Usage gate outcomes (allowed, exceeded, unavailable)",
		},
		[]string{"outcome"},
	)

	breakerEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistcore",
			Name:      "breaker_events_total",
			Help:      "Circuit breaker events by provider, model and action",
		},
		[]string{"provider", "model", "action"},
	)

	auxFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "assistcore",
			Name:      "auxiliary_failures_total",
			Help:      "Swallowed failures of auxiliary collaborators (usage, memory, knowledge)",
		},
		[]string{"component"},
	)

	registerOnce sync.Once
)

// Init registers collectors. Safe to call more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(providerReqs, providerLatency, requests, fallbacks, routes, usageChecks, breakerEvents, auxFailures)
	})
}

// Handler returns the http.Handler for /metrics
func Handler() http.Handler { return promhttp.Handler() }

func ObserveProvider(provider, model, result string, dur time.Duration) {
	providerReqs.WithLabelValues(provider, model, result).Inc()
	providerLatency.WithLabelValues(provider, model).Observe(dur.Seconds())
}

func IncRequest(result, provider string)    { requests.WithLabelValues(result, provider).Inc() }
func IncFallback(from, to, reason string)   { fallbacks.WithLabelValues(from, to, reason).Inc() }
func IncRoute(category, stage string)       { routes.WithLabelValues(category, stage).Inc() }
func IncUsageCheck(outcome string)          { usageChecks.WithLabelValues(outcome).Inc() }
func IncAuxFailure(component string)        { auxFailures.WithLabelValues(component).Inc() }
func BreakerOpened(provider, model string)  { breakerEvents.WithLabelValues(provider, model, "opened").Inc() }
func BreakerClosed(provider, model string)  { breakerEvents.WithLabelValues(provider, model, "closed").Inc() }
func BreakerSkipped(provider, model string) { breakerEvents.WithLabelValues(provider, model, "skipped").Inc() }
