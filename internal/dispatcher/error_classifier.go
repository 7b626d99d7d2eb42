package dispatcher

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/local/assistcore/internal/ai"
)

// FailureKind is the coarse reason a provider attempt failed.
type FailureKind string

const (
	FailureConfig      FailureKind = "config"
	FailureTransport   FailureKind = "transport"
	FailureParse       FailureKind = "parse"
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureRefused     FailureKind = "refused"
	FailureCanceled    FailureKind = "canceled"
	FailureBreakerOpen FailureKind = "breaker_open"
	FailureUnknown     FailureKind = "unknown"
)

// ClassifyFailure maps a provider error onto a FailureKind. Every kind triggers fallback to
// the next step; the kind only decides metrics labels and whether the breaker opens.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrBreakerOpen) {
		return FailureBreakerOpen
	}

	var cfgErr *ai.ConfigError
	if errors.As(err, &cfgErr) {
		return FailureConfig
	}

	if ai.IsRateLimited(err) || errors.Is(err, ErrThrottled) {
		return FailureRateLimited
	}

	if ai.IsContentRefused(err) {
		return FailureRefused
	}

	// Timeout errors
	if isTimeoutError(err) {
		return FailureTimeout
	}

	if errors.Is(err, context.Canceled) {
		return FailureCanceled
	}

	var parseErr *ai.ParseError
	if errors.As(err, &parseErr) || errors.Is(err, ErrEmptyResponse) {
		return FailureParse
	}

	// HTTP errors
	var httpErr *ai.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return FailureRateLimited
		}
		return FailureTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureTransport
	}

	// Network errors surfaced as plain strings by SDKs
	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network") ||
		strings.Contains(errStr, "eof") {
		return FailureTransport
	}

	return FailureUnknown
}

// isTransientError reports whether err should put provider:model into cooldown.
func isTransientError(err error) bool {
	switch ClassifyFailure(err) {
	case FailureTimeout, FailureRateLimited:
		return true
	case FailureTransport:
		// 4xx other than 429 is a request problem, not an outage
		var httpErr *ai.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr.StatusCode >= 500
		}
		return true
	}
	return false
}

// isTimeoutError checks if error is specifically a timeout
func isTimeoutError(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded")
}
