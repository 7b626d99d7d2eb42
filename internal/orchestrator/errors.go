package orchestrator

import "errors"

var (
	// ErrAuthenticationRequired means no user could be resolved. Returned to the caller.
	ErrAuthenticationRequired = errors.New("authentication required")
	// ErrUsageLimitExceeded means the user's plan quota is used up. Returned to the caller.
	ErrUsageLimitExceeded = errors.New("usage limit exceeded")

	// ErrUsageUnavailable wraps usage gate failures. Logged, never returned.
	ErrUsageUnavailable = errors.New("usage subsystem unavailable")
	// ErrContextMemoryUnavailable wraps context memory failures. Logged, never returned.
	ErrContextMemoryUnavailable = errors.New("context memory unavailable")

	ErrProviderUnavailable = errors.New("provider not available")
)
