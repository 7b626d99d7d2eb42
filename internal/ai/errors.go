package ai

import "fmt"

// ConfigError reports a provider that cannot be called because it is not configured.
type ConfigError struct {
	Provider ProviderID
	Missing  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s not configured: missing %s", e.Provider, e.Missing)
}

// HTTPError represents an HTTP status error from AI provider
type HTTPError struct {
	StatusCode int
	Body       string
	Provider   ProviderID
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.Provider, e.Body)
}

// ParseError reports a response body that did not have the vendor's documented shape.
type ParseError struct {
	Provider ProviderID
	Reason   string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s response: %s: %v", e.Provider, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s response: %s", e.Provider, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }

// statusError maps a non-2xx status to the error callers classify on.
func statusError(p ProviderID, code int, body []byte) error {
	if code == 429 {
		return fmt.Errorf("%w: %w", ErrRateLimited, &HTTPError{StatusCode: code, Body: truncate(string(body), 300), Provider: p})
	}
	return &HTTPError{StatusCode: code, Body: truncate(string(body), 300), Provider: p}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
