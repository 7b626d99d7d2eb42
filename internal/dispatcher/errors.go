package dispatcher

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoSteps       = errors.New("no steps to run")
	ErrBreakerOpen   = errors.New("circuit breaker open")
	ErrThrottled     = errors.New("provider throttled locally")
	ErrEmptyResponse = errors.New("empty response")
)

// StepError records why one step of a chain did not produce a response.
type StepError struct {
	Provider string
	Model    string
	Kind     FailureKind
	Err      error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s/%s failed (%s): %v", e.Provider, e.Model, e.Kind, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// ExhaustedError is returned when every step of a chain failed.
type ExhaustedError struct {
	Attempts []*StepError
}

func (e *ExhaustedError) Error() string {
	if len(e.Attempts) == 0 {
		return "all steps exhausted"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Error()
	}
	return "all steps exhausted: " + strings.Join(parts, "; ")
}

// Unwrap exposes every attempt's error to errors.Is and errors.As.
func (e *ExhaustedError) Unwrap() []error {
	out := make([]error, len(e.Attempts))
	for i, a := range e.Attempts {
		out[i] = a
	}
	return out
}
