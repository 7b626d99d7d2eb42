package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/local/assistcore/internal/ai"
)

func TestClassifyFailure(t *testing.T) {
	cases := []struct {
		err  error
		want FailureKind
	}{
		{nil, ""},
		{&ai.ConfigError{Provider: ai.ProviderOpenAI, Missing: "OPENAI_API_KEY"}, FailureConfig},
		{fmt.Errorf("call: %w", &ai.ParseError{Provider: ai.ProviderAnthropic, Reason: "no content"}), FailureParse},
		{ErrEmptyResponse, FailureParse},
		{&ai.HTTPError{StatusCode: 502}, FailureTransport},
		{&ai.HTTPError{StatusCode: 401}, FailureTransport},
		{&ai.HTTPError{StatusCode: 429}, FailureRateLimited},
		{fmt.Errorf("%w: slow down", ai.ErrRateLimited), FailureRateLimited},
		{ErrThrottled, FailureRateLimited},
		{ai.ErrContentRefused, FailureRefused},
		{context.DeadlineExceeded, FailureTimeout},
		{errors.New("Client.Timeout exceeded while awaiting headers"), FailureTimeout},
		{context.Canceled, FailureCanceled},
		{ErrBreakerOpen, FailureBreakerOpen},
		{errors.New("dial tcp: connection refused"), FailureTransport},
		{errors.New("unexpected EOF"), FailureTransport},
		{errors.New("something odd"), FailureUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ClassifyFailure(tc.err), "%v", tc.err)
	}
}

func TestIsTransientError(t *testing.T) {
	assert.True(t, isTransientError(&ai.HTTPError{StatusCode: 503}))
	assert.True(t, isTransientError(context.DeadlineExceeded))
	assert.True(t, isTransientError(ai.ErrRateLimited))
	assert.True(t, isTransientError(errors.New("connection reset by peer")))
	assert.False(t, isTransientError(&ai.HTTPError{StatusCode: 400}))
	assert.False(t, isTransientError(&ai.ConfigError{Provider: ai.ProviderGemini}))
	assert.False(t, isTransientError(&ai.ParseError{Provider: ai.ProviderGemini}))
	assert.False(t, isTransientError(context.Canceled))
}
