package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/local/assistcore/internal/ai"
)

func TestFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"OPENAI_API_KEY", "ANTHROPIC_API_KEY", "GEMINI_API_KEY", "HUGGINGFACE_API_KEY", "GEMINI_PROXY_URL", "AI_PROVIDER", "REDIS_URL"} {
		t.Setenv(k, "")
	}
	cfg := FromEnv()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "", cfg.Providers.Active)
	assert.Empty(t, cfg.Providers.Fallback)
	assert.Equal(t, 30*time.Second, cfg.Providers.OpenAI.Timeout)
	assert.False(t, cfg.Redis.Enabled)
	assert.Equal(t, 25, cfg.Usage.BasicDailyLimit)
	assert.True(t, cfg.Providers.Configured(ai.ProviderMock))
	assert.False(t, cfg.Providers.Configured(ai.ProviderOpenAI))
}

func TestFromEnv_Overrides(t *testing.T) {
	t.Setenv("AI_PROVIDER", "Anthropic")
	t.Setenv("AI_FALLBACK_PROVIDERS", "openai, gemini ,")
	t.Setenv("ANTHROPIC_API_KEY", "ak")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GEMINI_PROXY_URL", "http://proxy.local/gemini")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("OPENAI_TIMEOUT", "2s")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("LOCAL_LATENCY", "not-a-duration")

	cfg := FromEnv()

	assert.Equal(t, "anthropic", cfg.Providers.Active)
	assert.Equal(t, []string{"openai", "gemini"}, cfg.Providers.Fallback)
	assert.True(t, cfg.Providers.Configured(ai.ProviderAnthropic))
	assert.True(t, cfg.Providers.Configured(ai.ProviderGemini))
	assert.Equal(t, 2*time.Second, cfg.Providers.OpenAI.Timeout)
	assert.Equal(t, 5*time.Second, cfg.Providers.Anthropic.Timeout)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 300*time.Millisecond, cfg.Local.Latency)
}
