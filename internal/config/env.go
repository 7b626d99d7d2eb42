package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/local/assistcore/internal/ai"
)

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	Level      string
	Pretty     bool
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// AxiomConfig holds Axiom logging configuration.
type AxiomConfig struct {
	Send          bool
	APIKey        string
	OrgID         string
	Dataset       string
	FlushInterval time.Duration
}

// ProvidersConfig holds credentials and models per vendor plus the routing policy.
type ProvidersConfig struct {
	Active         string   // AI_PROVIDER; empty picks the first configured provider
	Fallback       []string // AI_FALLBACK_PROVIDERS, tried in order after the active one
	HuggingFace    ai.Settings
	OpenAI         ai.Settings
	Anthropic      ai.Settings
	Gemini         ai.Settings
	GeminiProxyURL string
	AttemptTimeout time.Duration
	RatePerSecond  float64
	Burst          int
	MaxInflight    int
}

// Settings returns the client settings for p.
func (p ProvidersConfig) Settings(id ai.ProviderID) ai.Settings {
	switch id {
	case ai.ProviderHuggingFace:
		return p.HuggingFace
	case ai.ProviderOpenAI:
		return p.OpenAI
	case ai.ProviderAnthropic:
		return p.Anthropic
	case ai.ProviderGemini:
		return p.Gemini
	}
	return ai.Settings{}
}

// Configured reports whether credentials for id are present. The local generator always is.
func (p ProvidersConfig) Configured(id ai.ProviderID) bool {
	switch id {
	case ai.ProviderMock:
		return true
	case ai.ProviderGemini:
		return p.Gemini.APIKey != "" || p.GeminiProxyURL != ""
	}
	return p.Settings(id).APIKey != ""
}

// LocalConfig tunes the local classifier/generator path.
type LocalConfig struct {
	Latency time.Duration
	// ContentDir overrides the embedded topic library with *.yaml files from disk.
	ContentDir string
}

// RedisConfig points at the Redis used by the breaker, usage and memory adapters.
type RedisConfig struct {
	URL     string
	Enabled bool
}

// BreakerConfig defines provider cooldowns after transient failures.
type BreakerConfig struct {
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// UsageConfig holds per-tier daily request limits for the Redis usage gate.
type UsageConfig struct {
	BasicDailyLimit int
	PlusDailyLimit  int
}

// MemoryConfig tunes the Redis context memory.
type MemoryConfig struct {
	MaxItems int
	TTL      time.Duration
}

// KnowledgeConfig locates the knowledge-base bundle.
type KnowledgeConfig struct {
	File     string
	S3Bucket string
	S3Key    string

	// S3Passphrase opens sealed bundles and seals uploaded ones.
	S3Passphrase string
}

// ServerConfig holds the HTTP API settings.
type ServerConfig struct {
	Port       string
	AdminToken string
}

// TracingConfig switches on the OpenTelemetry SDK. Spans are no-ops otherwise.
type TracingConfig struct {
	Stdout      bool
	SampleRatio float64
}

// Config is the top-level configuration.
type Config struct {
	Logging   LoggingConfig
	Axiom     AxiomConfig
	Providers ProvidersConfig
	Local     LocalConfig
	Redis     RedisConfig
	Breaker   BreakerConfig
	Usage     UsageConfig
	Memory    MemoryConfig
	Knowledge KnowledgeConfig
	Server    ServerConfig
	Tracing   TracingConfig
}

// FromEnv loads configuration from environment with sensible defaults.
func FromEnv() Config {
	cfg := Config{}

	cfg.Logging = LoggingConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Pretty:     parseBool(getEnv("LOG_PRETTY", devDefaultPretty())),
		File:       getEnv("LOG_FILE", "logs/assistcore.log"),
		MaxSizeMB:  parseInt(getEnv("LOG_MAX_SIZE_MB", "100"), 100),
		MaxBackups: parseInt(getEnv("LOG_MAX_BACKUPS", "10"), 10),
		MaxAgeDays: parseInt(getEnv("LOG_MAX_AGE_DAYS", "30"), 30),
		Compress:   parseBool(getEnv("LOG_COMPRESS", "true")),
	}

	baseDataset := getEnv("AXIOM_DATASET", "dev")
	cfg.Axiom = AxiomConfig{
		Send:          parseBool(getEnv("SEND_LOGS_TO_AXIOM", "0")),
		APIKey:        getEnv("AXIOM_API_KEY", ""),
		OrgID:         getEnv("AXIOM_ORG_ID", ""),
		Dataset:       baseDataset + "_assistcore",
		FlushInterval: parseDuration(getEnv("AXIOM_FLUSH_INTERVAL", "10s"), 10*time.Second),
	}

	timeout := parseDuration(getEnv("REQUEST_TIMEOUT", "30s"), 30*time.Second)
	maxTokens := parseInt(getEnv("MAX_OUTPUT_TOKENS", "1024"), 1024)
	cfg.Providers = ProvidersConfig{
		Active:   strings.ToLower(getEnv("AI_PROVIDER", "")),
		Fallback: parseList(getEnv("AI_FALLBACK_PROVIDERS", "")),
		HuggingFace: ai.Settings{
			APIKey:     getEnv("HUGGINGFACE_API_KEY", ""),
			BaseURL:    getEnv("HUGGINGFACE_BASE_URL", ""),
			BasicModel: getEnv("HUGGINGFACE_BASIC_MODEL", "mistralai/Mistral-7B-Instruct-v0.2"),
			PlusModel:  getEnv("HUGGINGFACE_PLUS_MODEL", "meta-llama/Meta-Llama-3-8B-Instruct"),
			Timeout:    parseDuration(getEnv("HUGGINGFACE_TIMEOUT", ""), timeout),
			MaxTokens:  maxTokens,
		},
		OpenAI: ai.Settings{
			APIKey:     getEnv("OPENAI_API_KEY", ""),
			BaseURL:    getEnv("OPENAI_BASE_URL", ""),
			BasicModel: getEnv("OPENAI_BASIC_MODEL", "gpt-4o-mini"),
			PlusModel:  getEnv("OPENAI_PLUS_MODEL", "gpt-4o"),
			Timeout:    parseDuration(getEnv("OPENAI_TIMEOUT", ""), timeout),
			MaxTokens:  maxTokens,
		},
		Anthropic: ai.Settings{
			APIKey:     getEnv("ANTHROPIC_API_KEY", ""),
			BaseURL:    getEnv("ANTHROPIC_BASE_URL", ""),
			BasicModel: getEnv("ANTHROPIC_BASIC_MODEL", "claude-3-5-haiku-latest"),
			PlusModel:  getEnv("ANTHROPIC_PLUS_MODEL", "claude-3-5-sonnet-latest"),
			Timeout:    parseDuration(getEnv("ANTHROPIC_TIMEOUT", ""), timeout),
			MaxTokens:  maxTokens,
		},
		Gemini: ai.Settings{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			BaseURL:    getEnv("GEMINI_BASE_URL", ""),
			BasicModel: getEnv("GEMINI_BASIC_MODEL", "gemini-1.5-flash"),
			PlusModel:  getEnv("GEMINI_PLUS_MODEL", "gemini-1.5-pro"),
			Timeout:    parseDuration(getEnv("GEMINI_TIMEOUT", ""), timeout),
			MaxTokens:  maxTokens,
		},
		GeminiProxyURL: getEnv("GEMINI_PROXY_URL", ""),
		AttemptTimeout: timeout,
		RatePerSecond:  parseFloat(getEnv("PROVIDER_RATE_PER_SECOND", "5"), 5),
		Burst:          parseInt(getEnv("PROVIDER_BURST", "10"), 10),
		MaxInflight:    parseInt(getEnv("PROVIDER_MAX_INFLIGHT", "8"), 8),
	}

	cfg.Local = LocalConfig{
		Latency:    parseDuration(getEnv("LOCAL_LATENCY", "300ms"), 300*time.Millisecond),
		ContentDir: getEnv("CONTENT_DIR", ""),
	}

	redisURL := getEnv("REDIS_URL", "")
	cfg.Redis = RedisConfig{URL: redisURL, Enabled: redisURL != ""}

	cfg.Breaker = BreakerConfig{
		BaseBackoff: parseDuration(getEnv("BREAKER_BASE_BACKOFF", "30s"), 30*time.Second),
		MaxBackoff:  parseDuration(getEnv("BREAKER_MAX_BACKOFF", "5m"), 5*time.Minute),
	}

	cfg.Usage = UsageConfig{
		BasicDailyLimit: parseInt(getEnv("USAGE_BASIC_DAILY_LIMIT", "25"), 25),
		PlusDailyLimit:  parseInt(getEnv("USAGE_PLUS_DAILY_LIMIT", "500"), 500),
	}

	cfg.Memory = MemoryConfig{
		MaxItems: parseInt(getEnv("MEMORY_MAX_ITEMS", "20"), 20),
		TTL:      parseDuration(getEnv("MEMORY_TTL", "720h"), 720*time.Hour),
	}

	cfg.Knowledge = KnowledgeConfig{
		File:         getEnv("KNOWLEDGE_FILE", ""),
		S3Bucket:     getEnv("KNOWLEDGE_S3_BUCKET", ""),
		S3Key:        getEnv("KNOWLEDGE_S3_KEY", "knowledge/base.yaml"),
		S3Passphrase: getEnv("KNOWLEDGE_S3_PASSPHRASE", ""),
	}

	cfg.Server = ServerConfig{
		Port:       getEnv("PORT", "8080"),
		AdminToken: getEnv("ADMIN_TOKEN", ""),
	}

	cfg.Tracing = TracingConfig{
		Stdout:      parseBool(getEnv("TRACE_STDOUT", "0")),
		SampleRatio: parseFloat(getEnv("TRACE_SAMPLE_RATIO", "1"), 1),
	}

	return cfg
}

// Helpers
func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

func parseFloat(s string, def float64) float64 {
	if s == "" {
		return def
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return def
}

func parseBool(s string) bool {
	v := strings.ToLower(strings.TrimSpace(s))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

func parseDuration(s string, def time.Duration) time.Duration {
	if s == "" {
		return def
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d
	}
	return def
}

func parseList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func devDefaultPretty() string {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))
	if env == "dev" || env == "development" || env == "local" {
		return "true"
	}
	return "false"
}
