// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) initializer to build a Config with defaults.
// - Load layers defaults, an optional YAML file and PROMPTMATCH_* env vars.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"context"
	"encoding/base64"
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Environments recognised by Environment.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Cache backends.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Text embedding providers.
const (
	TextProviderVertex = "vertex"
	TextProviderOpenAI = "openai"
	TextProviderNone   = "none"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// Environment is "production" or "development". Diagnostics (errorMessage)
	// are only returned to callers outside production.
	Environment string `koanf:"environment"`

	// MaxImageBytes is the ceiling for a decoded image payload.
	MaxImageBytes int `koanf:"max_image_bytes"`

	// RequestTimeoutMS bounds a whole /score request.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`

	// Provider call policy.
	ProviderTimeoutMS  int `koanf:"provider_timeout_ms"`
	ProviderMaxRetries int `koanf:"provider_max_retries"`
	RetryBaseDelayMS   int `koanf:"retry_base_delay_ms"`
	RetryMaxDelayMS    int `koanf:"retry_max_delay_ms"`
	// ProviderRateLimit is requests per second across all provider calls; 0 disables limiting.
	ProviderRateLimit float64 `koanf:"provider_rate_limit"`
	ProviderBurst     int     `koanf:"provider_burst"`

	// ErrorMessageLimit truncates the diagnostic message.
	ErrorMessageLimit int `koanf:"error_message_limit"`

	// Embedding cache.
	CacheBackend    string `koanf:"cache_backend"`
	CacheMaxEntries int    `koanf:"cache_max_entries"`
	RedisAddr       string `koanf:"redis_addr"`
	RedisPrefix     string `koanf:"redis_prefix"`
	RedisTTLSeconds int    `koanf:"redis_ttl_seconds"`

	// Vertex AI multimodal embeddings. Image embedding is only reachable when
	// credentials are configured.
	VertexProjectID          string `koanf:"vertex_project_id"`
	VertexLocation           string `koanf:"vertex_location"`
	VertexModel              string `koanf:"vertex_model"`
	VertexCredentialsJSON    string `koanf:"vertex_credentials_json"`
	VertexCredentialsJSONB64 string `koanf:"vertex_credentials_json_b64"`

	// TextProvider selects the text embedding path: vertex, openai or none.
	TextProvider  string `koanf:"text_provider"`
	OpenAIAPIKey  string `koanf:"openai_api_key"`
	OpenAIBaseURL string `koanf:"openai_base_url"`
	OpenAIModel   string `koanf:"openai_model"`

	// Cache warm-up from a directory of target images.
	WarmupDir       string `koanf:"warmup_dir"`
	WarmupWorkers   int    `koanf:"warmup_workers"`
	WarmupQueueSize int    `koanf:"warmup_queue_size"`
	// WarmupWatch keeps embedding images dropped into WarmupDir after start.
	WarmupWatch bool `koanf:"warmup_watch"`

	// GoldSecret seeds the key used to seal reference prompts.
	GoldSecret string `koanf:"gold_secret"`

	// Tracing. Spans go to TracingEndpoint over OTLP/HTTP when set, otherwise to stdout.
	TracingEnabled     bool    `koanf:"tracing_enabled"`
	TracingEndpoint    string  `koanf:"tracing_endpoint"`
	TracingInsecure    bool    `koanf:"tracing_insecure"`
	TracingSampleRatio float64 `koanf:"tracing_sample_ratio"`
}

// New creates a Config with defaults. Context is accepted first to satisfy the
// project-wide convention and is currently unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		Environment:        EnvDevelopment,
		MaxImageBytes:      1_500_000,
		RequestTimeoutMS:   30_000,
		ProviderTimeoutMS:  15_000,
		ProviderMaxRetries: 2,
		RetryBaseDelayMS:   1_000,
		RetryMaxDelayMS:    4_000,
		ProviderRateLimit:  0,
		ProviderBurst:      1,
		ErrorMessageLimit:  200,
		CacheBackend:       CacheMemory,
		CacheMaxEntries:    0,
		RedisPrefix:        "promptmatch:emb:",
		VertexLocation:     "us-central1",
		VertexModel:        "multimodalembedding@001",
		TextProvider:       TextProviderVertex,
		OpenAIModel:        "text-embedding-3-small",
		WarmupWorkers:      runtime.NumCPU(),
		WarmupQueueSize:    256,
		GoldSecret:         "promptmatch-dev-secret",
		TracingSampleRatio: 1,
	}
}

// Validate checks invariants that Load cannot express through types.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.Environment != EnvProduction && c.Environment != EnvDevelopment:
		return fmt.Errorf("%w: environment %q", ErrInvalidConfig, c.Environment)
	case c.MaxImageBytes <= 0:
		return fmt.Errorf("%w: max_image_bytes must be positive", ErrInvalidConfig)
	case c.ProviderTimeoutMS <= 0:
		return fmt.Errorf("%w: provider_timeout_ms must be positive", ErrInvalidConfig)
	case c.ProviderMaxRetries < 0:
		return fmt.Errorf("%w: provider_max_retries must not be negative", ErrInvalidConfig)
	case c.RetryBaseDelayMS < 0 || c.RetryMaxDelayMS < c.RetryBaseDelayMS:
		return fmt.Errorf("%w: retry delays", ErrInvalidConfig)
	case c.ErrorMessageLimit <= 0:
		return fmt.Errorf("%w: error_message_limit must be positive", ErrInvalidConfig)
	case c.CacheBackend != CacheMemory && c.CacheBackend != CacheRedis:
		return fmt.Errorf("%w: cache_backend %q", ErrInvalidConfig, c.CacheBackend)
	case c.CacheBackend == CacheRedis && c.RedisAddr == "":
		return fmt.Errorf("%w: redis_addr required for redis cache", ErrInvalidConfig)
	case c.RedisTTLSeconds < 0:
		return fmt.Errorf("%w: redis_ttl_seconds must not be negative", ErrInvalidConfig)
	case c.TextProvider != TextProviderVertex && c.TextProvider != TextProviderOpenAI && c.TextProvider != TextProviderNone:
		return fmt.Errorf("%w: text_provider %q", ErrInvalidConfig, c.TextProvider)
	case c.TextProvider == TextProviderOpenAI && c.OpenAIAPIKey == "":
		return fmt.Errorf("%w: openai_api_key required for openai text provider", ErrInvalidConfig)
	case c.WarmupWorkers < 0 || c.WarmupQueueSize < 0:
		return fmt.Errorf("%w: warm-up sizes must not be negative", ErrInvalidConfig)
	case c.GoldSecret == "":
		return fmt.Errorf("%w: gold_secret must not be empty", ErrInvalidConfig)
	case c.TracingSampleRatio < 0 || c.TracingSampleRatio > 1:
		return fmt.Errorf("%w: tracing_sample_ratio must be within [0,1]", ErrInvalidConfig)
	}
	if c.VertexCredentialsJSONB64 != "" {
		if _, err := base64.StdEncoding.DecodeString(c.VertexCredentialsJSONB64); err != nil {
			return fmt.Errorf("%w: vertex_credentials_json_b64: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// IsProduction reports whether diagnostics must be hidden from callers.
func (c *Config) IsProduction() bool { return c.Environment == EnvProduction }

// VertexCredentials returns the service account JSON, preferring the raw form.
func (c *Config) VertexCredentials() []byte {
	if c.VertexCredentialsJSON != "" {
		return []byte(c.VertexCredentialsJSON)
	}
	if c.VertexCredentialsJSONB64 != "" {
		b, err := base64.StdEncoding.DecodeString(c.VertexCredentialsJSONB64)
		if err == nil {
			return b
		}
	}
	return nil
}

// ImageEmbeddingEnabled reports whether the image embedding path is reachable.
func (c *Config) ImageEmbeddingEnabled() bool {
	return c.VertexProjectID != "" && len(c.VertexCredentials()) > 0
}

// Durations derived from millisecond fields.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}
func (c *Config) ProviderTimeout() time.Duration {
	return time.Duration(c.ProviderTimeoutMS) * time.Millisecond
}
func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}
func (c *Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMS) * time.Millisecond
}
