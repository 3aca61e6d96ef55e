// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Database   DatabaseConfig  `yaml:"database"`
	Auth       AuthConfig      `yaml:"auth"`
	RateLimits RateLimitConfig `yaml:"rate_limits"`
	Cache      CacheConfig     `yaml:"cache"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
	Upstream   UpstreamConfig  `yaml:"upstream"`
	Defaults   DefaultsConfig  `yaml:"defaults"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	CORSOrigin      string        `yaml:"cors_origin"` // "*" in development
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"` // file path or ":memory:"
}

// AuthConfig holds session settings.
type AuthConfig struct {
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// RateLimitConfig holds per-client rate limiting settings.
type RateLimitConfig struct {
	PerMinute int64 `yaml:"per_minute"` // requests per minute per client IP (0 = unlimited)
}

// CacheConfig holds the external-data cache gateway settings.
// Each TTL is the freshness window for one upstream source; MaxStale is the
// bound past which even stale entries are unusable as fallback.
type CacheConfig struct {
	MaxSize     int           `yaml:"max_size"`
	WeatherTTL  time.Duration `yaml:"weather_ttl"`
	ForecastTTL time.Duration `yaml:"forecast_ttl"`
	PriceTTL    time.Duration `yaml:"price_ttl"`
	InsightTTL  time.Duration `yaml:"insight_ttl"`
	MaxStale    time.Duration `yaml:"max_stale"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

// UpstreamConfig holds settings for the external data providers.
type UpstreamConfig struct {
	OpenWeather ProviderConfig `yaml:"openweather"`
	Agmarknet   ProviderConfig `yaml:"agmarknet"`
	OpenRouter  LLMConfig      `yaml:"openrouter"`
}

// ProviderConfig configures one keyed HTTP data source.
type ProviderConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// LLMConfig configures the chat-completion provider.
type LLMConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

// keySet reports whether an API key value is usable. An unexpanded ${VAR}
// placeholder means the environment variable was never set.
func keySet(key string) bool {
	return key != "" && !strings.HasPrefix(key, "${")
}

// Configured reports whether an API key is set for the provider.
func (p ProviderConfig) Configured() bool { return keySet(p.APIKey) }

// Configured reports whether an API key is set for the LLM provider.
func (l LLMConfig) Configured() bool { return keySet(l.APIKey) }

// DefaultsConfig holds fallback request parameters.
type DefaultsConfig struct {
	City  string `yaml:"city"`
	State string `yaml:"state"`
	Crop  string `yaml:"crop"`
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":9000",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			CORSOrigin:      "*",
		},
		Database: DatabaseConfig{
			DSN: "krishi.db",
		},
		Auth: AuthConfig{
			SessionTTL: 24 * time.Hour,
		},
		RateLimits: RateLimitConfig{
			PerMinute: 100,
		},
		Cache: CacheConfig{
			MaxSize:     10_000,
			WeatherTTL:  time.Hour,
			ForecastTTL: time.Hour,
			PriceTTL:    6 * time.Hour,
			InsightTTL:  30 * time.Minute,
			MaxStale:    24 * time.Hour,
		},
		Upstream: UpstreamConfig{
			OpenWeather: ProviderConfig{
				BaseURL: "https://api.openweathermap.org/data/2.5",
				Timeout: 10 * time.Second,
			},
			Agmarknet: ProviderConfig{
				BaseURL: "https://api.data.gov.in/resource/35985678-0d79-46b4-9ed6-6f13308a1d24",
				Timeout: 10 * time.Second,
			},
			OpenRouter: LLMConfig{
				BaseURL: "https://openrouter.ai/api/v1",
				Model:   "openrouter/auto",
				Timeout: 30 * time.Second,
			},
		},
		Defaults: DefaultsConfig{
			City:  "Pune",
			State: "Maharashtra",
			Crop:  "Tomato",
		},
	}
}
