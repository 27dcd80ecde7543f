// Package config provides layered configuration for the analyzer: built-in
// defaults, an optional YAML file, then LOKI_ANALYZER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/prometheus/common/model"
)

const (
	// EnvPrefix prefixes every structured environment variable.
	EnvPrefix = "LOKI_ANALYZER_"
	// EnvConfigFile names the YAML file to load when no path is given.
	EnvConfigFile = "LOKI_ANALYZER_CONFIG"
)

// Config holds all configuration for the analyzer.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Auth     AuthConfig     `koanf:"auth"`
	Loki     LokiConfig     `koanf:"loki"`
	AI       AIConfig       `koanf:"ai"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	// RequestTimeout bounds each API request, including the provider call.
	RequestTimeout time.Duration `koanf:"request_timeout" validate:"gt=0"`
}

// AuthConfig configures API authentication. An empty JWTSecret disables it.
type AuthConfig struct {
	JWTSecret   string        `koanf:"jwt_secret"`
	TokenExpiry time.Duration `koanf:"token_expiry" validate:"gt=0"`
}

// LokiConfig holds the default query used when a request omits fields.
type LokiConfig struct {
	URL   string `koanf:"url" validate:"omitempty,url"`
	Token string `koanf:"token"`
	Query string `koanf:"query"`
	Limit int    `koanf:"limit" validate:"min=0"`
	Range string `koanf:"range"`
}

// AIConfig selects the default provider and its endpoints.
type AIConfig struct {
	Provider     string `koanf:"provider" validate:"oneof=gemini openai openrouter"`
	GeminiAPIKey string `koanf:"gemini_api_key"`
	Model        string `koanf:"model"`
	Language     string `koanf:"language"`

	GeminiBaseURL     string `koanf:"gemini_base_url" validate:"omitempty,url"`
	OpenAIBaseURL     string `koanf:"openai_base_url" validate:"omitempty,url"`
	OpenRouterBaseURL string `koanf:"openrouter_base_url" validate:"omitempty,url"`
	OpenRouterReferer string `koanf:"openrouter_referer"`
	OpenRouterTitle   string `koanf:"openrouter_title"`
}

// DatabaseConfig selects report storage. An empty DSN keeps reports in memory.
type DatabaseConfig struct {
	DSN string `koanf:"dsn"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			RequestTimeout:  90 * time.Second,
		},
		Auth: AuthConfig{
			TokenExpiry: 24 * time.Hour,
		},
		Loki: LokiConfig{
			Query: `{job=~".+"}`,
			Limit: 100,
			Range: "1h",
		},
		AI: AIConfig{
			Provider: "gemini",
			Language: "English",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or
// $LOKI_ANALYZER_CONFIG when path is empty) and the environment, then validates it.
func Load(path string) (*Config, error) {
	cfg, err := load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.applyLegacyEnv()
	return cfg, nil
}

// applyLegacyEnv fills fields still empty from the unprefixed variable names.
func (c *Config) applyLegacyEnv() {
	if c.Loki.URL == "" {
		c.Loki.URL = getEnv("LOKI_URL", "")
	}
	if c.AI.GeminiAPIKey == "" {
		c.AI.GeminiAPIKey = getEnv("API_KEY", getEnv("GEMINI_API_KEY", ""))
	}
	if c.Database.DSN == "" {
		c.Database.DSN = getEnv("DATABASE_URL", "")
	}
	if c.Auth.JWTSecret == "" {
		c.Auth.JWTSecret = getEnv("JWT_SECRET", "")
	}
}

var validate = validator.New()

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("invalid config: %s failed %q validation", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters")
	}
	if c.Loki.Range != "" {
		if d, err := model.ParseDuration(c.Loki.Range); err != nil || d <= 0 {
			return fmt.Errorf("loki.range %q is not a valid lookback", c.Loki.Range)
		}
	}
	return nil
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// AuthEnabled reports whether API requests must carry a token.
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
