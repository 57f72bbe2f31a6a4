// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package config loads mos settings from defaults, an optional YAML file,
// MOS_* environment variables and keyring:// references.
package config

import (
	"errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/arc-dev/mos/internal/provider"
	"github.com/arc-dev/mos/internal/provider/anthropic"
	"github.com/arc-dev/mos/internal/provider/google"
	"github.com/arc-dev/mos/internal/provider/openai"
	"github.com/arc-dev/mos/internal/secrets"
	"github.com/arc-dev/mos/internal/store"
	"github.com/arc-dev/mos/internal/tracing"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// EnvPrefix prefixes every environment override, e.g. MOS_STORAGE_BACKEND.
const EnvPrefix = "MOS"

// Config is the top-level mos configuration.
type Config struct {
	Networking  NetworkingConfig          `mapstructure:"networking"`
	Logging     LoggingConfig             `mapstructure:"logging"`
	Storage     StorageConfig             `mapstructure:"storage"`
	Embeddings  EmbeddingsConfig          `mapstructure:"embeddings"`
	Chat        ChatConfig                `mapstructure:"chat"`
	Providers   map[string]ProviderConfig `mapstructure:"providers"`
	Search      SearchConfig              `mapstructure:"search"`
	Suggestions SuggestionsConfig         `mapstructure:"suggestions"`
	Tracing     tracing.Config            `mapstructure:"tracing"`
}

// NetworkingConfig controls the HTTP listener.
type NetworkingConfig struct {
	Listen      string          `mapstructure:"listen"`
	CORSOrigins []string        `mapstructure:"cors_origins"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig is the per-IP request budget. A zero rate disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig sets the default slog handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StorageConfig selects the store backend.
type StorageConfig struct {
	Backend          string `mapstructure:"backend"`
	Path             string `mapstructure:"path"`
	VectorDimensions int    `mapstructure:"vector_dimensions"`
}

// Store converts to the store factory's config, expanding a leading ~.
func (s StorageConfig) Store() *store.StorageConfig {
	return &store.StorageConfig{
		Backend:          s.Backend,
		Path:             ExpandHome(s.Path),
		VectorDimensions: s.VectorDimensions,
	}
}

// EmbeddingsConfig selects the embedding provider. Model and Dimensions
// default to the provider's own defaults when left empty.
type EmbeddingsConfig struct {
	Provider   string                 `mapstructure:"provider"`
	Model      string                 `mapstructure:"model"`
	Dimensions int                    `mapstructure:"dimensions"`
	Breaker    provider.BreakerConfig `mapstructure:"breaker"`
}

// ChatConfig selects the completion provider.
type ChatConfig struct {
	Provider  string `mapstructure:"provider"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
}

// ProviderConfig holds credentials and an optional endpoint override.
type ProviderConfig struct {
	APIKey   string `mapstructure:"api_key"`
	Endpoint string `mapstructure:"endpoint"`
}

// SearchConfig tunes hybrid search.
type SearchConfig struct {
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	DefaultLimit        int     `mapstructure:"default_limit"`
}

// SuggestionsConfig tunes practice suggestions.
type SuggestionsConfig struct {
	StaleAfter time.Duration `mapstructure:"stale_after"`
	Limit      int           `mapstructure:"limit"`
}

// Provider returns the settings of name, or the zero value.
func (c *Config) Provider(name string) ProviderConfig {
	return c.Providers[name]
}

type loadOptions struct {
	secrets secrets.Store
}

// LoadOption customizes Load.
type LoadOption func(*loadOptions)

// WithSecretStore resolves keyring:// values against s instead of the OS
// keyring.
func WithSecretStore(s secrets.Store) LoadOption {
	return func(o *loadOptions) { o.secrets = s }
}

func setDefaults(v *viper.Viper) {
	breaker := provider.DefaultBreakerConfig()

	v.SetDefault("networking.listen", "127.0.0.1:18790")
	v.SetDefault("networking.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("networking.rate_limit.requests_per_second", 0)
	v.SetDefault("networking.rate_limit.burst", 20)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("storage.backend", "sqlite")
	v.SetDefault("storage.path", "~/.local/share/mos")
	v.SetDefault("storage.vector_dimensions", store.DefaultVectorDimensions)
	v.SetDefault("embeddings.provider", provider.NameOpenAI)
	v.SetDefault("embeddings.breaker.max_requests", breaker.MaxRequests)
	v.SetDefault("embeddings.breaker.interval", breaker.Interval)
	v.SetDefault("embeddings.breaker.timeout", breaker.Timeout)
	v.SetDefault("embeddings.breaker.failure_ratio", breaker.FailureRatio)
	v.SetDefault("embeddings.breaker.min_requests", breaker.MinRequests)
	v.SetDefault("chat.provider", provider.NameAnthropic)
	v.SetDefault("chat.model", anthropic.DefaultModel)
	v.SetDefault("chat.max_tokens", anthropic.DefaultMaxTokens)
	v.SetDefault("search.similarity_threshold", 0.5)
	v.SetDefault("search.default_limit", 20)
	v.SetDefault("suggestions.stale_after", 14*24*time.Hour)
	v.SetDefault("suggestions.limit", 10)
	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.endpoint", "localhost:4317")
	v.SetDefault("tracing.insecure", true)
	v.SetDefault("tracing.sample_ratio", 1.0)
}

// bindProviderEnv lets MOS_PROVIDERS_OPENAI_API_KEY, and the vendors'
// conventional OPENAI_API_KEY style names, reach keys viper has no default
// for.
func bindProviderEnv(v *viper.Viper) {
	for _, name := range provider.Names {
		upper := strings.ToUpper(name)
		_ = v.BindEnv("providers."+name+".api_key", EnvPrefix+"_PROVIDERS_"+upper+"_API_KEY", upper+"_API_KEY")
		_ = v.BindEnv("providers."+name+".endpoint", EnvPrefix+"_PROVIDERS_"+upper+"_ENDPOINT")
	}
}

// Load reads path (optional), applies environment overrides, resolves
// keyring references and validates the result.
func Load(path string, opts ...LoadOption) (*Config, error) {
	o := loadOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.secrets == nil {
		o.secrets = secrets.NewKeyringStore()
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindProviderEnv(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, moserr.Errorf(moserr.CodeConfigLoadReadFailure, "reading config %s: %w", path, err)
		}
	}

	for _, err := range secrets.ResolveViper(v, o.secrets) {
		slog.Warn("keyring reference left unresolved", slog.Any("error", err))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, moserr.Errorf(moserr.CodeConfigParseInvalidFormat, "unmarshalling config: %w", err)
	}
	cfg.applyProviderDefaults()

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, moserr.Errorf(moserr.CodeConfigValidateInvalidValue, "validating config: %w", errors.Join(errs...))
	}
	return &cfg, nil
}

func (c *Config) applyProviderDefaults() {
	switch c.Embeddings.Provider {
	case provider.NameOpenAI:
		if c.Embeddings.Model == "" {
			c.Embeddings.Model = openai.DefaultModel
		}
		if c.Embeddings.Dimensions == 0 {
			c.Embeddings.Dimensions = openai.DefaultDimensions
		}
	case provider.NameGoogle:
		if c.Embeddings.Model == "" {
			c.Embeddings.Model = google.DefaultModel
		}
		if c.Embeddings.Dimensions == 0 {
			c.Embeddings.Dimensions = google.DefaultDimensions
		}
	}
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

func invalid(format string, args ...any) error {
	return moserr.Errorf(moserr.CodeConfigValidateInvalidValue, "config: "+format, args...)
}

// Validate collects every problem instead of stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	errs = append(errs, c.validateNetworking()...)
	errs = append(errs, c.validateLogging()...)
	errs = append(errs, c.validateStorage()...)
	errs = append(errs, c.validateEmbeddings()...)
	errs = append(errs, c.validateChat()...)
	errs = append(errs, c.validateProviders()...)
	errs = append(errs, c.validateSearch()...)
	errs = append(errs, c.validateSuggestions()...)

	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		errs = append(errs, invalid("tracing.endpoint must be set when tracing is enabled"))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, invalid("tracing.sample_ratio must be within [0, 1], got %g", c.Tracing.SampleRatio))
	}
	return errs
}

func (c *Config) validateNetworking() []error {
	if c.Networking.Listen == "" {
		return []error{invalid("networking.listen must not be empty")}
	}
	_, portStr, err := net.SplitHostPort(c.Networking.Listen)
	if err != nil {
		return []error{invalid("networking.listen must be a valid host:port address, got %q: %w", c.Networking.Listen, err)}
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return []error{invalid("networking.listen port must be a number, got %q", portStr)}
	}
	if port < 1 || port > 65535 {
		return []error{invalid("networking.listen port must be between 1 and 65535, got %d", port)}
	}

	var errs []error
	rl := c.Networking.RateLimit
	if rl.RequestsPerSecond < 0 {
		errs = append(errs, invalid("networking.rate_limit.requests_per_second must not be negative, got %g", rl.RequestsPerSecond))
	}
	if rl.RequestsPerSecond > 0 && rl.Burst <= 0 {
		errs = append(errs, invalid("networking.rate_limit.burst must be positive when a rate is set, got %d", rl.Burst))
	}
	return errs
}

func (c *Config) validateLogging() []error {
	var errs []error
	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains([]string{"text", "json"}, c.Logging.Format) {
		errs = append(errs, invalid("logging.format must be one of [text, json], got %q", c.Logging.Format))
	}
	return errs
}

// ParseLevel maps debug, info, warn and error to slog levels.
func ParseLevel(level string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return l, invalid("logging.level must be one of [debug, info, warn, error], got %q", level)
	}
	return l, nil
}

func (c *Config) validateStorage() []error {
	var errs []error
	switch c.Storage.Backend {
	case "sqlite":
		if c.Storage.Path == "" {
			errs = append(errs, invalid("storage.path must not be empty for the sqlite backend"))
		}
	case "memory":
	default:
		errs = append(errs, invalid("storage.backend must be one of [sqlite, memory], got %q", c.Storage.Backend))
	}
	if c.Storage.VectorDimensions <= 0 {
		errs = append(errs, invalid("storage.vector_dimensions must be greater than 0, got %d", c.Storage.VectorDimensions))
	}
	return errs
}

func (c *Config) validateEmbeddings() []error {
	var errs []error
	e := c.Embeddings
	if !slices.Contains([]string{provider.NameOpenAI, provider.NameGoogle}, e.Provider) {
		errs = append(errs, invalid("embeddings.provider must be one of [openai, google], got %q", e.Provider))
	}
	if e.Dimensions <= 0 {
		errs = append(errs, invalid("embeddings.dimensions must be greater than 0, got %d", e.Dimensions))
	} else if c.Storage.VectorDimensions > 0 && e.Dimensions != c.Storage.VectorDimensions {
		errs = append(errs, invalid("embeddings.dimensions (%d) must match storage.vector_dimensions (%d)",
			e.Dimensions, c.Storage.VectorDimensions))
	}

	b := e.Breaker
	if b.FailureRatio <= 0 || b.FailureRatio > 1 {
		errs = append(errs, invalid("embeddings.breaker.failure_ratio must be within (0, 1], got %g", b.FailureRatio))
	}
	if b.Timeout <= 0 {
		errs = append(errs, invalid("embeddings.breaker.timeout must be greater than 0, got %s", b.Timeout))
	}
	if b.MinRequests == 0 {
		errs = append(errs, invalid("embeddings.breaker.min_requests must be greater than 0"))
	}
	return errs
}

func (c *Config) validateChat() []error {
	var errs []error
	if c.Chat.Provider != provider.NameAnthropic {
		errs = append(errs, invalid("chat.provider must be one of [anthropic], got %q", c.Chat.Provider))
	}
	if c.Chat.Model == "" {
		errs = append(errs, invalid("chat.model must not be empty"))
	}
	if c.Chat.MaxTokens <= 0 {
		errs = append(errs, invalid("chat.max_tokens must be greater than 0, got %d", c.Chat.MaxTokens))
	}
	return errs
}

func (c *Config) validateProviders() []error {
	var errs []error
	names := make([]string, 0, len(c.Providers))
	for name := range c.Providers {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if !slices.Contains(provider.Names, name) {
			errs = append(errs, invalid("providers.%s is not a known provider, expected one of %v", name, provider.Names))
		}
	}
	return errs
}

func (c *Config) validateSearch() []error {
	var errs []error
	if t := c.Search.SimilarityThreshold; t < 0 || t > 1 {
		errs = append(errs, invalid("search.similarity_threshold must be within [0, 1], got %g", t))
	}
	if c.Search.DefaultLimit <= 0 {
		errs = append(errs, invalid("search.default_limit must be greater than 0, got %d", c.Search.DefaultLimit))
	}
	return errs
}

func (c *Config) validateSuggestions() []error {
	var errs []error
	if c.Suggestions.StaleAfter <= 0 {
		errs = append(errs, invalid("suggestions.stale_after must be greater than 0, got %s", c.Suggestions.StaleAfter))
	}
	if c.Suggestions.Limit <= 0 {
		errs = append(errs, invalid("suggestions.limit must be greater than 0, got %d", c.Suggestions.Limit))
	}
	return errs
}
