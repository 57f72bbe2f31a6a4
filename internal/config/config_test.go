// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/config"
	"github.com/arc-dev/mos/internal/provider"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

type mapSecrets map[string]string

func (m mapSecrets) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}

func (m mapSecrets) Get(service, key string) (string, error) {
	v, ok := m[service+"/"+key]
	if !ok {
		return "", moserr.New(moserr.CodeSecretNotFound, "not found")
	}
	return v, nil
}

func (m mapSecrets) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

func (m mapSecrets) List(string) ([]string, error) { return nil, nil }

// clearProviderEnv hides provider keys exported in the developer's shell.
func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, name := range provider.Names {
		upper := strings.ToUpper(name)
		t.Setenv(upper+"_API_KEY", "")
		t.Setenv(config.EnvPrefix+"_PROVIDERS_"+upper+"_API_KEY", "")
		t.Setenv(config.EnvPrefix+"_PROVIDERS_"+upper+"_ENDPOINT", "")
	}
}

func load(t *testing.T, path string, s mapSecrets) (*config.Config, error) {
	t.Helper()
	clearProviderEnv(t)
	if s == nil {
		s = mapSecrets{}
	}
	return config.Load(path, config.WithSecretStore(s))
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mos.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, "", nil)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:18790", cfg.Networking.Listen)
	assert.Equal(t, "sqlite", cfg.Storage.Backend)
	assert.Equal(t, "~/.local/share/mos", cfg.Storage.Path)
	assert.Equal(t, 1536, cfg.Storage.VectorDimensions)
	assert.Equal(t, "openai", cfg.Embeddings.Provider)
	assert.Equal(t, "text-embedding-3-small", cfg.Embeddings.Model)
	assert.Equal(t, 1536, cfg.Embeddings.Dimensions)
	assert.Equal(t, provider.DefaultBreakerConfig(), cfg.Embeddings.Breaker)
	assert.Equal(t, "anthropic", cfg.Chat.Provider)
	assert.Equal(t, "claude-sonnet-4-5", cfg.Chat.Model)
	assert.Equal(t, 4096, cfg.Chat.MaxTokens)
	assert.InDelta(t, 0.5, cfg.Search.SimilarityThreshold, 1e-9)
	assert.Equal(t, 20, cfg.Search.DefaultLimit)
	assert.Equal(t, 336*time.Hour, cfg.Suggestions.StaleAfter)
	assert.Equal(t, 10, cfg.Suggestions.Limit)
	assert.False(t, cfg.Tracing.Enabled)
	assert.Zero(t, cfg.Networking.RateLimit.RequestsPerSecond)
	assert.Equal(t, 20, cfg.Networking.RateLimit.Burst)
}

func TestLoad_FromFileResolvesKeyring(t *testing.T) {
	path := writeConfig(t, `
networking:
  listen: "0.0.0.0:9999"
storage:
  backend: memory
suggestions:
  stale_after: 72h
providers:
  openai:
    api_key: "keyring://mos/openai_api_key"
    endpoint: "http://localhost:8080/v1"
  anthropic:
    api_key: "keyring://mos/missing"
`)
	cfg, err := load(t, path, mapSecrets{"mos/openai_api_key": "sk-test"})
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9999", cfg.Networking.Listen)
	assert.Equal(t, "memory", cfg.Storage.Backend)
	assert.Equal(t, 72*time.Hour, cfg.Suggestions.StaleAfter)
	assert.Equal(t, "sk-test", cfg.Provider("openai").APIKey)
	assert.Equal(t, "http://localhost:8080/v1", cfg.Provider("openai").Endpoint)
	assert.Equal(t, "keyring://mos/missing", cfg.Provider("anthropic").APIKey)
	assert.Empty(t, cfg.Provider("google").APIKey)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("MOS_NETWORKING_LISTEN", "10.0.0.1:8080")
	t.Setenv("MOS_SEARCH_DEFAULT_LIMIT", "7")
	clearProviderEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-env")

	cfg, err := config.Load("", config.WithSecretStore(mapSecrets{}))
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1:8080", cfg.Networking.Listen)
	assert.Equal(t, 7, cfg.Search.DefaultLimit)
	assert.Equal(t, "sk-ant-env", cfg.Provider("anthropic").APIKey)
}

func TestLoad_GoogleEmbeddings(t *testing.T) {
	path := writeConfig(t, "embeddings:\n  provider: google\n")
	_, err := load(t, path, nil)
	require.Error(t, err)
	assert.True(t, moserr.HasCode(err, moserr.CodeConfigValidateInvalidValue))
	assert.Contains(t, err.Error(), "must match storage.vector_dimensions")

	path = writeConfig(t, "embeddings:\n  provider: google\nstorage:\n  vector_dimensions: 768\n")
	cfg, err := load(t, path, nil)
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-004", cfg.Embeddings.Model)
	assert.Equal(t, 768, cfg.Embeddings.Dimensions)
}

func TestLoad_Errors(t *testing.T) {
	_, err := load(t, filepath.Join(t.TempDir(), "absent.yaml"), nil)
	assert.True(t, moserr.HasCode(err, moserr.CodeConfigLoadReadFailure))

	_, err = load(t, writeConfig(t, "storage:\n  backend: postgres\n"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage.backend")
}

func TestLoad_BootstrappedDefaultIsValid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mos.yaml")
	require.True(t, config.Bootstrap(path))
	require.False(t, config.Bootstrap(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	cfg, err := load(t, path, mapSecrets{"mos/anthropic_api_key": "sk-ant"})
	require.NoError(t, err)
	assert.Equal(t, "sk-ant", cfg.Provider("anthropic").APIKey)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Networking.CORSOrigins)
}

func TestLoad_ExportedKeysDoNotLeakIntoFileConfig(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-from-shell")
	t.Setenv("MOS_PROVIDERS_ANTHROPIC_API_KEY", "sk-ant-from-shell")

	path := writeConfig(t, "providers:\n  openai:\n    api_key: \"keyring://mos/openai_api_key\"\n")
	cfg, err := load(t, path, mapSecrets{"mos/openai_api_key": "sk-keyring"})
	require.NoError(t, err)
	assert.Equal(t, "sk-keyring", cfg.Provider("openai").APIKey)
	assert.Empty(t, cfg.Provider("anthropic").APIKey)
}

func validConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := load(t, "", nil)
	require.NoError(t, err)
	return cfg
}

func TestValidate_CollectsEveryError(t *testing.T) {
	cfg := validConfig(t)
	cfg.Networking.Listen = "127.0.0.1:0"
	cfg.Logging.Format = "xml"
	cfg.Chat.MaxTokens = 0
	cfg.Search.SimilarityThreshold = 1.5
	cfg.Suggestions.Limit = 0
	cfg.Providers = map[string]config.ProviderConfig{"mistral": {}}

	errs := cfg.Validate()
	require.Len(t, errs, 6)
	for _, err := range errs {
		assert.True(t, moserr.HasCode(err, moserr.CodeConfigValidateInvalidValue))
	}
	assert.Contains(t, errs[0].Error(), "networking.listen")
	assert.Contains(t, errs[1].Error(), "logging.format")
	assert.Contains(t, errs[2].Error(), "chat.max_tokens")
	assert.Contains(t, errs[3].Error(), "providers.mistral")
	assert.Contains(t, errs[4].Error(), "search.similarity_threshold")
	assert.Contains(t, errs[5].Error(), "suggestions.limit")
}

func TestValidate_NetworkingListen(t *testing.T) {
	tests := []struct {
		listen  string
		wantErr bool
	}{
		{"127.0.0.1:8080", false},
		{"[::1]:8080", false},
		{":8080", false},
		{"", true},
		{"127.0.0.1", true},
		{"127.0.0.1:70000", true},
		{"127.0.0.1:abc", true},
	}
	for _, tt := range tests {
		t.Run(tt.listen, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.Networking.Listen = tt.listen
			errs := cfg.Validate()
			if tt.wantErr {
				require.Len(t, errs, 1)
				assert.Contains(t, errs[0].Error(), "networking.listen")
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_RateLimit(t *testing.T) {
	cfg := validConfig(t)
	cfg.Networking.RateLimit = config.RateLimitConfig{RequestsPerSecond: 5}

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "networking.rate_limit.burst")

	cfg.Networking.RateLimit = config.RateLimitConfig{RequestsPerSecond: -1, Burst: 1}
	errs = cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "requests_per_second")
}

func TestValidate_TracingRequiresEndpoint(t *testing.T) {
	cfg := validConfig(t)
	cfg.Tracing.Enabled = true
	cfg.Tracing.Endpoint = ""

	errs := cfg.Validate()
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "tracing.endpoint")
}

func TestParseLevel(t *testing.T) {
	l, err := config.ParseLevel("debug")
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", l.String())

	_, err = config.ParseLevel("loud")
	assert.Error(t, err)
}

func TestStorageConfig_ExpandsHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")

	sc := config.StorageConfig{Backend: "sqlite", Path: "~/data/mos", VectorDimensions: 8}.Store()
	assert.Equal(t, "/home/tester/data/mos", sc.Path)
	assert.Equal(t, 8, sc.VectorDimensions)
	assert.Equal(t, "/abs", config.ExpandHome("/abs"))
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("MOS_TEST_DOTENV=from-file\n"), 0o600))
	t.Setenv("MOS_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("MOS_TEST_DOTENV"))

	require.NoError(t, config.LoadDotEnv(filepath.Join(t.TempDir(), "missing.env"), path))
	assert.Equal(t, "from-file", os.Getenv("MOS_TEST_DOTENV"))
}
