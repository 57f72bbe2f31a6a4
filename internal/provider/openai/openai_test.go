// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package openai_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/provider/openai"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func embeddingServer(t *testing.T, status int, vector []float64) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		_ = json.NewDecoder(r.Body).Decode(&captured)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "boom", "type": "server_error"},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []any{
				map[string]any{"object": "embedding", "index": 0, "embedding": vector},
			},
			"usage": map[string]any{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestNew_MissingKey(t *testing.T) {
	_, err := openai.New(openai.Config{})
	require.Error(t, err)
	assert.True(t, moserr.HasCode(err, moserr.CodeProviderRequestInvalid))
}

func TestNew_Defaults(t *testing.T) {
	e, err := openai.New(openai.Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "openai", e.Name())
	assert.Equal(t, "text-embedding-3-small", e.Model())
	assert.Equal(t, 1536, e.Dimensions())
}

func TestEmbedder_Embed(t *testing.T) {
	srv, captured := embeddingServer(t, http.StatusOK, []float64{0.25, -0.5, 1})

	e, err := openai.New(openai.Config{APIKey: "test-key", BaseURL: srv.URL, Dimensions: 3})
	require.NoError(t, err)

	vec, err := e.Embed(context.Background(), "consistent hashing")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, -0.5, 1}, vec)

	assert.Equal(t, "consistent hashing", (*captured)["input"])
	assert.Equal(t, "text-embedding-3-small", (*captured)["model"])
	assert.EqualValues(t, 3, (*captured)["dimensions"])
	assert.True(t, e.HealthMetrics().Available)
}

func TestEmbedder_DimensionMismatch(t *testing.T) {
	srv, _ := embeddingServer(t, http.StatusOK, []float64{0.1, 0.2})

	e, err := openai.New(openai.Config{APIKey: "test-key", BaseURL: srv.URL, Dimensions: 3})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, moserr.HasCode(err, moserr.CodeProviderResponseInvalid))
}

func TestEmbedder_UpstreamFailure(t *testing.T) {
	srv, _ := embeddingServer(t, http.StatusInternalServerError, nil)

	e, err := openai.New(openai.Config{APIKey: "test-key", BaseURL: srv.URL, Dimensions: 3})
	require.NoError(t, err)

	_, err = e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.True(t, moserr.IsUpstreamFailure(err))
	assert.False(t, e.HealthMetrics().Available)
}
