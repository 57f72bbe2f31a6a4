// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package anthropic_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/provider/anthropic"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func messageResponse(content ...map[string]any) map[string]any {
	if content == nil {
		content = []map[string]any{}
	}
	return map[string]any{
		"id":            "msg_01",
		"type":          "message",
		"role":          "assistant",
		"model":         "claude-sonnet-4-5",
		"content":       content,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 12, "output_tokens": 3},
	}
}

func newServer(t *testing.T, status int, body any) (*httptest.Server, *map[string]any) {
	t.Helper()
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		_ = json.NewDecoder(r.Body).Decode(&captured)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func TestNew_MissingKey(t *testing.T) {
	_, err := anthropic.New(anthropic.Config{})
	require.Error(t, err)
	assert.True(t, moserr.HasCode(err, moserr.CodeProviderRequestInvalid))
}

func TestCompleter_ReturnsFirstTextBlock(t *testing.T) {
	srv, captured := newServer(t, http.StatusOK, messageResponse(
		map[string]any{"type": "text", "text": "Consistent hashing spreads keys."},
	))

	c, err := anthropic.New(anthropic.Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", c.Name())

	out, err := c.Complete(context.Background(), "be brief", "what is consistent hashing?")
	require.NoError(t, err)
	assert.Equal(t, "Consistent hashing spreads keys.", out)

	assert.Equal(t, anthropic.DefaultModel, (*captured)["model"])
	assert.EqualValues(t, anthropic.DefaultMaxTokens, (*captured)["max_tokens"])
	system, ok := (*captured)["system"].([]any)
	require.True(t, ok)
	require.Len(t, system, 1)
	assert.Equal(t, "be brief", system[0].(map[string]any)["text"])
	assert.True(t, c.HealthMetrics().Available)
}

func TestCompleter_NoTextBlock(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, messageResponse())

	c, err := anthropic.New(anthropic.Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "", "hi")
	require.Error(t, err)
	assert.True(t, moserr.HasCode(err, moserr.CodeProviderResponseInvalid))
}

func TestCompleter_UpstreamError(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, map[string]any{
		"type":  "error",
		"error": map[string]any{"type": "invalid_request_error", "message": "bad"},
	})

	c, err := anthropic.New(anthropic.Config{APIKey: "test-key", BaseURL: srv.URL})
	require.NoError(t, err)

	_, err = c.Complete(context.Background(), "", "hi")
	require.Error(t, err)
	assert.True(t, moserr.IsUpstreamFailure(err))

	m := c.HealthMetrics()
	assert.False(t, m.Available)
	assert.Equal(t, int64(1), m.FailureCount)
}

func TestBuildParams_OmitsEmptySystem(t *testing.T) {
	params := anthropic.BuildParams(anthropic.Config{Model: "m", MaxTokens: 10}, "", "hello")
	assert.Empty(t, params.System)
	assert.EqualValues(t, 10, params.MaxTokens)
	require.Len(t, params.Messages, 1)
}
