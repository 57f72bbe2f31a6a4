// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSpec(t *testing.T) {
	spec, err := generateSpec()
	require.NoError(t, err)

	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(spec, &doc))

	assert.Contains(t, doc.OpenAPI, "3.1")
	for _, path := range []string{
		"/health",
		"/api/v1/nodes",
		"/api/v1/nodes/{id}",
		"/api/v1/nodes/{id}/connections",
		"/api/v1/edges",
		"/api/v1/edges/{id}",
		"/api/v1/search",
		"/api/v1/ask",
		"/api/v1/crib/{nodeId}",
		"/api/v1/suggestions",
		"/api/v1/sync",
	} {
		assert.Contains(t, doc.Paths, path)
	}
	assert.Contains(t, doc.Paths["/api/v1/nodes/{id}"], "patch")
	assert.Contains(t, doc.Paths["/api/v1/nodes/{id}"], "delete")
}
