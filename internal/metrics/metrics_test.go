// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arc-dev/mos/internal/metrics"
)

func TestCollector_Counters(t *testing.T) {
	c := metrics.New()

	c.ObserveSearch("hybrid")
	c.ObserveSearch("hybrid")
	c.ObserveSearch("keyword")
	c.ObserveFallback("openai")
	c.ObserveEmbeddingFailure("openai")
	c.ObserveIndexed(3)
	c.ObserveIndexed(0)
	c.ObserveSync(4, 2)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.Searches.WithLabelValues("hybrid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.Searches.WithLabelValues("keyword")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SearchFallbacks))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.EmbeddingFailures.WithLabelValues("openai")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.EmbeddingsIndexed))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.SyncItems.WithLabelValues("created")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SyncItems.WithLabelValues("skipped")))
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *metrics.Collector
	assert.NotPanics(t, func() {
		c.ObserveSearch("hybrid")
		c.ObserveFallback("openai")
		c.ObserveSync(1, 1)
		c.ObserveHTTP(http.MethodGet, "/health", 200, time.Millisecond)
	})
	assert.Nil(t, c.Registry())
}

func TestCollector_Handler(t *testing.T) {
	c := metrics.New()
	c.ObserveHTTP(http.MethodGet, "/api/v1/nodes", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `mos_http_requests_total{method="GET",route="/api/v1/nodes",status="200"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}
