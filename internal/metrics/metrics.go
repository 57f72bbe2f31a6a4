// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package metrics owns the Prometheus collectors mos exports on /metrics.
// Every method is safe on a nil *Collector so library packages can treat
// metrics as optional.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mos"

// Collector holds the application metrics on a private registry.
type Collector struct {
	registry *prometheus.Registry

	Searches           *prometheus.CounterVec
	SearchFallbacks    prometheus.Counter
	EmbeddingFailures  *prometheus.CounterVec
	EmbeddingsIndexed  prometheus.Counter
	SyncItems          *prometheus.CounterVec
	HTTPRequests       *prometheus.CounterVec
	HTTPRequestSeconds *prometheus.HistogramVec
}

// New creates a Collector with Go runtime and process collectors attached.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Searches served, by mode.",
		}, []string{"mode"}),
		SearchFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_vector_fallbacks_total",
			Help:      "Hybrid searches that ran keyword-only because embedding failed.",
		}),
		EmbeddingFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embedding_failures_total",
			Help:      "Failed embedding calls, by provider.",
		}, []string{"provider"}),
		EmbeddingsIndexed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "embeddings_indexed_total",
			Help:      "Node embeddings written by the indexer.",
		}),
		SyncItems: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_items_total",
			Help:      "Items processed by the SDS connector, by outcome.",
		}, []string{"outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.Searches,
		c.SearchFallbacks,
		c.EmbeddingFailures,
		c.EmbeddingsIndexed,
		c.SyncItems,
		c.HTTPRequests,
		c.HTTPRequestSeconds,
	)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

func (c *Collector) ObserveSearch(mode string) {
	if c == nil {
		return
	}
	c.Searches.WithLabelValues(mode).Inc()
}

// ObserveFallback records a hybrid search that lost its vector signal.
func (c *Collector) ObserveFallback(provider string) {
	if c == nil {
		return
	}
	c.SearchFallbacks.Inc()
	c.EmbeddingFailures.WithLabelValues(provider).Inc()
}

func (c *Collector) ObserveEmbeddingFailure(provider string) {
	if c == nil {
		return
	}
	c.EmbeddingFailures.WithLabelValues(provider).Inc()
}

func (c *Collector) ObserveIndexed(n int) {
	if c == nil || n <= 0 {
		return
	}
	c.EmbeddingsIndexed.Add(float64(n))
}

// ObserveSync records one sync run's created and skipped counts.
func (c *Collector) ObserveSync(created, skipped int) {
	if c == nil {
		return
	}
	c.SyncItems.WithLabelValues("created").Add(float64(created))
	c.SyncItems.WithLabelValues("skipped").Add(float64(skipped))
}

func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPRequestSeconds.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
