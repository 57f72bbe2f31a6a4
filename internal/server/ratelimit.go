// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package server

import (
	"log/slog"
	"net"
	"net/http"
	"slices"
	"sync"
	"time"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

const (
	defaultMaxVisitors = 10000
	visitorTTL         = 10 * time.Minute
	sweepInterval      = 5 * time.Minute
)

// RateLimitConfig configures per-IP token buckets. A zero
// RequestsPerSecond disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	// MaxVisitors caps tracked IPs; the least recently seen are evicted
	// on each sweep. Zero means 10000.
	MaxVisitors int
}

// Validate checks the limits and applies the MaxVisitors default.
func (c *RateLimitConfig) Validate() error {
	switch {
	case c.RequestsPerSecond < 0:
		return moserr.Errorf(moserr.CodeServerConfigInvalid,
			"rate limit requests per second must not be negative (got %g)", c.RequestsPerSecond)
	case c.RequestsPerSecond > 0 && c.Burst <= 0:
		return moserr.Errorf(moserr.CodeServerConfigInvalid,
			"rate limit burst must be positive when a rate is set (got %d)", c.Burst)
	case c.MaxVisitors < 0:
		return moserr.Errorf(moserr.CodeServerConfigInvalid,
			"rate limit max visitors must not be negative (got %d)", c.MaxVisitors)
	}
	if c.MaxVisitors == 0 {
		c.MaxVisitors = defaultMaxVisitors
	}
	return nil
}

type bucket struct {
	tokens     float64
	lastRefill time.Time
	lastSeen   time.Time
}

type limiter struct {
	cfg    RateLimitConfig
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

func (l *limiter) allow(ip string) bool {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[ip]
	if !ok {
		b = &bucket{tokens: float64(l.cfg.Burst), lastRefill: now}
		l.buckets[ip] = b
	}
	b.lastSeen = now

	b.tokens = min(float64(l.cfg.Burst), b.tokens+now.Sub(b.lastRefill).Seconds()*l.cfg.RequestsPerSecond)
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// sweep drops idle buckets, then evicts the least recently seen ones above
// MaxVisitors.
func (l *limiter) sweep() {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	ips := make([]string, 0, len(l.buckets))
	for ip, b := range l.buckets {
		if now.Sub(b.lastSeen) > visitorTTL {
			delete(l.buckets, ip)
			continue
		}
		ips = append(ips, ip)
	}

	excess := len(ips) - l.cfg.MaxVisitors
	if l.cfg.MaxVisitors <= 0 || excess <= 0 {
		return
	}
	slices.SortFunc(ips, func(a, b string) int {
		return l.buckets[a].lastSeen.Compare(l.buckets[b].lastSeen)
	})
	for _, ip := range ips[:excess] {
		delete(l.buckets, ip)
	}
	l.logger.Warn("rate limiter visitor cap enforced",
		slog.Int("evicted", excess), slog.Int("max_visitors", l.cfg.MaxVisitors))
}

// clientIP keys buckets by host so one client opening many connections
// shares a bucket. RealIP runs first and rewrites RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// rateLimitMiddleware enforces cfg per client IP. The sweeper goroutine
// exits when done is closed.
func rateLimitMiddleware(cfg RateLimitConfig, done <-chan struct{}, logger *slog.Logger) func(http.Handler) http.Handler {
	if cfg.RequestsPerSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	l := &limiter{
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}

	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-done:
				return
			}
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r)
			if !l.allow(ip) {
				logger.Warn("rate limit exceeded", slog.String("ip", ip), slog.String("path", r.URL.Path))
				w.Header().Set("Retry-After", "1")
				writeProblem(w, http.StatusTooManyRequests, "rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
