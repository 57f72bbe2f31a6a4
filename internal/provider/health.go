// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package provider

import (
	"sync"
	"time"

	moserr "github.com/arc-dev/mos/pkg/errors"
	"github.com/arc-dev/mos/pkg/health"
)

// DefaultHealthCooldown is how long a provider reports unavailable after a
// failed call.
const DefaultHealthCooldown = 30 * time.Second

// HealthTracker records provider call outcomes for the /health endpoint.
// It never blocks calls; short-circuiting is the breaker's job.
type HealthTracker struct {
	mu           sync.RWMutex
	healthy      bool
	failedAt     time.Time
	cooldown     time.Duration
	failureCount int64
	now          func() time.Time
}

// NewHealthTracker returns a healthy tracker. cooldown must be positive.
func NewHealthTracker(cooldown time.Duration) (*HealthTracker, error) {
	if cooldown <= 0 {
		return nil, moserr.Errorf(moserr.CodeConfigValidateInvalidValue,
			"health cooldown must be positive, got %s", cooldown)
	}
	return &HealthTracker{healthy: true, cooldown: cooldown, now: time.Now}, nil
}

// MustHealthTracker is NewHealthTracker with DefaultHealthCooldown.
func MustHealthTracker() *HealthTracker {
	h, _ := NewHealthTracker(DefaultHealthCooldown)
	return h
}

// caller holds h.mu
func (h *HealthTracker) availableLocked() bool {
	return h.healthy || h.now().Sub(h.failedAt) >= h.cooldown
}

// IsHealthy reports whether the last call succeeded or the cooldown since
// the last failure has elapsed.
func (h *HealthTracker) IsHealthy() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.availableLocked()
}

func (h *HealthTracker) RecordSuccess() {
	h.mu.Lock()
	h.healthy = true
	h.mu.Unlock()
}

func (h *HealthTracker) RecordFailure() {
	h.mu.Lock()
	h.healthy = false
	h.failedAt = h.now()
	h.failureCount++
	h.mu.Unlock()
}

// Observe records the outcome of a call and returns err unchanged.
func (h *HealthTracker) Observe(err error) error {
	if err != nil {
		h.RecordFailure()
	} else {
		h.RecordSuccess()
	}
	return err
}

// SetNowFunc overrides the clock in tests.
func (h *HealthTracker) SetNowFunc(fn func() time.Time) {
	h.mu.Lock()
	h.now = fn
	h.mu.Unlock()
}

// HealthMetrics returns a copy of the current state.
func (h *HealthTracker) HealthMetrics() health.Metrics {
	h.mu.RLock()
	defer h.mu.RUnlock()

	m := health.Metrics{
		FailureCount: h.failureCount,
		Available:    h.availableLocked(),
	}
	if h.failureCount > 0 {
		last := h.failedAt
		m.LastFailureAt = &last
	}
	if !h.healthy {
		until := h.failedAt.Add(h.cooldown)
		m.CooldownUntil = &until
	}
	return m
}
