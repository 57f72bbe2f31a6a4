// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package health holds the provider health snapshot served by /health.
package health

import "time"

// Metrics is a point-in-time view of one provider's health.
type Metrics struct {
	FailureCount  int64      `json:"failure_count"`
	LastFailureAt *time.Time `json:"last_failure_at,omitempty"`
	CooldownUntil *time.Time `json:"cooldown_until,omitempty"`
	Available     bool       `json:"available"`
}
