// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package sds

import (
	"strconv"
	"strings"
	"time"
)

// Session is an evaluated SDS practice session.
type Session struct {
	ID           string     `json:"id" validate:"required"`
	UserID       string     `json:"user_id" validate:"required"`
	PromptID     string     `json:"prompt_id"`
	Mode         string     `json:"mode"`
	Status       string     `json:"status"`
	StartedAt    time.Time  `json:"started_at"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	TimeSpentSec *int       `json:"time_spent_sec,omitempty"`
}

// Evaluation is the scored result of a Session. Scores are 0 to 100.
type Evaluation struct {
	ID               string   `json:"id" validate:"required"`
	OverallScore     float64  `json:"overall_score" validate:"gte=0,lte=100"`
	ComponentScore   float64  `json:"component_score" validate:"gte=0,lte=100"`
	ScalingScore     float64  `json:"scaling_score" validate:"gte=0,lte=100"`
	ReliabilityScore float64  `json:"reliability_score" validate:"gte=0,lte=100"`
	TradeoffScore    float64  `json:"tradeoff_score" validate:"gte=0,lte=100"`
	ComponentsFound  []string `json:"components_found"`
}

// Result reports what a sync produced. Repeated syncs return the same ids
// and count already-synced items in Skipped.
type Result struct {
	SessionNodeID  string   `json:"session_node_id"`
	ConceptNodeIDs []string `json:"concept_node_ids"`
	EdgeIDs        []string `json:"edge_ids"`
	Skipped        int      `json:"skipped"`
}

// SessionSlug is the node slug of a synced session.
func SessionSlug(sessionID string) string {
	return "sds-session-" + sessionID
}

// EdgeKey is the ledger key of the practiced_at edge between a session and
// a concept.
func EdgeKey(sessionSlug, conceptSlug string) string {
	return sessionSlug + "::" + conceptSlug
}

// SessionTitle uses the first eight characters of the session id.
func SessionTitle(sessionID string) string {
	short := sessionID
	if len(short) > 8 {
		short = short[:8]
	}
	return "SDS Session: " + short
}

// SessionContent renders the session mode and scores, one per line.
func SessionContent(s Session, e Evaluation) string {
	lines := []string{
		"System Design Session - " + s.Mode + " mode",
		"Overall score: " + score(e.OverallScore) + "/100",
		"Components: " + score(e.ComponentScore) + "/100",
		"Scaling: " + score(e.ScalingScore) + "/100",
		"Reliability: " + score(e.ReliabilityScore) + "/100",
		"Trade-offs: " + score(e.TradeoffScore) + "/100",
	}
	return strings.Join(lines, "\n")
}

func score(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
