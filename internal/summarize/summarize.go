// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package summarize turns graph neighborhoods into LLM prompts and returns
// the chat provider's answer: node summaries, topic recaps and crib sheets.
package summarize

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/provider"
	"github.com/arc-dev/mos/internal/search"
	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

const (
	// TopicSearchLimit is how many nodes WhatDoIKnow feeds the model.
	TopicSearchLimit = 15
	// MaxNeighborDetails caps the detailed neighbors in a crib sheet.
	MaxNeighborDetails = 10
)

const summarizeSystemPrompt = "You are a knowledge-graph summarizer for a personal memory system. " +
	"Given a node and its connections, produce a concise 2-4 sentence summary. " +
	"Focus on what this node represents, how it relates to connected nodes, " +
	"and why it matters in the user's knowledge graph."

const topicSystemPrompt = "You are a personal knowledge assistant. The user wants to know what they " +
	"have recorded about a specific topic. Given the relevant nodes from their " +
	"knowledge graph, synthesize a clear, structured summary of everything " +
	"they know. Use headings, bullet points, and highlight key relationships. " +
	"If the data is sparse, acknowledge what is known and suggest what might " +
	"be worth adding."

const cribSheetSystemPrompt = `You are a personal knowledge assistant creating a preparation document ("crib sheet").
Given a central node and its connected graph neighborhood, produce a structured
document with these sections:

## Overview
Brief description of the central topic.

## Key Concepts
Bullet points of important related concepts and their relationships.

## Key Connections
How different nodes relate to each other and the central topic.

## Quick Reference
Key facts, definitions, or data points worth remembering.

## Gaps & Questions
What seems to be missing or underexplored based on the graph.

Be concise but thorough. Use markdown formatting.`

// Summarizer answers questions about a user's graph with a chat model.
type Summarizer struct {
	graph  *graph.Engine
	search *search.Engine
	chat   provider.Completer
	logger *slog.Logger
}

// New returns a Summarizer. chat may be nil, in which case every method
// that needs the model fails with CodeProviderRequestInvalid.
func New(g *graph.Engine, s *search.Engine, chat provider.Completer, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{graph: g, search: s, chat: chat, logger: logger}
}

func (s *Summarizer) complete(ctx context.Context, system, user string) (string, error) {
	if s.chat == nil {
		return "", moserr.New(moserr.CodeProviderRequestInvalid, "no chat provider configured")
	}
	return s.chat.Complete(ctx, system, user)
}

// SummarizeNode asks for a 2-4 sentence summary of a node in context.
func (s *Summarizer) SummarizeNode(ctx context.Context, nwe *graph.NodeWithEdges) (string, error) {
	return s.complete(ctx, summarizeSystemPrompt, FormatNodeWithEdgesForPrompt(nwe))
}

// SummarizeNodeByID loads the node of userID and summarizes it.
func (s *Summarizer) SummarizeNodeByID(ctx context.Context, userID, nodeID string) (string, error) {
	nwe, err := s.nodeWithEdges(ctx, userID, nodeID)
	if err != nil {
		return "", err
	}
	return s.SummarizeNode(ctx, nwe)
}

// WhatDoIKnow recaps everything the user has recorded about topic. When
// hybrid search finds nothing the model is not called.
func (s *Summarizer) WhatDoIKnow(ctx context.Context, userID, topic string) (string, error) {
	results, err := s.search.HybridSearch(ctx, topic, userID, TopicSearchLimit)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return `You don't have any nodes related to "` + topic + `" yet.`, nil
	}
	return s.complete(ctx, topicSystemPrompt, TopicPrompt(topic, results))
}

// TopicPrompt is the user prompt WhatDoIKnow sends.
func TopicPrompt(topic string, results []search.Result) string {
	lines := []string{
		"Topic: " + topic,
		"",
		"Found " + strconv.Itoa(len(results)) + " related nodes:",
		"",
	}
	for _, r := range results {
		lines = append(lines, FormatNodeForPrompt(r.Node))
	}
	return strings.Join(lines, "\n")
}

// GenerateCribSheet builds a preparation document around nodeID from its
// two-hop neighborhood.
func (s *Summarizer) GenerateCribSheet(ctx context.Context, userID, nodeID string) (string, error) {
	root, err := s.nodeWithEdges(ctx, userID, nodeID)
	if err != nil {
		return "", err
	}

	conns, err := s.graph.GetConnections(ctx, nodeID, graph.MaxDepth, store.DirectionBoth)
	if err != nil {
		return "", err
	}

	details, err := s.neighborDetails(ctx, directNeighbors(conns))
	if err != nil {
		return "", err
	}

	return s.complete(ctx, cribSheetSystemPrompt, CribSheetPrompt(root, details, conns))
}

// CribSheetPrompt is the user prompt GenerateCribSheet sends.
func CribSheetPrompt(root *graph.NodeWithEdges, details []*graph.NodeWithEdges, conns []graph.Connection) string {
	sections := []string{
		"# Central Node",
		FormatNodeWithEdgesForPrompt(root),
		"",
		"# Direct Neighbors (detail)",
	}
	for _, d := range details {
		sections = append(sections, FormatNodeWithEdgesForPrompt(d), "")
	}

	var extended []string
	for _, c := range conns {
		if c.Depth == 2 {
			extended = append(extended, "- "+c.Node.Title+" ("+string(c.Node.Type)+") via ["+string(c.Edge.EdgeType)+"]")
		}
	}
	if len(extended) > 0 {
		sections = append(sections, "# Extended Network (2 hops)")
		sections = append(sections, extended...)
	}
	return strings.Join(sections, "\n")
}

// directNeighbors returns the distinct depth-1 node ids in discovery order,
// capped at MaxNeighborDetails.
func directNeighbors(conns []graph.Connection) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, c := range conns {
		if c.Depth != 1 || seen[c.Node.ID] {
			continue
		}
		seen[c.Node.ID] = true
		ids = append(ids, c.Node.ID)
		if len(ids) == MaxNeighborDetails {
			break
		}
	}
	return ids
}

// neighborDetails loads the detail views concurrently, keeping ids order.
func (s *Summarizer) neighborDetails(ctx context.Context, ids []string) ([]*graph.NodeWithEdges, error) {
	details := make([]*graph.NodeWithEdges, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	for i, id := range ids {
		g.Go(func() error {
			nwe, err := s.graph.GetNodeWithEdges(gctx, id)
			if err != nil {
				return err
			}
			details[i] = nwe
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := details[:0]
	for _, d := range details {
		if d != nil {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *Summarizer) nodeWithEdges(ctx context.Context, userID, nodeID string) (*graph.NodeWithEdges, error) {
	nwe, err := s.graph.GetNodeWithEdges(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if nwe == nil || (userID != "" && nwe.Node.UserID != userID) {
		return nil, moserr.New(moserr.CodeGraphNodeNotFound, "node not found", moserr.FieldNodeID(nodeID))
	}
	return nwe, nil
}
