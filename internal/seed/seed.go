// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package seed imports a graph described in YAML.
package seed

import (
	"context"
	"errors"
	"log/slog"

	"gopkg.in/yaml.v3"

	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// Document is the top-level seed file.
type Document struct {
	Nodes []Node `yaml:"nodes"`
	Edges []Edge `yaml:"edges"`
}

// Node is one seeded node. An empty slug is derived from the title.
type Node struct {
	Type     store.NodeType `yaml:"type"`
	Slug     string         `yaml:"slug"`
	Title    string         `yaml:"title"`
	Content  string         `yaml:"content"`
	Summary  string         `yaml:"summary"`
	Metadata map[string]any `yaml:"metadata"`
}

// Edge links two nodes by slug. Label is only meaningful for custom edges.
type Edge struct {
	Source string         `yaml:"source"`
	Target string         `yaml:"target"`
	Type   store.EdgeType `yaml:"type"`
	Label  string         `yaml:"label"`
	Weight *float64       `yaml:"weight"`
}

// Result counts what Import wrote.
type Result struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// Parse decodes and validates a seed document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, moserr.Errorf(moserr.CodeSeedParseInvalidFormat, "seed parse: %s", err)
	}

	if errs := doc.Validate(); len(errs) > 0 {
		return nil, moserr.Errorf(moserr.CodeSeedParseInvalidFormat, "seed validate: %w", errors.Join(errs...))
	}
	return &doc, nil
}

// Validate fills derived slugs and reports every structural problem.
func (d *Document) Validate() []error {
	var errs []error
	for i := range d.Nodes {
		n := &d.Nodes[i]
		if n.Slug == "" {
			n.Slug = graph.Slugify(n.Title)
		}
		if n.Title == "" {
			errs = append(errs, moserr.Errorf(moserr.CodeSeedParseInvalidFormat, "nodes[%d]: title is required", i))
		}
		if !n.Type.Valid() {
			errs = append(errs, moserr.Errorf(moserr.CodeSeedParseInvalidFormat, "nodes[%d]: unknown type %q", i, n.Type))
		}
	}
	for i, e := range d.Edges {
		if e.Source == "" || e.Target == "" {
			errs = append(errs, moserr.Errorf(moserr.CodeSeedParseInvalidFormat, "edges[%d]: source and target are required", i))
		}
		if !e.Type.Valid() {
			errs = append(errs, moserr.Errorf(moserr.CodeSeedParseInvalidFormat, "edges[%d]: unknown type %q", i, e.Type))
		}
	}
	return errs
}

// Import upserts every node for userID, then inserts the edges. Edge
// endpoints resolve against the nodes just written first and the user's
// existing nodes second; an unknown slug fails with invalid input.
// Edges are plain inserts, so importing the same file twice duplicates them.
func Import(ctx context.Context, g *graph.Engine, userID string, doc *Document, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}

	res := &Result{}
	ids := make(map[string]string, len(doc.Nodes))
	for _, n := range doc.Nodes {
		node, err := g.CreateNode(ctx, graph.CreateNodeInput{
			UserID:   userID,
			Type:     n.Type,
			Slug:     n.Slug,
			Title:    n.Title,
			Content:  n.Content,
			Summary:  n.Summary,
			Metadata: n.Metadata,
		})
		if err != nil {
			return res, err
		}
		ids[n.Slug] = node.ID
		res.Nodes++
	}

	resolve := func(slug string) (string, error) {
		if id, ok := ids[slug]; ok {
			return id, nil
		}
		node, err := g.GetNodeBySlug(ctx, userID, slug)
		if err != nil {
			return "", err
		}
		if node == nil {
			return "", moserr.New(moserr.CodeSeedEdgeInvalid, "edge endpoint not found", moserr.FieldSlug(slug))
		}
		ids[slug] = node.ID
		return node.ID, nil
	}

	for _, e := range doc.Edges {
		src, err := resolve(e.Source)
		if err != nil {
			return res, err
		}
		tgt, err := resolve(e.Target)
		if err != nil {
			return res, err
		}

		in := graph.CreateEdgeInput{
			UserID:   userID,
			SourceID: src,
			TargetID: tgt,
			EdgeType: e.Type,
			Weight:   e.Weight,
		}
		if e.Label != "" {
			label := e.Label
			in.CustomLabel = &label
		}
		if _, err := g.CreateEdge(ctx, in); err != nil {
			return res, err
		}
		res.Edges++
	}

	logger.InfoContext(ctx, "seed imported",
		slog.String("user_id", userID),
		slog.Int("nodes", res.Nodes),
		slog.Int("edges", res.Edges),
	)
	return res, nil
}
