// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package summarize

import (
	"strconv"
	"strings"

	"github.com/arc-dev/mos/internal/graph"
	"github.com/arc-dev/mos/internal/store"
)

// FormatNodeForPrompt renders a node as a markdown heading followed by its
// summary and content, omitting whichever is empty.
func FormatNodeForPrompt(n *store.Node) string {
	parts := []string{"# " + n.Title + " (" + string(n.Type) + ")"}
	if n.Summary != "" {
		parts = append(parts, "Summary: "+n.Summary)
	}
	if n.Content != "" {
		parts = append(parts, n.Content)
	}
	return strings.Join(parts, "\n")
}

// FormatNodeWithEdgesForPrompt appends one line per edge to the node block:
//
//	-> [label, weight=w] Title (type)
//
// with <- for incoming edges. Unknown endpoints are shown by id.
func FormatNodeWithEdgesForPrompt(nwe *graph.NodeWithEdges) string {
	lines := []string{FormatNodeForPrompt(nwe.Node)}
	if len(nwe.Edges) == 0 {
		return lines[0]
	}

	lines = append(lines, "\n## Connections:")
	refs := make(map[string]store.NodeRef, len(nwe.ConnectedNodes))
	for _, ref := range nwe.ConnectedNodes {
		refs[ref.ID] = ref
	}

	for _, edge := range nwe.Edges {
		direction, otherID := "->", edge.TargetID
		if edge.SourceID != nwe.Node.ID {
			direction, otherID = "<-", edge.SourceID
		}
		other := otherID
		if ref, ok := refs[otherID]; ok {
			other = ref.Title + " (" + string(ref.Type) + ")"
		}
		lines = append(lines, "  "+direction+" ["+edgeLabel(edge)+", weight="+
			strconv.FormatFloat(edge.Weight, 'f', -1, 64)+"] "+other)
	}
	return strings.Join(lines, "\n")
}

func edgeLabel(e *store.Edge) string {
	if e.EdgeType != store.EdgeTypeCustom {
		return string(e.EdgeType)
	}
	if e.CustomLabel == nil {
		return "custom"
	}
	return *e.CustomLabel
}
