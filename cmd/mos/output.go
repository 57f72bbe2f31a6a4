// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"github.com/arc-dev/mos/internal/store"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// withApp wires the App for the duration of fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, app *App) error) error {
	app, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			app.Logger.Warn("closing app", "error", err)
		}
	}()
	return fn(cmd.Context(), app)
}

// resolveNode accepts a node id or a slug of the user's graph.
func resolveNode(ctx context.Context, app *App, userID, ref string) (*store.Node, error) {
	node, err := app.Graph.GetNode(ctx, ref)
	if err != nil {
		return nil, err
	}
	if node != nil && node.UserID == userID {
		return node, nil
	}

	node, err = app.Graph.GetNodeBySlug(ctx, userID, ref)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, moserr.Errorf(moserr.CodeGraphNodeNotFound, "no node with id or slug %q", ref)
	}
	return node, nil
}

func metadataOf(flags map[string]string) map[string]any {
	if len(flags) == 0 {
		return nil
	}
	out := make(map[string]any, len(flags))
	for k, v := range flags {
		out[k] = v
	}
	return out
}
