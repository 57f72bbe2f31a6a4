// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arc-dev/mos/internal/seed"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func newSeedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml>",
		Short: "Import nodes and edges from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return moserr.Errorf(moserr.CodeCLIInputInvalid, "reading %s: %w", args[0], err)
			}
			doc, err := seed.Parse(data)
			if err != nil {
				return err
			}

			return withApp(cmd, func(ctx context.Context, app *App) error {
				result, err := seed.Import(ctx, app.Graph, userID(cmd), doc, app.Logger)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d nodes and %d edges.\n", result.Nodes, result.Edges)
				return err
			})
		},
	}
}
