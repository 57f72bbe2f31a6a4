// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

func newIndexCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "index",
		Short: "Embed nodes whose content changed since the last run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, app *App) error {
				if app.Indexer == nil {
					return moserr.Errorf(moserr.CodeProviderRequestInvalid,
						"embedding provider %q has no api key; run `mos secret set %s`",
						app.Config.Embeddings.Provider, app.Config.Embeddings.Provider)
				}
				stats, err := app.Indexer.IndexUser(ctx, userID(cmd))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d nodes, %d unchanged.\n", stats.Indexed, stats.Unchanged)
				return err
			})
		},
	}
}
