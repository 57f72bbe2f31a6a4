// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/arc-dev/mos/internal/config"
	"github.com/arc-dev/mos/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		Long: "Serves the REST API on networking.listen. Requests identify their user with\n" +
			"the " + server.UserHeader + " header, so run mos behind a proxy that sets it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			return withApp(cmd, func(ctx context.Context, app *App) error {
				if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
					app.Config.Networking.Listen = listen
				}

				srv, err := server.New(serverConfig(app.Config), &server.Services{
					Graph:      app.Graph,
					Search:     app.Search,
					Summarizer: app.Summarizer,
					Suggest:    app.Suggest,
					Sync:       app.Sync,
					Metrics:    app.Metrics,
					Health:     app.Health,
					Logger:     app.Logger,
				})
				if err != nil {
					return err
				}
				return srv.Start(ctx)
			})
		},
	}
	cmd.Flags().String("listen", "", "override listen address (host:port)")
	return cmd
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		ListenAddr:  cfg.Networking.Listen,
		CORSOrigins: cfg.Networking.CORSOrigins,
		RateLimit: server.RateLimitConfig{
			RequestsPerSecond: cfg.Networking.RateLimit.RequestsPerSecond,
			Burst:             cfg.Networking.RateLimit.Burst,
		},
		Version: version,
	}
}
