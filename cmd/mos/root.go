// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/arc-dev/mos/internal/config"
	"github.com/arc-dev/mos/internal/secrets"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// defaultUser owns the graph when neither --user nor MOS_USER is set.
const defaultUser = "local"

// secretStoreFactory creates the secrets.Store used for keyring:// config
// values and the secret commands. Tests substitute a mock keyring.
var secretStoreFactory = func() secrets.Store {
	return secrets.NewKeyringStore()
}

// NewRootCmd creates the root mos command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "mos",
		Short:         "mos - personal knowledge graph",
		Long:          "mos keeps concepts, people, projects and notes in a graph and answers questions about them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			level, _ := cmd.Flags().GetString("log-level")
			format, _ := cmd.Flags().GetString("log-format")
			logger, err := newLogger(cmd.ErrOrStderr(), level, format)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "path to config file (default ~/.config/mos/mos.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn or error (default from config)")
	pf.String("log-format", "", "log format: text or json (default from config)")
	pf.StringP("user", "u", "", "user that owns the graph (default $MOS_USER or \"local\")")

	root.AddCommand(
		newServeCmd(),
		newNodeCmd(),
		newEdgeCmd(),
		newConnectionsCmd(),
		newSearchCmd(),
		newAskCmd(),
		newCribCmd(),
		newSummarizeCmd(),
		newSuggestCmd(),
		newSyncCmd(),
		newSeedCmd(),
		newIndexCmd(),
		newSecretCmd(),
		newVersionCmd(),
	)

	return root
}

// newLogger builds the slog handler for level and format. Empty values
// mean warn and text so commands print only their own output.
func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	if level == "" {
		level = "warn"
	}
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, moserr.Wrap(err, moserr.CodeCLIInputInvalid, "parsing --log-level")
	}
	opts := &slog.HandlerOptions{Level: lvl}

	switch format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, moserr.Errorf(moserr.CodeCLIInputInvalid, "unknown log format %q", format)
	}
}

// loadConfig reads --config, or bootstraps and reads the default path.
// Logging flags left unset fall back to the config's logging section.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		if def, err := config.DefaultConfigPath(); err == nil {
			config.Bootstrap(def)
			if _, err := os.Stat(def); err == nil {
				path = def
			}
		}
	}
	if path != "" {
		config.WarnInsecurePermissions(slog.Default(), path)
	}

	cfg, err := config.Load(path, config.WithSecretStore(secretStoreFactory()))
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if !flags.Changed("log-level") || !flags.Changed("log-format") {
		level, _ := flags.GetString("log-level")
		format, _ := flags.GetString("log-format")
		if !flags.Changed("log-level") {
			level = cfg.Logging.Level
		}
		if !flags.Changed("log-format") {
			format = cfg.Logging.Format
		}
		if logger, err := newLogger(cmd.ErrOrStderr(), level, format); err == nil {
			slog.SetDefault(logger)
		}
	}
	return cfg, nil
}

// userID resolves --user, then MOS_USER, then defaultUser.
func userID(cmd *cobra.Command) string {
	if u, _ := cmd.Flags().GetString("user"); u != "" {
		return u
	}
	if u := os.Getenv("MOS_USER"); u != "" {
		return u
	}
	return defaultUser
}
