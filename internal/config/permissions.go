// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

//go:build !windows

package config

import (
	"log/slog"
	"os"
)

// WarnInsecurePermissions logs a warning when the config file at path is
// readable by group or others, since it may hold plain API keys.
func WarnInsecurePermissions(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(path)
	if err != nil {
		logger.Debug("config permission check skipped", slog.String("path", path), slog.Any("error", err))
		return
	}

	if perm := info.Mode().Perm(); perm&0o044 != 0 {
		logger.Warn("config file is readable by other users; API keys in it may leak",
			slog.String("path", path),
			slog.String("mode", perm.String()),
			slog.String("recommended", "0600"),
		)
	}
}
