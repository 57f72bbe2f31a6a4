// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

//go:build windows

package config

import "log/slog"

// WarnInsecurePermissions is a no-op on Windows, where ACLs replace mode bits.
func WarnInsecurePermissions(logger *slog.Logger, path string) {}
