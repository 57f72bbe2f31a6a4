// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package config

import (
	_ "embed"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

//go:embed mos.yaml.default
var DefaultConfigYAML []byte

// DefaultConfigPath returns ~/.config/mos/mos.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", moserr.Errorf(moserr.CodeConfigLoadReadFailure, "resolving home directory: %w", err)
	}
	return filepath.Join(home, ".config", "mos", "mos.yaml"), nil
}

// Bootstrap writes the commented default config to path unless a file is
// already there. It reports whether it wrote one. Failures are logged and
// otherwise ignored so a read-only home never blocks startup.
func Bootstrap(path string) bool {
	if _, err := os.Stat(path); err == nil {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		slog.Debug("skipping config bootstrap", slog.String("path", path), slog.Any("error", err))
		return false
	}
	if err := os.WriteFile(path, DefaultConfigYAML, 0o600); err != nil {
		slog.Debug("skipping config bootstrap", slog.String("path", path), slog.Any("error", err))
		return false
	}
	slog.Info("created default config", slog.String("path", path))
	return true
}

// LoadDotEnv exports the variables in each existing file without
// overriding the environment. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil || errors.Is(err, fs.ErrNotExist) {
			continue
		}
		return moserr.Errorf(moserr.CodeConfigParseInvalidFormat, "loading %s: %w", p, err)
	}
	return nil
}
