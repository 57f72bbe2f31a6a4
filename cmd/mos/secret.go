// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arc-dev/mos/internal/provider"
	"github.com/arc-dev/mos/internal/secrets"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

// keyValidator checks a key against the provider before it is stored.
// Tests replace it to stay offline.
var keyValidator = func(ctx context.Context, name, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	return provider.ValidateKey(ctx, http.DefaultClient, name, key)
}

func newSecretCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage provider API keys in the OS keyring",
		Long: "Stores provider API keys under the \"" + secrets.Service + "\" keyring service.\n" +
			"The default config refers to them as keyring://" + secrets.Service + "/<provider>_api_key.",
	}
	cmd.AddCommand(
		newSecretSetCmd(),
		newSecretGetCmd(),
		newSecretListCmd(),
		newSecretRmCmd(),
	)
	return cmd
}

func checkProvider(name string) error {
	if !slices.Contains(provider.Names, name) {
		return moserr.Errorf(moserr.CodeCLIInputInvalid, "unknown provider %q (want one of %s)",
			name, strings.Join(provider.Names, ", "))
	}
	return nil
}

func newSecretSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <provider> [key]",
		Short: "Validate and store a provider API key",
		Long:  "Stores the API key of a provider. Without a key argument it is read from stdin.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := checkProvider(name); err != nil {
				return err
			}

			var key string
			if len(args) == 2 {
				key = args[1]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return moserr.Errorf(moserr.CodeCLIInputInvalid, "reading key from stdin: %w", err)
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return moserr.New(moserr.CodeCLIInputInvalid, "api key must not be empty")
			}

			if skip, _ := cmd.Flags().GetBool("no-validate"); !skip {
				if err := keyValidator(cmd.Context(), name, key); err != nil {
					return err
				}
			}

			if err := secretStoreFactory().Set(secrets.Service, secrets.ProviderKey(name), key); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Stored %s key as %s\n", name, secrets.ProviderURI(name))
			return err
		},
	}
	cmd.Flags().Bool("no-validate", false, "store without checking the key against the provider")
	return cmd
}

func newSecretGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <provider>",
		Short: "Show a stored provider API key, masked unless --reveal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := checkProvider(name); err != nil {
				return err
			}
			key, err := secretStoreFactory().Get(secrets.Service, secrets.ProviderKey(name))
			if err != nil {
				return err
			}
			if reveal, _ := cmd.Flags().GetBool("reveal"); !reveal {
				key = mask(key)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), key)
			return err
		},
	}
	cmd.Flags().Bool("reveal", false, "print the full key")
	return cmd
}

func newSecretListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored secret names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			keys, err := secretStoreFactory().List(secrets.Service)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				_, err := fmt.Fprintln(out, "No secrets stored.")
				return err
			}
			for _, k := range keys {
				if _, err := fmt.Fprintln(out, k); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newSecretRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <provider>",
		Short: "Delete a stored provider API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := checkProvider(name); err != nil {
				return err
			}
			if err := secretStoreFactory().Delete(secrets.Service, secrets.ProviderKey(name)); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s key\n", name)
			return err
		},
	}
}

// mask keeps the first and last four characters of keys long enough to
// still hide most of them.
func mask(key string) string {
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
