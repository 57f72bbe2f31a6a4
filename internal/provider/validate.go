// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package provider

import (
	"context"
	"io"
	"net/http"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

// Names of the providers mos can be configured with.
const (
	NameAnthropic = "anthropic"
	NameOpenAI    = "openai"
	NameGoogle    = "google"
)

// Names lists every supported provider.
var Names = []string{NameAnthropic, NameOpenAI, NameGoogle}

// modelsEndpoints are the cheapest authenticated endpoints per provider.
var modelsEndpoints = map[string]string{
	NameAnthropic: "https://api.anthropic.com/v1/models",
	NameOpenAI:    "https://api.openai.com/v1/models",
	NameGoogle:    "https://generativelanguage.googleapis.com/v1beta/models",
}

// ValidateKey checks key against the provider's models endpoint. A 401 or
// 403 is CodeProviderKeyInvalid; any other failure is
// CodeProviderKeyCheckFailed.
func ValidateKey(ctx context.Context, client *http.Client, name, key string) error {
	return ValidateKeyWithURL(ctx, client, name, key, "")
}

// ValidateKeyWithURL is ValidateKey against an explicit endpoint. An empty
// url uses the provider default.
func ValidateKeyWithURL(ctx context.Context, client *http.Client, name, key, url string) error {
	endpoint, ok := modelsEndpoints[name]
	if !ok {
		return moserr.Errorf(moserr.CodeProviderKeyInvalid, "unknown provider: %q", name)
	}
	if url != "" {
		endpoint = url
	}
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return moserr.Errorf(moserr.CodeProviderKeyCheckFailed, "building %s validation request: %w", name, err)
	}
	switch name {
	case NameAnthropic:
		req.Header.Set("x-api-key", key)
		req.Header.Set("anthropic-version", "2023-06-01")
	case NameOpenAI:
		req.Header.Set("Authorization", "Bearer "+key)
	case NameGoogle:
		req.Header.Set("x-goog-api-key", key)
	}

	resp, err := client.Do(req)
	if err != nil {
		return moserr.Errorf(moserr.CodeProviderKeyCheckFailed, "validating %s key: %w", name, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return moserr.Errorf(moserr.CodeProviderKeyInvalid, "invalid %s API key (HTTP %d)", name, resp.StatusCode)
	case resp.StatusCode >= 400:
		return moserr.Errorf(moserr.CodeProviderKeyCheckFailed, "%s key validation failed (HTTP %d)", name, resp.StatusCode)
	}
	return nil
}
