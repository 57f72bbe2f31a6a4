// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

// Package secrets keeps provider API keys in the OS keyring and resolves
// keyring:// references in configuration.
package secrets

// Service is the keyring service mos stores its own secrets under.
const Service = "mos"

// Store is a key/value secret backend partitioned by service.
type Store interface {
	// Set saves value under service/key, replacing any previous value.
	Set(service, key, value string) error

	// Get returns CodeSecretNotFound when service/key does not exist.
	Get(service, key string) (string, error)

	// Delete returns CodeSecretNotFound when service/key does not exist.
	Delete(service, key string) error

	// List returns the key names stored under service, in insertion order.
	List(service string) ([]string, error)
}

// ProviderKey is the keyring key holding the API key of a provider.
func ProviderKey(provider string) string {
	return provider + "_api_key"
}

// ProviderURI is the config value that points providers.{name}.api_key at
// the keyring entry written by `mos secret set`.
func ProviderURI(provider string) string {
	return keyringScheme + Service + "/" + ProviderKey(provider)
}
