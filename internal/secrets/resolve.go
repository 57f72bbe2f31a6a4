// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package secrets

import (
	"strings"

	"github.com/spf13/viper"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

const keyringScheme = "keyring://"

// IsKeyringURI reports whether value is a keyring://service/key reference.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI splits keyring://service/key. The key may contain slashes.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", moserr.Errorf(moserr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", moserr.Errorf(moserr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// Resolve returns value unchanged unless it is a keyring URI, in which case
// the referenced secret is returned.
func Resolve(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}
	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", moserr.Wrapf(err, moserr.CodeSecretResolveFailure, "resolving %q", value)
	}
	return secret, nil
}

// ResolveViper replaces every keyring URI among v's string values with the
// secret it names. Unresolvable entries keep their URI and are reported so
// the caller can decide whether a missing key matters.
func ResolveViper(v *viper.Viper, store Store) []error {
	var errs []error
	for _, key := range v.AllKeys() {
		val, ok := v.Get(key).(string)
		if !ok || !IsKeyringURI(val) {
			continue
		}
		resolved, err := Resolve(store, val)
		if err != nil {
			errs = append(errs, moserr.With(err, moserr.Field("config_key", key)))
			continue
		}
		v.Set(key, resolved)
	}
	return errs
}
