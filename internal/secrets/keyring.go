// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	moserr "github.com/arc-dev/mos/pkg/errors"
)

// indexSuffix names the entry that lists a service's keys, since the OS
// keyrings cannot enumerate.
const indexSuffix = "::index"

var _ Store = (*KeyringStore)(nil)

// KeyringStore is the go-keyring backed Store: Keychain on macOS,
// secret-service on Linux, Credential Manager on Windows.
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func checkRef(op, service, key string) error {
	if service == "" || key == "" {
		return moserr.Errorf(moserr.CodeSecretInvalidInput, "secret %s: service and key must not be empty", op)
	}
	return nil
}

func (s *KeyringStore) Set(service, key, value string) error {
	if err := checkRef("set", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return moserr.Wrapf(err, moserr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}

	keys, err := s.List(service)
	if err != nil {
		return err
	}
	if slices.Contains(keys, key) {
		return nil
	}
	return s.saveIndex(service, append(keys, key))
}

func (s *KeyringStore) Get(service, key string) (string, error) {
	if err := checkRef("get", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", moserr.Errorf(moserr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", moserr.Wrapf(err, moserr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkRef("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return moserr.Errorf(moserr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return moserr.Wrapf(err, moserr.CodeSecretDeleteFailure, "deleting secret %s/%s", service, key)
	}

	keys, err := s.List(service)
	if err != nil {
		return err
	}
	return s.saveIndex(service, slices.DeleteFunc(keys, func(k string) bool { return k == key }))
}

func (s *KeyringStore) List(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+indexSuffix)
	if errors.Is(err, keyring.ErrNotFound) {
		return []string{}, nil
	}
	if err != nil {
		return nil, moserr.Wrapf(err, moserr.CodeSecretStoreFailure, "reading key index of %s", service)
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, moserr.Wrapf(err, moserr.CodeSecretStoreFailure, "decoding key index of %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) saveIndex(service string, keys []string) error {
	indexKey := service + indexSuffix
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("removing empty key index", slog.String("service", service), slog.Any("error", err))
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return moserr.Wrapf(err, moserr.CodeSecretStoreFailure, "encoding key index of %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return moserr.Wrapf(err, moserr.CodeSecretStoreFailure, "saving key index of %s", service)
	}
	return nil
}
