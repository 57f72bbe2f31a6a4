// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Arc Contributors

package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/arc-dev/mos/internal/secrets"
	moserr "github.com/arc-dev/mos/pkg/errors"
)

func init() {
	keyring.MockInit()
}

func TestKeyringStore_SetGetDelete(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-roundtrip"

	require.NoError(t, ks.Set(svc, "openai_api_key", "sk-1"))
	require.NoError(t, ks.Set(svc, "openai_api_key", "sk-2"))

	val, err := ks.Get(svc, "openai_api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-2", val)

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"openai_api_key"}, keys)

	require.NoError(t, ks.Delete(svc, "openai_api_key"))
	_, err = ks.Get(svc, "openai_api_key")
	assert.True(t, moserr.HasCode(err, moserr.CodeSecretNotFound))

	keys, err = ks.List(svc)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestKeyringStore_NotFound(t *testing.T) {
	ks := secrets.NewKeyringStore()

	_, err := ks.Get("no-such-service", "no-key")
	assert.True(t, moserr.IsNotFound(err), "got %v", err)

	err = ks.Delete("no-such-service", "no-key")
	assert.True(t, moserr.IsNotFound(err), "got %v", err)
}

func TestKeyringStore_ListKeepsInsertionOrder(t *testing.T) {
	ks := secrets.NewKeyringStore()
	svc := "test-list"

	for _, k := range []string{"b", "a", "c"} {
		require.NoError(t, ks.Set(svc, k, "v"))
	}
	require.NoError(t, ks.Delete(svc, "a"))

	keys, err := ks.List(svc)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, keys)
}

func TestKeyringStore_EmptyRef(t *testing.T) {
	ks := secrets.NewKeyringStore()

	assert.True(t, moserr.IsInvalidInput(ks.Set("", "k", "v")))
	assert.True(t, moserr.IsInvalidInput(ks.Set("svc", "", "v")))
	_, err := ks.Get("svc", "")
	assert.True(t, moserr.IsInvalidInput(err))
	assert.True(t, moserr.IsInvalidInput(ks.Delete("", "k")))

	assert.NoError(t, ks.Set("test-empty-value", "k", ""))
}

func TestProviderURI(t *testing.T) {
	assert.Equal(t, "anthropic_api_key", secrets.ProviderKey("anthropic"))
	assert.Equal(t, "keyring://mos/google_api_key", secrets.ProviderURI("google"))
}
