package domain

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, KeySize)
}

func TestNewKeyring(t *testing.T) {
	t.Run("Success_CurrentOnly", func(t *testing.T) {
		keyring, err := NewKeyring(KeyMaterial{Version: 1, Key: testKey(0x01)}, nil)
		require.NoError(t, err)
		assert.Equal(t, 1, keyring.Current.Version)
		assert.Nil(t, keyring.Previous)
	})

	t.Run("Success_CurrentAndPrevious", func(t *testing.T) {
		keyring, err := NewKeyring(
			KeyMaterial{Version: 2, Key: testKey(0x02)},
			&KeyMaterial{Version: 1, Key: testKey(0x01)},
		)
		require.NoError(t, err)
		require.NotNil(t, keyring.Previous)
		assert.Equal(t, 1, keyring.Previous.Version)
	})

	t.Run("Error_CurrentKeyWrongSize", func(t *testing.T) {
		_, err := NewKeyring(KeyMaterial{Version: 1, Key: []byte("too-short")}, nil)
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("Error_PreviousKeyWrongSize", func(t *testing.T) {
		_, err := NewKeyring(
			KeyMaterial{Version: 2, Key: testKey(0x02)},
			&KeyMaterial{Version: 1, Key: []byte("too-short")},
		)
		assert.ErrorIs(t, err, ErrInvalidKeySize)
	})

	t.Run("Error_PreviousVersionNotLower", func(t *testing.T) {
		_, err := NewKeyring(
			KeyMaterial{Version: 2, Key: testKey(0x02)},
			&KeyMaterial{Version: 2, Key: testKey(0x01)},
		)
		assert.ErrorIs(t, err, ErrInvalidKeyVersion)

		_, err = NewKeyring(
			KeyMaterial{Version: 2, Key: testKey(0x02)},
			&KeyMaterial{Version: 3, Key: testKey(0x01)},
		)
		assert.ErrorIs(t, err, ErrInvalidKeyVersion)
	})
}

func TestKeyring_ByVersion(t *testing.T) {
	keyring, err := NewKeyring(
		KeyMaterial{Version: 2, Key: testKey(0x02)},
		&KeyMaterial{Version: 1, Key: testKey(0x01)},
	)
	require.NoError(t, err)

	t.Run("Success_CurrentVersion", func(t *testing.T) {
		material := keyring.ByVersion(2)
		require.NotNil(t, material)
		assert.Equal(t, testKey(0x02), material.Key)
	})

	t.Run("Success_PreviousVersion", func(t *testing.T) {
		material := keyring.ByVersion(1)
		require.NotNil(t, material)
		assert.Equal(t, testKey(0x01), material.Key)
	})

	t.Run("Success_UnknownVersion", func(t *testing.T) {
		assert.Nil(t, keyring.ByVersion(99))
	})
}

func TestKeyring_Close(t *testing.T) {
	keyring, err := NewKeyring(
		KeyMaterial{Version: 2, Key: testKey(0x02)},
		&KeyMaterial{Version: 1, Key: testKey(0x01)},
	)
	require.NoError(t, err)

	keyring.Close()

	assert.Equal(t, testKey(0x00), keyring.Current.Key, "current key material should be zeroed")
	assert.Equal(t, testKey(0x00), keyring.Previous.Key, "previous key material should be zeroed")
}

// fakeKeeper unwraps keys by stripping a fixed prefix.
type fakeKeeper struct {
	failNext bool
}

func (f *fakeKeeper) Decrypt(_ context.Context, ciphertext []byte) ([]byte, error) {
	if f.failNext {
		return nil, fmt.Errorf("kms unavailable")
	}
	// Copy: the caller zeroes its input after unwrapping.
	return append([]byte(nil), bytes.TrimPrefix(ciphertext, []byte("wrapped:"))...), nil
}

func TestLoadKeyring(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	t.Run("Success_EnvProvider", func(t *testing.T) {
		cfg := KeyringConfig{
			Provider:       "env",
			CurrentKey:     base64.StdEncoding.EncodeToString(testKey(0x02)),
			CurrentVersion: 2,
		}

		keyring, err := LoadKeyring(ctx, cfg, nil, logger)
		require.NoError(t, err)
		assert.Equal(t, 2, keyring.Current.Version)
		assert.Equal(t, testKey(0x02), keyring.Current.Key)
		assert.Nil(t, keyring.Previous)
	})

	t.Run("Success_EnvProviderWithPrevious", func(t *testing.T) {
		cfg := KeyringConfig{
			Provider:        "env",
			CurrentKey:      base64.StdEncoding.EncodeToString(testKey(0x02)),
			CurrentVersion:  2,
			PreviousKey:     base64.StdEncoding.EncodeToString(testKey(0x01)),
			PreviousVersion: 1,
		}

		keyring, err := LoadKeyring(ctx, cfg, nil, logger)
		require.NoError(t, err)
		require.NotNil(t, keyring.Previous)
		assert.Equal(t, 1, keyring.Previous.Version)
	})

	t.Run("Success_KMSProvider", func(t *testing.T) {
		wrapped := append([]byte("wrapped:"), testKey(0x03)...)
		cfg := KeyringConfig{
			Provider:       "kms",
			CurrentKey:     base64.StdEncoding.EncodeToString(wrapped),
			CurrentVersion: 1,
		}

		keyring, err := LoadKeyring(ctx, cfg, &fakeKeeper{}, logger)
		require.NoError(t, err)
		assert.Equal(t, testKey(0x03), keyring.Current.Key)
	})

	t.Run("Error_MissingCurrentKey", func(t *testing.T) {
		_, err := LoadKeyring(ctx, KeyringConfig{Provider: "env"}, nil, logger)
		assert.Error(t, err)
	})

	t.Run("Error_InvalidBase64", func(t *testing.T) {
		cfg := KeyringConfig{
			Provider:       "env",
			CurrentKey:     "not base64!!!",
			CurrentVersion: 1,
		}

		_, err := LoadKeyring(ctx, cfg, nil, logger)
		assert.Error(t, err)
	})

	t.Run("Error_KMSProviderWithoutKeeper", func(t *testing.T) {
		cfg := KeyringConfig{
			Provider:       "kms",
			CurrentKey:     base64.StdEncoding.EncodeToString(testKey(0x01)),
			CurrentVersion: 1,
		}

		_, err := LoadKeyring(ctx, cfg, nil, logger)
		assert.Error(t, err)
	})

	t.Run("Error_KMSUnwrapFails", func(t *testing.T) {
		cfg := KeyringConfig{
			Provider:       "kms",
			CurrentKey:     base64.StdEncoding.EncodeToString(testKey(0x01)),
			CurrentVersion: 1,
		}

		_, err := LoadKeyring(ctx, cfg, &fakeKeeper{failNext: true}, logger)
		assert.Error(t, err)
	})

	t.Run("Error_VersionOrderingRejected", func(t *testing.T) {
		cfg := KeyringConfig{
			Provider:        "env",
			CurrentKey:      base64.StdEncoding.EncodeToString(testKey(0x02)),
			CurrentVersion:  1,
			PreviousKey:     base64.StdEncoding.EncodeToString(testKey(0x01)),
			PreviousVersion: 1,
		}

		_, err := LoadKeyring(ctx, cfg, nil, logger)
		assert.ErrorIs(t, err, ErrInvalidKeyVersion)
	})
}
