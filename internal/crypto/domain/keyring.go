package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
)

// KeyMaterial is an opaque symmetric key tagged with a monotonically
// increasing version. Key material is supplied at startup and never derived
// from request data.
type KeyMaterial struct {
	Version int
	Key     []byte
}

// Keyring holds the at-most-two live credential keys: the current key used
// for all new encryptions, and optionally the previous key kept decryptable
// while rotation is in progress.
type Keyring struct {
	Current  KeyMaterial
	Previous *KeyMaterial
}

// NewKeyring validates key sizes and version ordering and returns a keyring.
// The previous key, when present, must carry a strictly lower version than
// the current key.
func NewKeyring(current KeyMaterial, previous *KeyMaterial) (*Keyring, error) {
	if len(current.Key) != KeySize {
		return nil, ErrInvalidKeySize
	}
	if previous != nil {
		if len(previous.Key) != KeySize {
			return nil, ErrInvalidKeySize
		}
		if previous.Version >= current.Version {
			return nil, ErrInvalidKeyVersion
		}
	}
	return &Keyring{Current: current, Previous: previous}, nil
}

// ByVersion returns the key material with the given version, or nil when no
// live key carries that version.
func (k *Keyring) ByVersion(version int) *KeyMaterial {
	if k.Current.Version == version {
		return &k.Current
	}
	if k.Previous != nil && k.Previous.Version == version {
		return k.Previous
	}
	return nil
}

// Close zeroes all key material held by the keyring.
func (k *Keyring) Close() {
	Zero(k.Current.Key)
	if k.Previous != nil {
		Zero(k.Previous.Key)
	}
}

// KMSKeeper abstracts the KMS decrypt operation used to unwrap keys loaded
// from the environment when KEYRING_PROVIDER is "kms".
// *gocloud.dev/secrets.Keeper implements this interface.
type KMSKeeper interface {
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// KeyringConfig carries the raw keyring configuration values.
type KeyringConfig struct {
	// Provider is "env" for plain base64 keys or "kms" for KMS-wrapped keys.
	Provider string
	// CurrentKey is the base64-encoded current key (KMS-wrapped when Provider is "kms").
	CurrentKey string
	// CurrentVersion is the version tag of the current key.
	CurrentVersion int
	// PreviousKey is the base64-encoded previous key; empty when no rotation
	// is in progress.
	PreviousKey string
	// PreviousVersion is the version tag of the previous key.
	PreviousVersion int
}

// LoadKeyring decodes (and, for the kms provider, unwraps) the configured
// credential keys and returns a validated keyring.
//
// Key material is never logged; only versions appear in log output.
func LoadKeyring(ctx context.Context, cfg KeyringConfig, keeper KMSKeeper, logger *slog.Logger) (*Keyring, error) {
	if cfg.CurrentKey == "" {
		return nil, fmt.Errorf("credential key is not configured")
	}

	currentKey, err := decodeKey(ctx, cfg.Provider, cfg.CurrentKey, keeper)
	if err != nil {
		return nil, fmt.Errorf("failed to load current credential key: %w", err)
	}

	current := KeyMaterial{Version: cfg.CurrentVersion, Key: currentKey}

	var previous *KeyMaterial
	if cfg.PreviousKey != "" {
		previousKey, err := decodeKey(ctx, cfg.Provider, cfg.PreviousKey, keeper)
		if err != nil {
			Zero(currentKey)
			return nil, fmt.Errorf("failed to load previous credential key: %w", err)
		}
		previous = &KeyMaterial{Version: cfg.PreviousVersion, Key: previousKey}
	}

	keyring, err := NewKeyring(current, previous)
	if err != nil {
		Zero(currentKey)
		if previous != nil {
			Zero(previous.Key)
		}
		return nil, err
	}

	logger.Info("credential keyring loaded",
		slog.Int("current_version", keyring.Current.Version),
		slog.Bool("previous_present", keyring.Previous != nil),
	)

	return keyring, nil
}

// decodeKey base64-decodes a configured key and unwraps it through the KMS
// keeper when the kms provider is selected.
func decodeKey(ctx context.Context, provider, encoded string, keeper KMSKeeper) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode key: %w", err)
	}

	if provider != "kms" {
		return raw, nil
	}

	if keeper == nil {
		return nil, fmt.Errorf("kms keyring provider selected but no keeper configured")
	}

	key, err := keeper.Decrypt(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unwrap key via kms: %w", err)
	}
	Zero(raw)
	return key, nil
}
