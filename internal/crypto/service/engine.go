package service

import (
	"crypto/rand"
	"fmt"

	cryptoDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/domain"
)

// CryptoEngine implements Engine on top of the configured keyring.
//
// Ciphers for both live keys are built once at construction, so the hot path
// performs no key schedule work. The engine holds no per-request state and is
// safe for concurrent use.
type CryptoEngine struct {
	keyring        *cryptoDomain.Keyring
	currentCipher  AEAD
	previousCipher AEAD
}

// Compile-time interface check.
var _ Engine = (*CryptoEngine)(nil)

// NewCryptoEngine creates an engine for the given keyring and algorithm.
func NewCryptoEngine(
	keyring *cryptoDomain.Keyring,
	aeadManager AEADManager,
	alg cryptoDomain.Algorithm,
) (*CryptoEngine, error) {
	currentCipher, err := aeadManager.CreateCipher(keyring.Current.Key, alg)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher for current key: %w", err)
	}

	engine := &CryptoEngine{
		keyring:       keyring,
		currentCipher: currentCipher,
	}

	if keyring.Previous != nil {
		previousCipher, err := aeadManager.CreateCipher(keyring.Previous.Key, alg)
		if err != nil {
			return nil, fmt.Errorf("failed to create cipher for previous key: %w", err)
		}
		engine.previousCipher = previousCipher
	}

	return engine, nil
}

// Encrypt encrypts plaintext under the current key. The returned record
// carries the current key version and a nonce generated fresh for this call.
func (e *CryptoEngine) Encrypt(plaintext []byte) (*cryptoDomain.EncryptedRecord, error) {
	ciphertext, nonce, err := e.currentCipher.Encrypt(plaintext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt record: %w", err)
	}

	return &cryptoDomain.EncryptedRecord{
		Version:    e.keyring.Current.Version,
		Ciphertext: ciphertext,
		Nonce:      nonce,
	}, nil
}

// Decrypt recovers the plaintext of a record, trying the version-matching key
// first and falling back to the previous key.
//
// All failure causes collapse into ErrDecryptionFailed: the caller cannot
// tell a wrong key from tampered ciphertext, and no error detail reveals
// which keys were attempted.
func (e *CryptoEngine) Decrypt(record *cryptoDomain.EncryptedRecord) ([]byte, bool, error) {
	// Try the key whose version matches the record, when it is still live.
	if cipher := e.cipherForVersion(record.Version); cipher != nil {
		if plaintext, err := cipher.Decrypt(record.Ciphertext, record.Nonce, nil); err == nil {
			return plaintext, record.Version != e.keyring.Current.Version, nil
		}
	}

	// Version-matching key absent or failed: retry with the previous key if
	// the record did not already name it.
	if e.previousCipher != nil && record.Version != e.keyring.Previous.Version {
		if plaintext, err := e.previousCipher.Decrypt(record.Ciphertext, record.Nonce, nil); err == nil {
			return plaintext, true, nil
		}
	}

	return nil, false, cryptoDomain.ErrDecryptionFailed
}

// CurrentVersion returns the version tag of the current key.
func (e *CryptoEngine) CurrentVersion() int {
	return e.keyring.Current.Version
}

// cipherForVersion returns the cipher for a live key version, or nil.
func (e *CryptoEngine) cipherForVersion(version int) AEAD {
	if version == e.keyring.Current.Version {
		return e.currentCipher
	}
	if e.keyring.Previous != nil && version == e.keyring.Previous.Version {
		return e.previousCipher
	}
	return nil
}

// generateRandomKey produces a random 32-byte key from crypto/rand.
func generateRandomKey() ([]byte, error) {
	key := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	return key, nil
}
