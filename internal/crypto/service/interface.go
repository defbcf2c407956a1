// Package service provides the cryptographic engine that protects stored
// delegated credentials. It implements AEAD ciphers (AES-256-GCM,
// ChaCha20-Poly1305) and versioned-key encryption with two-generation
// rotation support.
package service

import (
	cryptoDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// Engine defines versioned encryption of opaque byte strings under the
// configured keyring.
type Engine interface {
	// Encrypt encrypts plaintext under the current key and returns a record
	// tagged with that key's version. A fresh nonce is generated on every
	// call, so repeated encryption of the same plaintext yields different
	// records.
	Encrypt(plaintext []byte) (*cryptoDomain.EncryptedRecord, error)

	// Decrypt recovers the plaintext of a record. The key whose version
	// matches the record is tried first; when it is absent or fails
	// verification and a previous key exists, the previous key is tried.
	// usedFallback reports that the plaintext was recovered under a key other
	// than the current one, signaling that the record should be rotated.
	// Fails with domain.ErrDecryptionFailed only after all keys are exhausted.
	Decrypt(record *cryptoDomain.EncryptedRecord) (plaintext []byte, usedFallback bool, err error)

	// CurrentVersion returns the version tag of the key used for new encryptions.
	CurrentVersion() int
}

// GenerateKey produces cryptographically random key material suitable for
// either supported algorithm. The result must never be logged or exposed
// through any diagnostic path.
func GenerateKey() ([]byte, error) {
	return generateRandomKey()
}
