package domain

import (
	"github.com/JDIVE/google-workspace-remote-mcp/internal/errors"
)

// Cryptographic operation error definitions.
var (
	// ErrUnsupportedAlgorithm indicates the requested encryption algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates the cryptographic key size is invalid.
	// All credential keys must be exactly 32 bytes (256 bits).
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed indicates a decryption operation failed after every
	// available key was tried.
	//
	// Wrong key, tampered ciphertext, corrupted nonce and truncated data are
	// deliberately indistinguishable through this error: disclosing which
	// case occurred would hand an attacker an oracle.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrInvalidKeyVersion indicates a keyring was constructed with
	// non-monotonic key versions.
	ErrInvalidKeyVersion = errors.Wrap(errors.ErrInvalidInput, "invalid key version")
)
