package domain

// Algorithm represents the cryptographic algorithm used for credential encryption.
//
// Both supported algorithms provide Authenticated Encryption with Associated
// Data (AEAD), so tampering with stored ciphertext is detected at decryption
// time rather than producing garbage plaintext.
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	// Preferred on CPUs with AES-NI hardware acceleration.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption
	// algorithm. Preferred on platforms without AES hardware acceleration.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the required key length in bytes for both algorithms (256 bits).
const KeySize = 32
