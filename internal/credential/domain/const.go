package domain

// Key-value store namespaces for the credential subsystem.
const (
	// TokenKeyPrefix namespaces encrypted credential records per identity.
	TokenKeyPrefix = "tokens:"

	// RotationLockPrefix namespaces the per-identity rotation locks.
	RotationLockPrefix = "rotate:"
)

// TokenKey returns the store key for an identity's credential record.
func TokenKey(identity string) string {
	return TokenKeyPrefix + identity
}

// RotationLockKey returns the store key for an identity's rotation lock.
func RotationLockKey(identity string) string {
	return RotationLockPrefix + identity
}

// IdentityFromTokenKey strips the credential namespace prefix from a store
// key. Returns the empty string when the key is not in the namespace.
func IdentityFromTokenKey(key string) string {
	if len(key) <= len(TokenKeyPrefix) || key[:len(TokenKeyPrefix)] != TokenKeyPrefix {
		return ""
	}
	return key[len(TokenKeyPrefix):]
}
