package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// sessionSecretBytes is the entropy of a generated session signing secret.
const sessionSecretBytes = 48

// RunGenerateSessionSecret generates a random HMAC signing secret for gateway
// session tokens and prints the environment configuration for it.
//
// Changing the secret invalidates every outstanding session token; clients
// must authorize again to obtain new ones.
func RunGenerateSessionSecret() error {
	secret := make([]byte, sessionSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return fmt.Errorf("failed to generate session secret: %w", err)
	}

	fmt.Println("# Store this secret in a secret manager, never in source control")
	fmt.Printf("SESSION_SECRET=%q\n", base64.StdEncoding.EncodeToString(secret))

	return nil
}
