package commands

import (
	"context"
	"encoding/base64"
	"fmt"

	cryptoDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/domain"
	cryptoService "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/service"
)

// RunGenerateCredentialKey generates a new 32-byte credential encryption key
// and prints the environment configuration for it. Key material is zeroed
// after encoding.
//
// When kmsKeyURI is set, the key is wrapped by the KMS keeper before output
// and KEYRING_PROVIDER=kms configuration is printed instead.
//
// Output format:
//   - CREDENTIAL_KEY="<base64 key or wrapped key>"
//   - CREDENTIAL_KEY_VERSION="<version>"
func RunGenerateCredentialKey(ctx context.Context, version int, kmsKeyURI string) error {
	if version < 1 {
		return fmt.Errorf("version must be a positive number, got: %d", version)
	}

	key, err := cryptoService.GenerateKey()
	if err != nil {
		return fmt.Errorf("failed to generate credential key: %w", err)
	}
	defer cryptoDomain.Zero(key)

	output := key
	if kmsKeyURI != "" {
		keeper, err := cryptoService.NewKMSService().OpenKeeper(ctx, kmsKeyURI)
		if err != nil {
			return fmt.Errorf("failed to open KMS keeper: %w", err)
		}

		encrypter, ok := keeper.(interface {
			Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
		})
		if !ok {
			return fmt.Errorf("KMS keeper does not support encryption")
		}

		wrapped, err := encrypter.Encrypt(ctx, key)
		if err != nil {
			return fmt.Errorf("failed to wrap credential key with KMS: %w", err)
		}
		output = wrapped

		fmt.Println("# KMS mode: key is wrapped, set the matching keeper configuration")
		fmt.Println(`KEYRING_PROVIDER="kms"`)
		fmt.Printf("KMS_KEY_URI=%q\n", kmsKeyURI)
	} else {
		fmt.Println("# Plain mode: store this key in a secret manager, never in source control")
		fmt.Println(`KEYRING_PROVIDER="env"`)
	}

	fmt.Printf("CREDENTIAL_KEY=%q\n", base64.StdEncoding.EncodeToString(output))
	fmt.Printf("CREDENTIAL_KEY_VERSION=%q\n", fmt.Sprintf("%d", version))
	fmt.Println()
	fmt.Println("# To rotate: move the current key to CREDENTIAL_KEY_PREVIOUS(_VERSION),")
	fmt.Println("# set the new key here with a higher version, then run rotate-credential-keys.")

	return nil
}
