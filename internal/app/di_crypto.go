package app

import (
	"context"
	"fmt"
	"sync"

	cryptoDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/domain"
	cryptoService "github.com/JDIVE/google-workspace-remote-mcp/internal/crypto/service"
)

// cryptoState holds the lazily initialized crypto components.
type cryptoState struct {
	kmsService cryptoService.KMSService
	keyring    *cryptoDomain.Keyring
	engine     cryptoService.Engine

	kmsServiceInit sync.Once
	keyringInit    sync.Once
	engineInit     sync.Once
}

// KMSService returns the KMS service used to unwrap credential keys.
func (c *Container) KMSService() cryptoService.KMSService {
	c.cryptoState.kmsServiceInit.Do(func() {
		c.cryptoState.kmsService = cryptoService.NewKMSService()
	})
	return c.cryptoState.kmsService
}

// Keyring returns the loaded credential keyring.
func (c *Container) Keyring() (*cryptoDomain.Keyring, error) {
	c.cryptoState.keyringInit.Do(func() {
		keyring, err := c.initKeyring()
		if err != nil {
			c.initErrors["keyring"] = err
			return
		}
		c.cryptoState.keyring = keyring
	})
	if storedErr, exists := c.initErrors["keyring"]; exists {
		return nil, storedErr
	}
	return c.cryptoState.keyring, nil
}

// CryptoEngine returns the AEAD engine for credential records.
func (c *Container) CryptoEngine() (cryptoService.Engine, error) {
	c.cryptoState.engineInit.Do(func() {
		engine, err := c.initCryptoEngine()
		if err != nil {
			c.initErrors["cryptoEngine"] = err
			return
		}
		c.cryptoState.engine = engine
	})
	if storedErr, exists := c.initErrors["cryptoEngine"]; exists {
		return nil, storedErr
	}
	return c.cryptoState.engine, nil
}

// initKeyring loads and validates the credential keyring from configuration,
// opening a KMS keeper first when the kms provider is selected.
func (c *Container) initKeyring() (*cryptoDomain.Keyring, error) {
	ctx := context.Background()

	var keeper cryptoDomain.KMSKeeper
	if c.config.KeyringProvider == "kms" {
		opened, err := c.KMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
		if err != nil {
			return nil, fmt.Errorf("failed to open kms keeper for keyring: %w", err)
		}
		keeper = opened
	}

	keyring, err := cryptoDomain.LoadKeyring(ctx, cryptoDomain.KeyringConfig{
		Provider:        c.config.KeyringProvider,
		CurrentKey:      c.config.CredentialKey,
		CurrentVersion:  c.config.CredentialKeyVersion,
		PreviousKey:     c.config.CredentialKeyPrevious,
		PreviousVersion: c.config.CredentialKeyPreviousVersion,
	}, keeper, c.Logger())
	if err != nil {
		return nil, fmt.Errorf("failed to load keyring: %w", err)
	}

	return keyring, nil
}

// initCryptoEngine creates the AEAD engine for the configured cipher.
func (c *Container) initCryptoEngine() (cryptoService.Engine, error) {
	keyring, err := c.Keyring()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring for crypto engine: %w", err)
	}

	engine, err := cryptoService.NewCryptoEngine(
		keyring,
		cryptoService.NewAEADManager(),
		cryptoDomain.Algorithm(c.config.CredentialCipher),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create crypto engine: %w", err)
	}

	return engine, nil
}
