package app

import (
	"fmt"
	"sync"

	credentialHTTP "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/http"
	credentialRepository "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/repository"
	credentialService "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/service"
	credentialUseCase "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/usecase"
	"github.com/JDIVE/google-workspace-remote-mcp/internal/lock"

	"golang.org/x/oauth2"
)

// credentialState holds the lazily initialized credential components.
type credentialState struct {
	mutex         lock.NamedMutex
	rotator       credentialService.Rotator
	refreshClient credentialService.RefreshClient
	repository    credentialUseCase.CredentialRepository
	useCase       credentialUseCase.UseCase
	oauthConfig   *oauth2.Config
	handler       *credentialHTTP.CredentialHandler

	mutexInit         sync.Once
	rotatorInit       sync.Once
	refreshClientInit sync.Once
	repositoryInit    sync.Once
	useCaseInit       sync.Once
	oauthConfigInit   sync.Once
	handlerInit       sync.Once
}

// Mutex returns the KV-backed named mutex used for rotation locks.
func (c *Container) Mutex() (lock.NamedMutex, error) {
	c.credentialState.mutexInit.Do(func() {
		store, err := c.KVStore()
		if err != nil {
			c.initErrors["mutex"] = fmt.Errorf("failed to get kv store for mutex: %w", err)
			return
		}
		c.credentialState.mutex = lock.NewKVMutex(store)
	})
	if storedErr, exists := c.initErrors["mutex"]; exists {
		return nil, storedErr
	}
	return c.credentialState.mutex, nil
}

// Rotator returns the credential key rotation coordinator.
func (c *Container) Rotator() (credentialService.Rotator, error) {
	c.credentialState.rotatorInit.Do(func() {
		store, err := c.KVStore()
		if err != nil {
			c.initErrors["rotator"] = fmt.Errorf("failed to get kv store for rotator: %w", err)
			return
		}

		engine, err := c.CryptoEngine()
		if err != nil {
			c.initErrors["rotator"] = fmt.Errorf("failed to get crypto engine for rotator: %w", err)
			return
		}

		mutex, err := c.Mutex()
		if err != nil {
			c.initErrors["rotator"] = fmt.Errorf("failed to get mutex for rotator: %w", err)
			return
		}

		c.credentialState.rotator = credentialService.NewRotationCoordinator(
			store,
			engine,
			mutex,
			c.config.RotationLockTTL,
			c.config.RotationMaxRetries,
			c.config.CredentialTTL,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["rotator"]; exists {
		return nil, storedErr
	}
	return c.credentialState.rotator, nil
}

// RefreshClient returns the upstream OAuth refresh client.
func (c *Container) RefreshClient() credentialService.RefreshClient {
	c.credentialState.refreshClientInit.Do(func() {
		c.credentialState.refreshClient = credentialService.NewHTTPRefreshClient(
			c.config.OAuthTokenURL,
			c.config.OAuthRevokeURL,
			c.config.OAuthClientID,
			c.config.OAuthClientSecret,
		)
	})
	return c.credentialState.refreshClient
}

// CredentialRepository returns the encrypted credential repository.
func (c *Container) CredentialRepository() (credentialUseCase.CredentialRepository, error) {
	c.credentialState.repositoryInit.Do(func() {
		store, err := c.KVStore()
		if err != nil {
			c.initErrors["credentialRepo"] = fmt.Errorf("failed to get kv store for credential repository: %w", err)
			return
		}

		engine, err := c.CryptoEngine()
		if err != nil {
			c.initErrors["credentialRepo"] = fmt.Errorf("failed to get crypto engine for credential repository: %w", err)
			return
		}

		rotator, err := c.Rotator()
		if err != nil {
			c.initErrors["credentialRepo"] = fmt.Errorf("failed to get rotator for credential repository: %w", err)
			return
		}

		c.credentialState.repository = credentialRepository.NewKVCredentialRepository(
			store,
			engine,
			rotator,
			c.config.CredentialTTL,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["credentialRepo"]; exists {
		return nil, storedErr
	}
	return c.credentialState.repository, nil
}

// CredentialUseCase returns the credential lifecycle use case, decorated with
// metrics when metrics are enabled.
func (c *Container) CredentialUseCase() (credentialUseCase.UseCase, error) {
	c.credentialState.useCaseInit.Do(func() {
		repo, err := c.CredentialRepository()
		if err != nil {
			c.initErrors["credentialUseCase"] = fmt.Errorf("failed to get repository for credential use case: %w", err)
			return
		}

		useCase := credentialUseCase.NewCredentialUseCase(
			repo,
			c.RefreshClient(),
			c.config.CredentialExpiryMargin,
			c.Logger(),
		)

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["credentialUseCase"] = fmt.Errorf("failed to get metrics for credential use case: %w", err)
			return
		}
		if businessMetrics != nil {
			useCase = credentialUseCase.NewUseCaseWithMetrics(useCase, businessMetrics)
		}

		c.credentialState.useCase = useCase
	})
	if storedErr, exists := c.initErrors["credentialUseCase"]; exists {
		return nil, storedErr
	}
	return c.credentialState.useCase, nil
}

// OAuthConfig returns the upstream provider's OAuth configuration.
func (c *Container) OAuthConfig() *oauth2.Config {
	c.credentialState.oauthConfigInit.Do(func() {
		c.credentialState.oauthConfig = &oauth2.Config{
			ClientID:     c.config.OAuthClientID,
			ClientSecret: c.config.OAuthClientSecret,
			RedirectURL:  c.config.OAuthRedirectURL,
			Scopes:       parseScopes(c.config.OAuthScopes),
			Endpoint: oauth2.Endpoint{
				AuthURL:  c.config.OAuthAuthURL,
				TokenURL: c.config.OAuthTokenURL,
			},
		}
	})
	return c.credentialState.oauthConfig
}

// CredentialHandler returns the credential HTTP handler.
func (c *Container) CredentialHandler() (*credentialHTTP.CredentialHandler, error) {
	c.credentialState.handlerInit.Do(func() {
		useCase, err := c.CredentialUseCase()
		if err != nil {
			c.initErrors["credentialHandler"] = fmt.Errorf("failed to get use case for credential handler: %w", err)
			return
		}

		stateManager, err := c.StateManager()
		if err != nil {
			c.initErrors["credentialHandler"] = fmt.Errorf("failed to get state manager for credential handler: %w", err)
			return
		}

		issuer, err := c.SessionIssuer()
		if err != nil {
			c.initErrors["credentialHandler"] = fmt.Errorf("failed to get session issuer for credential handler: %w", err)
			return
		}

		c.credentialState.handler = credentialHTTP.NewCredentialHandler(
			useCase,
			stateManager,
			issuer,
			c.OAuthConfig(),
			int64(c.config.SessionTokenTTL.Seconds()),
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["credentialHandler"]; exists {
		return nil, storedErr
	}
	return c.credentialState.handler, nil
}
