package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	credentialDomain "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/domain"
	credentialService "github.com/JDIVE/google-workspace-remote-mcp/internal/credential/service"
)

// mockRepository is a testify mock for CredentialRepository.
type mockRepository struct {
	mock.Mock
}

func (m *mockRepository) Store(ctx context.Context, identity string, record *credentialDomain.CredentialRecord) error {
	args := m.Called(ctx, identity, record)
	return args.Error(0)
}

func (m *mockRepository) Load(ctx context.Context, identity string) (*credentialDomain.CredentialRecord, error) {
	args := m.Called(ctx, identity)
	if record := args.Get(0); record != nil {
		return record.(*credentialDomain.CredentialRecord), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRepository) Delete(ctx context.Context, identity string) error {
	args := m.Called(ctx, identity)
	return args.Error(0)
}

// mockRefreshClient is a testify mock for service.RefreshClient.
type mockRefreshClient struct {
	mock.Mock
}

func (m *mockRefreshClient) Refresh(ctx context.Context, refreshToken string) (*credentialService.RefreshResult, error) {
	args := m.Called(ctx, refreshToken)
	if result := args.Get(0); result != nil {
		return result.(*credentialService.RefreshResult), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockRefreshClient) Revoke(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func freshRecord() *credentialDomain.CredentialRecord {
	return &credentialDomain.CredentialRecord{
		AccessToken:  "fresh-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    time.Now().UTC().Add(time.Hour),
		TokenType:    credentialDomain.TokenTypeBearer,
		Scope:        "mail.read",
	}
}

func expiredRecord() *credentialDomain.CredentialRecord {
	return &credentialDomain.CredentialRecord{
		AccessToken:  "stale-access",
		RefreshToken: "stored-refresh",
		ExpiresAt:    time.Now().UTC().Add(-time.Minute),
		TokenType:    credentialDomain.TokenTypeBearer,
		Scope:        "mail.read",
	}
}

func TestCredentialUseCase_GetUsableCredential(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_FreshCredentialPassesThrough", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		record := freshRecord()
		repo.On("Load", ctx, "user-a").Return(record, nil)

		got, err := useCase.GetUsableCredential(ctx, "user-a")
		require.NoError(t, err)
		assert.Equal(t, record, got)

		repo.AssertExpectations(t)
		refreshClient.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("Success_ExpiringWithinMarginIsRefreshed", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		// Valid for two more minutes, inside the five minute margin.
		record := freshRecord()
		record.ExpiresAt = time.Now().UTC().Add(2 * time.Minute)

		repo.On("Load", ctx, "user-a").Return(record, nil)
		refreshClient.On("Refresh", ctx, "stored-refresh").Return(&credentialService.RefreshResult{
			AccessToken: "new-access",
			ExpiresIn:   3600,
		}, nil)
		repo.On("Store", ctx, "user-a", mock.AnythingOfType("*domain.CredentialRecord")).Return(nil)

		got, err := useCase.GetUsableCredential(ctx, "user-a")
		require.NoError(t, err)
		assert.Equal(t, "new-access", got.AccessToken)
		assert.Equal(t, "stored-refresh", got.RefreshToken, "refresh token is kept when the provider did not rotate it")
		assert.True(t, got.ExpiresAt.After(time.Now().UTC().Add(30*time.Minute)))

		repo.AssertExpectations(t)
		refreshClient.AssertExpectations(t)
	})

	t.Run("Success_RotatedRefreshTokenIsPersisted", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		repo.On("Load", ctx, "user-a").Return(expiredRecord(), nil)
		refreshClient.On("Refresh", ctx, "stored-refresh").Return(&credentialService.RefreshResult{
			AccessToken:  "new-access",
			ExpiresIn:    3600,
			RefreshToken: "rotated-refresh",
			Scope:        "mail.read calendar.read",
		}, nil)

		var persisted *credentialDomain.CredentialRecord
		repo.On("Store", ctx, "user-a", mock.AnythingOfType("*domain.CredentialRecord")).
			Run(func(args mock.Arguments) {
				persisted = args.Get(2).(*credentialDomain.CredentialRecord)
			}).Return(nil)

		got, err := useCase.GetUsableCredential(ctx, "user-a")
		require.NoError(t, err)

		require.NotNil(t, persisted)
		assert.Equal(t, got, persisted, "the returned record must be the one that was persisted")
		assert.Equal(t, "rotated-refresh", persisted.RefreshToken)
		assert.Equal(t, "mail.read calendar.read", persisted.Scope)
	})

	t.Run("Error_NotFound", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		repo.On("Load", ctx, "user-a").Return(nil, credentialDomain.ErrCredentialNotFound)

		_, err := useCase.GetUsableCredential(ctx, "user-a")
		assert.ErrorIs(t, err, credentialDomain.ErrCredentialNotFound)
	})

	t.Run("Error_ExpiredWithoutRefreshToken", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		record := expiredRecord()
		record.RefreshToken = ""
		repo.On("Load", ctx, "user-a").Return(record, nil)

		_, err := useCase.GetUsableCredential(ctx, "user-a")
		assert.ErrorIs(t, err, credentialDomain.ErrCredentialUnrefreshable)

		refreshClient.AssertNotCalled(t, "Refresh", mock.Anything, mock.Anything)
	})

	t.Run("Error_RefreshFailureRetainsStoredRecord", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		repo.On("Load", ctx, "user-a").Return(expiredRecord(), nil)
		refreshErr := &credentialDomain.RefreshError{StatusCode: 503}
		refreshClient.On("Refresh", ctx, "stored-refresh").Return(nil, refreshErr)

		_, err := useCase.GetUsableCredential(ctx, "user-a")
		assert.ErrorIs(t, err, refreshErr)

		repo.AssertNotCalled(t, "Store", mock.Anything, mock.Anything, mock.Anything)
		repo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	})

	t.Run("Error_PersistFailureFailsTheRefresh", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		repo.On("Load", ctx, "user-a").Return(expiredRecord(), nil)
		refreshClient.On("Refresh", ctx, "stored-refresh").Return(&credentialService.RefreshResult{
			AccessToken: "new-access",
			ExpiresIn:   3600,
		}, nil)
		repo.On("Store", ctx, "user-a", mock.AnythingOfType("*domain.CredentialRecord")).
			Return(fmt.Errorf("store unavailable"))

		_, err := useCase.GetUsableCredential(ctx, "user-a")
		assert.Error(t, err, "a refresh result that was not durably stored must never be returned")
	})
}

func TestCredentialUseCase_StoreCredential(t *testing.T) {
	ctx := context.Background()
	repo := &mockRepository{}
	refreshClient := &mockRefreshClient{}
	useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

	record := freshRecord()
	repo.On("Store", ctx, "user-a", record).Return(nil)

	require.NoError(t, useCase.StoreCredential(ctx, "user-a", record))
	repo.AssertExpectations(t)
}

func TestCredentialUseCase_Revoke(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_NotifiesProviderAndDeletes", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		repo.On("Load", ctx, "user-a").Return(freshRecord(), nil)
		refreshClient.On("Revoke", ctx, "stored-refresh").Return(nil)
		repo.On("Delete", ctx, "user-a").Return(nil)

		require.NoError(t, useCase.Revoke(ctx, "user-a"))
		repo.AssertExpectations(t)
		refreshClient.AssertExpectations(t)
	})

	t.Run("Success_FallsBackToAccessToken", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		record := freshRecord()
		record.RefreshToken = ""
		repo.On("Load", ctx, "user-a").Return(record, nil)
		refreshClient.On("Revoke", ctx, "fresh-access").Return(nil)
		repo.On("Delete", ctx, "user-a").Return(nil)

		require.NoError(t, useCase.Revoke(ctx, "user-a"))
		refreshClient.AssertExpectations(t)
	})

	t.Run("Success_DeletesDespiteProviderFailure", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		repo.On("Load", ctx, "user-a").Return(freshRecord(), nil)
		refreshClient.On("Revoke", ctx, "stored-refresh").Return(fmt.Errorf("provider down"))
		repo.On("Delete", ctx, "user-a").Return(nil)

		require.NoError(t, useCase.Revoke(ctx, "user-a"))
		repo.AssertExpectations(t)
	})

	t.Run("Success_DeletesWhenRecordIsMissing", func(t *testing.T) {
		repo := &mockRepository{}
		refreshClient := &mockRefreshClient{}
		useCase := NewCredentialUseCase(repo, refreshClient, 5*time.Minute, testLogger())

		repo.On("Load", ctx, "user-a").Return(nil, credentialDomain.ErrCredentialNotFound)
		repo.On("Delete", ctx, "user-a").Return(nil)

		require.NoError(t, useCase.Revoke(ctx, "user-a"))
		refreshClient.AssertNotCalled(t, "Revoke", mock.Anything, mock.Anything)
	})
}
