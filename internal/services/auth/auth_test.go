package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/game-rental-service/internal/lib/jwt"
	"github.com/magabrotheeeer/game-rental-service/internal/lib/password"
	"github.com/magabrotheeeer/game-rental-service/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) CreateProfile(ctx context.Context, profile models.Profile) (string, error) {
	args := m.Called(ctx, profile)
	return args.String(0), args.Error(1)
}
func (m *RepoMock) GetProfileByUsername(ctx context.Context, username string) (*models.Profile, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Profile), args.Error(1)
}

func TestRegister_CreatesFreeProfile(t *testing.T) {
	repo := new(RepoMock)
	repo.On("CreateProfile", mock.Anything, mock.MatchedBy(func(p models.Profile) bool {
		return p.Role == models.RoleFree &&
			!p.FreeTrialUsed &&
			p.PasswordHash != "" &&
			p.PasswordHash != "secret-password"
	})).Return("uid-1", nil).Once()

	svc := New(repo, jwt.NewMaker("test-secret", time.Hour))
	uid, err := svc.Register(context.Background(), "user@example.com", "user", "secret-password")

	require.NoError(t, err)
	assert.Equal(t, "uid-1", uid)
	repo.AssertExpectations(t)
}

func TestLoginAndValidate(t *testing.T) {
	hashed, err := password.GetHash("secret-password")
	require.NoError(t, err)

	repo := new(RepoMock)
	repo.On("GetProfileByUsername", mock.Anything, "user").Return(&models.Profile{
		UID:          "uid-1",
		Username:     "user",
		PasswordHash: hashed,
		Role:         models.RolePremium,
	}, nil).Once()

	svc := New(repo, jwt.NewMaker("test-secret", time.Hour))
	token, role, err := svc.Login(context.Background(), "user", "secret-password")

	require.NoError(t, err)
	assert.Equal(t, models.RolePremium, role)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user", claims.Username)
	assert.Equal(t, "premium", claims.Role)
	assert.Equal(t, "uid-1", claims.UserUID)
}

func TestLogin_WrongPassword(t *testing.T) {
	hashed, err := password.GetHash("secret-password")
	require.NoError(t, err)

	repo := new(RepoMock)
	repo.On("GetProfileByUsername", mock.Anything, "user").Return(&models.Profile{
		Username:     "user",
		PasswordHash: hashed,
		Role:         models.RoleFree,
	}, nil).Once()

	svc := New(repo, jwt.NewMaker("test-secret", time.Hour))
	_, _, err = svc.Login(context.Background(), "user", "wrong")

	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	other := jwt.NewMaker("other-secret", time.Hour)
	token, err := other.GenerateToken("user", "free", "uid-1")
	require.NoError(t, err)

	svc := New(new(RepoMock), jwt.NewMaker("test-secret", time.Hour))
	_, err = svc.ValidateToken(context.Background(), token)

	assert.Error(t, err)
}
