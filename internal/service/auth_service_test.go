package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/edusuite/presence-api/internal/models"
	appErrors "github.com/edusuite/presence-api/pkg/errors"
)

type userRepoStub struct {
	user *models.User
}

func (s *userRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *userRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return s.user, nil
}

func (s *userRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func newAuthServiceForTest(t *testing.T, password string, active bool) *AuthService {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &userRepoStub{user: &models.User{
		ID:           "user-1",
		Email:        "supervisor@school.test",
		PasswordHash: string(hash),
		FullName:     "Binta Faye",
		Role:         models.RoleSupervisor,
		Active:       active,
	}}
	return NewAuthService(repo, nil, zap.NewNop(), AuthConfig{
		TokenSecret: "test-secret",
		TokenExpiry: time.Hour,
		Issuer:      "presence-api",
	})
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc := newAuthServiceForTest(t, "s3cret", true)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "supervisor@school.test",
		Password: "s3cret",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleSupervisor, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, models.RoleSupervisor, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc := newAuthServiceForTest(t, "s3cret", true)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "supervisor@school.test",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginRejectsInactiveAccount(t *testing.T) {
	svc := newAuthServiceForTest(t, "s3cret", false)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    "supervisor@school.test",
		Password: "s3cret",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc := newAuthServiceForTest(t, "s3cret", true)

	_, err := svc.ValidateToken("not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
