package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/libinstruct/lir-api/internal/models"
	appErrors "github.com/libinstruct/lir-api/pkg/errors"
)

type authUserStoreStub struct {
	users map[string]*models.User
}

func (s *authUserStoreStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authUserStoreStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func newAuthFixture(t *testing.T) (*AuthService, *models.User) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		ID:           "user-1",
		Email:        "ada@example.edu",
		PasswordHash: string(hash),
		DisplayName:  "Ada Park",
		Role:         models.RoleLibrarian,
		Active:       true,
	}
	store := &authUserStoreStub{users: map[string]*models.User{user.ID: user}}
	svc := NewAuthService(store, nil, nil, AuthConfig{
		Secret: "test-secret",
		Expiry: time.Hour,
		Issuer: "lir-api",
	})
	return svc, user
}

func TestAuthServiceLoginAndValidate(t *testing.T) {
	svc, user := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.Equal(t, user.DisplayName, resp.User.DisplayName)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, models.RoleLibrarian, claims.Role)
	require.True(t, claims.Can(models.CapabilityCreate))
	require.False(t, claims.Can(models.CapabilityManage))
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, user := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    user.Email,
		Password: "wrong",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginInactiveAccount(t *testing.T) {
	svc, user := newAuthFixture(t)
	user.Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{
		Email:    user.Email,
		Password: "correct horse",
	})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
}
