package services

import (
	"testing"

	"treasure-hunt-api/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) *AuthService {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-do-not-use")
	db := newTestDB(t)
	return NewAuthService(db, nil)
}

func registerTestUser(t *testing.T, svc *AuthService, loginID, password string) *models.User {
	t.Helper()
	user, err := svc.Register(loginID, password, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	return user
}

func TestRegisterValidatesLoginID(t *testing.T) {
	svc := newAuthService(t)

	cases := []string{"ab", "has space", "way-too-long-login-id-over-thirty-chars", "bad!char"}
	for _, loginID := range cases {
		_, err := svc.Register(loginID, "password123", nil, nil)
		require.ErrorIs(t, err, ErrInvalidLoginID, "login_id %q should be rejected", loginID)
	}

	_, err := svc.Register("good.login_id-1", "password123", nil, nil)
	require.NoError(t, err)
}

func TestRegisterDuplicateLoginID(t *testing.T) {
	svc := newAuthService(t)
	registerTestUser(t, svc, "hunter01", "password123")

	_, err := svc.Register("hunter01", "password456", nil, nil)
	require.ErrorIs(t, err, ErrLoginIDTaken)
}

func TestLoginAndVerifyToken(t *testing.T) {
	svc := newAuthService(t)
	registerTestUser(t, svc, "hunter01", "password123")

	user, pair, err := svc.Login("hunter01", "password123")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.VerifyToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "hunter01", claims.LoginID)
	require.Equal(t, "access", claims.Type)
	require.Empty(t, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc := newAuthService(t)
	registerTestUser(t, svc, "hunter01", "password123")

	_, _, err := svc.Login("hunter01", "wrong-password")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("nobody", "password123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginBlockedUser(t *testing.T) {
	svc := newAuthService(t)
	user := registerTestUser(t, svc, "hunter01", "password123")
	require.NoError(t, svc.DB.Model(&models.User{}).Where("id = ?", user.ID).Update("status", models.UserStatusBlocked).Error)

	_, _, err := svc.Login("hunter01", "password123")
	require.ErrorIs(t, err, ErrUserNotActive)
}

func TestAdminClaimsOnLogin(t *testing.T) {
	svc := newAuthService(t)
	user := registerTestUser(t, svc, "operator01", "password123")
	admin := models.Admin{ID: uuid.NewString(), UserID: user.ID, Role: "admin"}
	require.NoError(t, svc.DB.Create(&admin).Error)

	_, pair, err := svc.Login("operator01", "password123")
	require.NoError(t, err)

	claims, err := svc.VerifyToken(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "admin", claims.Role)
	require.Equal(t, admin.ID, claims.AdminID)
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	svc := newAuthService(t)
	registerTestUser(t, svc, "hunter01", "password123")

	_, pair, err := svc.Login("hunter01", "password123")
	require.NoError(t, err)

	// An access token is not a refresh token.
	_, err = svc.Refresh(pair.AccessToken)
	require.ErrorIs(t, err, ErrInvalidToken)

	newPair, err := svc.Refresh(pair.RefreshToken)
	require.NoError(t, err)
	require.NotEmpty(t, newPair.AccessToken)
}

func TestChangePassword(t *testing.T) {
	svc := newAuthService(t)
	user := registerTestUser(t, svc, "hunter01", "password123")

	require.ErrorIs(t, svc.ChangePassword(user.ID, "wrong", "newpassword1"), ErrInvalidCredentials)
	require.NoError(t, svc.ChangePassword(user.ID, "password123", "newpassword1"))

	_, _, err := svc.Login("hunter01", "password123")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = svc.Login("hunter01", "newpassword1")
	require.NoError(t, err)
}

func TestVerifyTokenGarbage(t *testing.T) {
	svc := newAuthService(t)
	_, err := svc.VerifyToken("not.a.jwt")
	require.ErrorIs(t, err, ErrInvalidToken)
}
