package services

import (
	"context"
	"testing"
	"time"

	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/dto"
	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/repository"
	"github.com/stackstart/api/internal/repository/memory"
	"github.com/stackstart/api/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestAuth(t *testing.T) (*AuthService, *repository.Store) {
	t.Helper()
	tokens, err := token.NewService(testSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	store := memory.NewStore()
	return NewAuthService(store, tokens), store
}

func registerReq() *dto.RegisterRequest {
	return &dto.RegisterRequest{Email: "a@b.com", Password: "Password123", Name: "A"}
}

func TestRegister(t *testing.T) {
	svc, store := newTestAuth(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, registerReq(), ClientMeta{UserAgent: "go-test", IPAddress: "127.0.0.1"})
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", resp.User.Email)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.False(t, resp.User.EmailVerified)
	assert.Nil(t, resp.User.PasswordHash)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.True(t, id.IsValid(id.KindUser, resp.User.ID.String()))

	sessions, err := store.Sessions.FindByUserID(ctx, resp.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "go-test", sessions[0].UserAgent)
	assert.Equal(t, "127.0.0.1", sessions[0].IPAddress)
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	req := registerReq()
	req.Email = "  MiXeD@Case.COM "
	resp, err := svc.Register(ctx, req, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, "mixed@case.com", resp.User.Email)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*dto.RegisterRequest)
		status int
	}{
		{"missing email", func(r *dto.RegisterRequest) { r.Email = "" }, 400},
		{"missing name", func(r *dto.RegisterRequest) { r.Name = " " }, 400},
		{"bad email shape", func(r *dto.RegisterRequest) { r.Email = "not-an-email" }, 400},
		{"weak password", func(r *dto.RegisterRequest) { r.Password = "password" }, 400},
		{"common password", func(r *dto.RegisterRequest) { r.Password = "Password123x"; r.Password = "Qwerty123" }, 400},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := registerReq()
			tt.mutate(req)
			_, err := svc.Register(ctx, req, ClientMeta{})
			require.Error(t, err)
			assert.Equal(t, tt.status, apperrors.From(err).Status)
		})
	}
}

func TestRegisterWeakPasswordListsAllViolations(t *testing.T) {
	svc, _ := newTestAuth(t)

	req := registerReq()
	req.Password = "password"
	_, err := svc.Register(context.Background(), req, ClientMeta{})
	require.Error(t, err)
	appErr := apperrors.From(err)
	assert.Len(t, appErr.Details, 2, "missing uppercase and missing digit are both reported")
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, registerReq(), ClientMeta{})
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerReq(), ClientMeta{})
	assert.ErrorIs(t, err, ErrEmailTaken)
	assert.Equal(t, 409, apperrors.From(err).Status)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registerReq(), ClientMeta{})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &dto.LoginRequest{Email: "a@b.com", Password: "Password123"}, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, "a@b.com", resp.User.Email)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestLoginFailuresAreGeneric(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, registerReq(), ClientMeta{})
	require.NoError(t, err)

	_, wrongPass := svc.Login(ctx, &dto.LoginRequest{Email: "a@b.com", Password: "Wrong12345"}, ClientMeta{})
	_, noUser := svc.Login(ctx, &dto.LoginRequest{Email: "ghost@b.com", Password: "Wrong12345"}, ClientMeta{})

	assert.ErrorIs(t, wrongPass, ErrInvalidCredentials)
	assert.ErrorIs(t, noUser, ErrInvalidCredentials)
	assert.Equal(t, apperrors.From(wrongPass).Message, apperrors.From(noUser).Message,
		"the message never reveals which field was wrong")
}

func TestLoginUnknownEmailBurnsHashWork(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()

	start := time.Now()
	_, err := svc.Login(ctx, &dto.LoginRequest{Email: "ghost@b.com", Password: "Wrong12345"}, ClientMeta{})
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Greater(t, elapsed, 20*time.Millisecond,
		"a decoy comparison runs even when the account does not exist")
}

func TestLoginOAuthOnlyAccountRejected(t *testing.T) {
	svc, store := newTestAuth(t)
	ctx := context.Background()

	user := &models.User{
		ID:            id.NewUserID(),
		Email:         "oauth@b.com",
		Name:          "OAuth Only",
		Role:          models.RoleUser,
		EmailVerified: true,
	}
	require.NoError(t, store.Users.Create(ctx, user))

	_, err := svc.Login(ctx, &dto.LoginRequest{Email: "oauth@b.com", Password: "Password123"}, ClientMeta{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefresh(t *testing.T) {
	svc, _ := newTestAuth(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, registerReq(), ClientMeta{})
	require.NoError(t, err)

	resp, err := svc.Refresh(ctx, reg.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	// an access token is not a refresh token
	_, err = svc.Refresh(ctx, reg.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = svc.Refresh(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	_, err = svc.Refresh(ctx, "")
	assert.Equal(t, 400, apperrors.From(err).Status)
}

func TestRefreshUserGone(t *testing.T) {
	svc, store := newTestAuth(t)
	ctx := context.Background()

	// token for a user that was never persisted
	_ = store
	tokens, err := token.NewService(testSecret, time.Minute, time.Hour)
	require.NoError(t, err)
	pair, err := tokens.IssuePair(token.Payload{UserID: id.NewUserID().String(), Email: "x@y.com", Role: "user"})
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestLogoutDeletesAllSessions(t *testing.T) {
	svc, store := newTestAuth(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, registerReq(), ClientMeta{UserAgent: "device-1"})
	require.NoError(t, err)

	// second device
	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "a@b.com", Password: "Password123"}, ClientMeta{UserAgent: "device-2"})
	require.NoError(t, err)

	sessions, err := store.Sessions.FindByUserID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	require.NoError(t, svc.Logout(ctx, reg.User.ID))

	sessions, err = store.Sessions.FindByUserID(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions, "logout revokes every device")
}

func TestMeReflectsCurrentRecord(t *testing.T) {
	svc, store := newTestAuth(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, registerReq(), ClientMeta{})
	require.NoError(t, err)

	role := models.RoleModerator
	_, err = store.Users.Update(ctx, reg.User.ID, models.UserUpdate{Role: &role})
	require.NoError(t, err)

	user, err := svc.Me(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleModerator, user.Role, "role changes after issuance are visible")
	assert.Nil(t, user.PasswordHash)

	_, err = svc.Me(ctx, id.NewUserID())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func claimsFor(userID id.UserID, role models.Role) *token.Claims {
	claims := &token.Claims{Role: string(role)}
	claims.Subject = userID.String()
	return claims
}

func TestRevokeSession(t *testing.T) {
	svc, store := newTestAuth(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, registerReq(), ClientMeta{})
	require.NoError(t, err)

	sessions, err := store.Sessions.FindByUserID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	sessionID := sessions[0].ID

	// a stranger cannot revoke it
	err = svc.RevokeSession(ctx, claimsFor(id.NewUserID(), models.RoleUser), sessionID)
	assert.Equal(t, 403, apperrors.From(err).Status)

	// an admin can
	err = svc.RevokeSession(ctx, claimsFor(id.NewUserID(), models.RoleAdmin), sessionID)
	assert.NoError(t, err)

	err = svc.RevokeSession(ctx, claimsFor(reg.User.ID, models.RoleUser), sessionID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRevokeOwnSession(t *testing.T) {
	svc, store := newTestAuth(t)
	ctx := context.Background()
	reg, err := svc.Register(ctx, registerReq(), ClientMeta{})
	require.NoError(t, err)

	sessions, err := store.Sessions.FindByUserID(ctx, reg.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	err = svc.RevokeSession(ctx, claimsFor(reg.User.ID, models.RoleUser), sessions[0].ID)
	assert.NoError(t, err)
}
