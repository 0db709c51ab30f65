package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/dto"
	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/password"
	"github.com/stackstart/api/internal/repository"
	"github.com/stackstart/api/internal/token"
)

var (
	ErrEmailTaken         = apperrors.Conflict("email already registered")
	ErrInvalidCredentials = apperrors.Authentication("invalid email or password")
	ErrInvalidRefresh     = apperrors.Authentication("invalid or expired refresh token")
	ErrUserNotFound       = apperrors.NotFound("user not found")
	ErrSessionNotFound    = apperrors.NotFound("session not found")
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ClientMeta carries the request metadata recorded on each session.
type ClientMeta struct {
	UserAgent string
	IPAddress string
}

type AuthService struct {
	store  *repository.Store
	tokens *token.Service
}

func NewAuthService(store *repository.Store, tokens *token.Service) *AuthService {
	return &AuthService{store: store, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest, meta ClientMeta) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	name := strings.TrimSpace(req.Name)

	if email == "" || req.Password == "" || name == "" {
		return nil, apperrors.Validation("email, password and name are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, apperrors.Validation("invalid email address")
	}
	if result := password.ValidateStrength(req.Password); !result.Valid {
		return nil, apperrors.Validation("password does not meet requirements", result.Errors...)
	}
	if password.IsCommon(req.Password) {
		return nil, apperrors.Validation("password is too common")
	}

	if taken, err := s.store.Users.ExistsByEmail(ctx, email); err != nil {
		return nil, apperrors.Internal(err)
	} else if taken {
		return nil, ErrEmailTaken
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	user := &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		Name:         name,
		PasswordHash: &hash,
		Role:         models.RoleUser,
	}
	if err := s.store.Users.Create(ctx, user); err != nil {
		// The unique index is what settles a registration race; translate
		// the loser's rejection the same way as the pre-check.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, apperrors.Internal(err)
	}

	return s.issueAndTrack(ctx, user, meta)
}

func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest, meta ClientMeta) (*dto.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	user, err := s.store.Users.FindByEmailWithPassword(ctx, email)
	if err != nil || user.PasswordHash == nil {
		// Unknown email and OAuth-only accounts burn the same bcrypt work
		// as a real comparison so response timing does not enumerate
		// accounts.
		password.DummyCompare(req.Password)
		return nil, ErrInvalidCredentials
	}

	ok, err := password.Verify(req.Password, *user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}

	return s.issueAndTrack(ctx, user, meta)
}

// Refresh verifies a refresh token and mints a new access token. The
// presented refresh token stays valid for its original lifetime; revoking
// the session is the kill switch.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.RefreshResponse, error) {
	if refreshToken == "" {
		return nil, apperrors.Validation("refreshToken is required")
	}

	claims, err := s.tokens.VerifyRefresh(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return nil, ErrInvalidRefresh
	}

	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Internal(err)
	}

	pair, err := s.tokens.IssuePair(payloadFor(user))
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return &dto.RefreshResponse{AccessToken: pair.AccessToken, ExpiresIn: pair.ExpiresIn}, nil
}

// Logout deletes every session of the user: logging out logs out all
// devices.
func (s *AuthService) Logout(ctx context.Context, userID id.UserID) error {
	if _, err := s.store.Sessions.DeleteAllByUserID(ctx, userID); err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

// Me re-fetches the user record so role or profile changes made after the
// token was issued are reflected.
func (s *AuthService) Me(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperrors.Internal(err)
	}
	user.PasswordHash = nil
	return user, nil
}

func (s *AuthService) ListSessions(ctx context.Context, userID id.UserID) ([]models.Session, error) {
	sessions, err := s.store.Sessions.FindByUserID(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return sessions, nil
}

func (s *AuthService) RevokeSession(ctx context.Context, claims *token.Claims, sessionID id.SessionID) error {
	session, err := s.store.Sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return apperrors.Internal(err)
	}
	if err := AssertOwner(session.UserID, claims); err != nil {
		return err
	}
	if err := s.store.Sessions.Delete(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return apperrors.Internal(err)
	}
	return nil
}

// issueAndTrack mints a token pair and records the session line backing
// it.
func (s *AuthService) issueAndTrack(ctx context.Context, user *models.User, meta ClientMeta) (*dto.AuthResponse, error) {
	pair, err := s.tokens.IssuePair(payloadFor(user))
	if err != nil {
		return nil, apperrors.Internal(err)
	}

	session := &models.Session{
		ID:        id.NewSessionID(),
		UserID:    user.ID,
		UserAgent: meta.UserAgent,
		IPAddress: meta.IPAddress,
		ExpiresAt: time.Now().Add(s.tokens.RefreshTTL()),
	}
	if err := s.store.Sessions.Create(ctx, session); err != nil {
		return nil, apperrors.Internal(err)
	}

	user.PasswordHash = nil
	return &dto.AuthResponse{
		User:         user,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

func payloadFor(user *models.User) token.Payload {
	return token.Payload{
		UserID: user.ID.String(),
		Email:  user.Email,
		Role:   string(user.Role),
	}
}
