package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/config"
	"github.com/stackstart/api/internal/dto"
	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/repository"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/facebook"
	"golang.org/x/oauth2/google"
	"gorm.io/datatypes"
)

// providerTimeout bounds the code exchange and user-info fetch so a slow
// provider cannot hang a callback.
const providerTimeout = 10 * time.Second

// The Twitter v2 API has no endpoint package in x/oauth2.
var twitterEndpoint = oauth2.Endpoint{
	AuthURL:  "https://twitter.com/i/oauth2/authorize",
	TokenURL: "https://api.twitter.com/2/oauth2/token",
}

var ErrProviderNotConfigured = apperrors.NotImplemented("oauth provider is not configured")

var ErrStateMismatch = apperrors.Authentication("oauth state mismatch")

type providerSetup struct {
	conf        *oauth2.Config
	userInfoURL string
	usePKCE     bool
	authOpts    []oauth2.AuthCodeOption
}

// Identity is a provider profile normalized to one shape.
type Identity struct {
	Provider          models.Provider
	ProviderAccountID string
	Email             string
	Name              string
	AvatarURL         string
	EmailVerified     bool
	AccessToken       string
	RefreshToken      string
	ExpiresAt         *time.Time
	RawProfile        []byte
}

// Authorization is the first leg of the flow: the URL to send the browser
// to, plus the values the handler stashes in short-lived cookies.
type Authorization struct {
	URL          string
	State        string
	CodeVerifier string
}

type OAuthService struct {
	store     *repository.Store
	auth      *AuthService
	providers map[models.Provider]*providerSetup
	client    *http.Client
}

func NewOAuthService(cfg *config.Config, store *repository.Store, auth *AuthService) *OAuthService {
	providers := map[models.Provider]*providerSetup{}

	if p := cfg.Google(); p.Configured() {
		providers[models.ProviderGoogle] = &providerSetup{
			conf: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				RedirectURL:  p.RedirectURL,
				Endpoint:     google.Endpoint,
				Scopes:       []string{"openid", "email", "profile"},
			},
			userInfoURL: "https://www.googleapis.com/oauth2/v3/userinfo",
			usePKCE:     true,
			authOpts:    []oauth2.AuthCodeOption{oauth2.AccessTypeOffline},
		}
	}
	if p := cfg.Facebook(); p.Configured() {
		providers[models.ProviderFacebook] = &providerSetup{
			conf: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				RedirectURL:  p.RedirectURL,
				Endpoint:     facebook.Endpoint,
				Scopes:       []string{"email", "public_profile"},
			},
			userInfoURL: "https://graph.facebook.com/me?fields=id,name,email,picture.type(large)",
		}
	}
	if p := cfg.Twitter(); p.Configured() {
		providers[models.ProviderTwitter] = &providerSetup{
			conf: &oauth2.Config{
				ClientID:     p.ClientID,
				ClientSecret: p.ClientSecret,
				RedirectURL:  p.RedirectURL,
				Endpoint:     twitterEndpoint,
				Scopes:       []string{"tweet.read", "users.read", "offline.access"},
			},
			userInfoURL: "https://api.twitter.com/2/users/me?user.fields=profile_image_url",
			usePKCE:     true,
		}
	}

	return &OAuthService{
		store:     store,
		auth:      auth,
		providers: providers,
		client:    &http.Client{Timeout: providerTimeout},
	}
}

// Providers reports which providers carry full credentials, so the client
// can hide dead login buttons.
func (s *OAuthService) Providers() dto.ProvidersResponse {
	_, google := s.providers[models.ProviderGoogle]
	_, facebook := s.providers[models.ProviderFacebook]
	_, twitter := s.providers[models.ProviderTwitter]
	return dto.ProvidersResponse{Google: google, Facebook: facebook, Twitter: twitter}
}

// Authorize builds the provider authorization URL with a fresh anti-CSRF
// state and, for PKCE providers, a code verifier.
func (s *OAuthService) Authorize(provider models.Provider) (*Authorization, error) {
	setup, ok := s.providers[provider]
	if !ok {
		return nil, ErrProviderNotConfigured
	}

	state := uuid.NewString()
	opts := append([]oauth2.AuthCodeOption{}, setup.authOpts...)

	var verifier string
	if setup.usePKCE {
		verifier = oauth2.GenerateVerifier()
		opts = append(opts, oauth2.S256ChallengeOption(verifier))
	}

	return &Authorization{
		URL:          setup.conf.AuthCodeURL(state, opts...),
		State:        state,
		CodeVerifier: verifier,
	}, nil
}

// Callback runs the second leg: state check, code exchange, user-info
// fetch, account resolution, token issuance. The state comparison happens
// before any network call.
func (s *OAuthService) Callback(ctx context.Context, provider models.Provider, code, state, storedState, storedVerifier string, meta ClientMeta) (*dto.AuthResponse, error) {
	setup, ok := s.providers[provider]
	if !ok {
		return nil, ErrProviderNotConfigured
	}
	if state == "" || storedState == "" || state != storedState {
		return nil, ErrStateMismatch
	}
	if code == "" {
		return nil, apperrors.Validation("authorization code is missing")
	}

	ctx, cancel := context.WithTimeout(ctx, providerTimeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.client)

	var opts []oauth2.AuthCodeOption
	if setup.usePKCE {
		opts = append(opts, oauth2.VerifierOption(storedVerifier))
	}
	tok, err := setup.conf.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, apperrors.Authentication("code exchange failed")
	}

	identity, err := s.fetchIdentity(ctx, provider, setup, tok)
	if err != nil {
		return nil, apperrors.Authentication("failed to fetch provider profile")
	}

	user, err := s.resolveAccount(ctx, identity)
	if err != nil {
		return nil, err
	}
	return s.auth.issueAndTrack(ctx, user, meta)
}

func (s *OAuthService) fetchIdentity(ctx context.Context, provider models.Provider, setup *providerSetup, tok *oauth2.Token) (*Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, setup.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("user info request returned %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	identity := &Identity{
		Provider:    provider,
		AccessToken: tok.AccessToken,
		RawProfile:  raw,
	}
	if tok.RefreshToken != "" {
		identity.RefreshToken = tok.RefreshToken
	}
	if !tok.Expiry.IsZero() {
		expiry := tok.Expiry
		identity.ExpiresAt = &expiry
	}

	switch provider {
	case models.ProviderGoogle:
		var payload struct {
			Sub           string `json:"sub"`
			Email         string `json:"email"`
			EmailVerified bool   `json:"email_verified"`
			Name          string `json:"name"`
			Picture       string `json:"picture"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		if payload.Sub == "" || payload.Email == "" {
			return nil, errors.New("incomplete google profile")
		}
		identity.ProviderAccountID = payload.Sub
		identity.Email = payload.Email
		identity.EmailVerified = payload.EmailVerified
		identity.Name = payload.Name
		identity.AvatarURL = payload.Picture

	case models.ProviderFacebook:
		var payload struct {
			ID      string `json:"id"`
			Name    string `json:"name"`
			Email   string `json:"email"`
			Picture struct {
				Data struct {
					URL string `json:"url"`
				} `json:"data"`
			} `json:"picture"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		if payload.ID == "" || payload.Email == "" {
			return nil, errors.New("incomplete facebook profile")
		}
		identity.ProviderAccountID = payload.ID
		identity.Email = payload.Email
		identity.EmailVerified = true
		identity.Name = payload.Name
		identity.AvatarURL = payload.Picture.Data.URL

	case models.ProviderTwitter:
		var payload struct {
			Data struct {
				ID              string `json:"id"`
				Name            string `json:"name"`
				Username        string `json:"username"`
				ProfileImageURL string `json:"profile_image_url"`
			} `json:"data"`
		}
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		if payload.Data.ID == "" || payload.Data.Username == "" {
			return nil, errors.New("incomplete twitter profile")
		}
		identity.ProviderAccountID = payload.Data.ID
		// The v2 API does not return an email. The placeholder keeps the
		// account addressable internally but is never treated as verified.
		identity.Email = strings.ToLower(payload.Data.Username) + "@twitter.placeholder"
		identity.EmailVerified = false
		identity.Name = payload.Data.Name
		identity.AvatarURL = payload.Data.ProfileImageURL

	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	identity.Email = strings.ToLower(identity.Email)
	if identity.Name == "" {
		identity.Name = strings.Split(identity.Email, "@")[0]
	}
	return identity, nil
}

// resolveAccount maps a provider identity onto a user: an existing link
// wins, then an existing user with the same email gets linked, and
// otherwise a fresh password-less user is created.
func (s *OAuthService) resolveAccount(ctx context.Context, identity *Identity) (*models.User, error) {
	link, err := s.store.OAuthAccounts.FindByProviderAccount(ctx, identity.Provider, identity.ProviderAccountID)
	switch {
	case err == nil:
		if _, err := s.upsertLink(ctx, link.UserID, identity); err != nil {
			return nil, apperrors.Internal(err)
		}
		user, err := s.store.Users.FindByID(ctx, link.UserID)
		if err != nil {
			return nil, apperrors.Internal(err)
		}
		return user, nil

	case errors.Is(err, repository.ErrNotFound):
		// fall through to email match / creation

	default:
		return nil, apperrors.Internal(err)
	}

	user, err := s.store.Users.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		if _, err := s.upsertLink(ctx, user.ID, identity); err != nil {
			return nil, apperrors.Internal(err)
		}
		if identity.EmailVerified && !user.EmailVerified {
			verified := true
			if user, err = s.store.Users.Update(ctx, user.ID, models.UserUpdate{EmailVerified: &verified}); err != nil {
				return nil, apperrors.Internal(err)
			}
		}
		return user, nil

	case errors.Is(err, repository.ErrNotFound):
		user = &models.User{
			ID:            id.NewUserID(),
			Email:         identity.Email,
			Name:          identity.Name,
			Role:          models.RoleUser,
			EmailVerified: identity.EmailVerified,
		}
		if identity.AvatarURL != "" {
			avatar := identity.AvatarURL
			user.AvatarURL = &avatar
		}
		if err := s.store.Users.Create(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return nil, ErrEmailTaken
			}
			return nil, apperrors.Internal(err)
		}
		if _, err := s.upsertLink(ctx, user.ID, identity); err != nil {
			// The user row exists but the link write failed; surface the
			// error so the flow can be retried rather than half-succeed.
			slog.Error("oauth link failed after user creation",
				"provider", identity.Provider, "user_id", user.ID)
			return nil, apperrors.Internal(err)
		}
		return user, nil

	default:
		return nil, apperrors.Internal(err)
	}
}

func (s *OAuthService) upsertLink(ctx context.Context, userID id.UserID, identity *Identity) (*models.OAuthAccount, error) {
	account := &models.OAuthAccount{
		ID:                id.NewOAuthAccountID(),
		UserID:            userID,
		Provider:          identity.Provider,
		ProviderAccountID: identity.ProviderAccountID,
		ExpiresAt:         identity.ExpiresAt,
	}
	if identity.AccessToken != "" {
		tok := identity.AccessToken
		account.AccessToken = &tok
	}
	if identity.RefreshToken != "" {
		tok := identity.RefreshToken
		account.RefreshToken = &tok
	}
	if len(identity.RawProfile) > 0 {
		account.Profile = datatypes.JSON(identity.RawProfile)
	}
	return s.store.OAuthAccounts.Upsert(ctx, account)
}
