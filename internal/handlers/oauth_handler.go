package handlers

import (
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stackstart/api/internal/config"
	"github.com/stackstart/api/internal/dto"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/services"
)

const (
	stateCookie    = "oauth_state"
	verifierCookie = "oauth_code_verifier"
	cookieTTL      = 10 * time.Minute
)

type OAuthHandler struct {
	oauth       *services.OAuthService
	frontendURL string
}

func NewOAuthHandler(oauth *services.OAuthService, cfg *config.Config) *OAuthHandler {
	return &OAuthHandler{oauth: oauth, frontendURL: cfg.FrontendURL}
}

func (h *OAuthHandler) Providers(c *fiber.Ctx) error {
	return c.JSON(dto.OK(h.oauth.Providers()))
}

// Authorize starts a provider flow: the anti-CSRF state and, where
// applicable, the PKCE verifier go into short-lived http-only cookies and
// the client gets the provider URL to navigate to.
func (h *OAuthHandler) Authorize(c *fiber.Ctx) error {
	provider := models.Provider(c.Params("provider"))
	if !provider.Valid() {
		return fiber.ErrNotFound
	}

	authz, err := h.oauth.Authorize(provider)
	if err != nil {
		return err
	}

	setFlowCookie(c, stateCookie, authz.State)
	if authz.CodeVerifier != "" {
		setFlowCookie(c, verifierCookie, authz.CodeVerifier)
	}

	return c.JSON(dto.OK(dto.AuthorizeResponse{URL: authz.URL, State: authz.State}))
}

// Callback is a full-page browser navigation; it never answers JSON.
// Success and failure both end in a redirect to the frontend, with tokens
// or an error tag in the query string. The flow cookies are cleared no
// matter what happens.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	provider := models.Provider(c.Params("provider"))
	if !provider.Valid() {
		return fiber.ErrNotFound
	}

	storedState := c.Cookies(stateCookie)
	storedVerifier := c.Cookies(verifierCookie)
	clearFlowCookie(c, stateCookie)
	clearFlowCookie(c, verifierCookie)

	resp, err := h.oauth.Callback(
		c.Context(),
		provider,
		c.Query("code"),
		c.Query("state"),
		storedState,
		storedVerifier,
		clientMeta(c),
	)
	if err != nil {
		slog.Error("oauth callback failed", "provider", provider, "error", err)
		return c.Redirect(h.errorRedirect(provider), fiber.StatusFound)
	}

	return c.Redirect(h.successRedirect(resp), fiber.StatusFound)
}

func (h *OAuthHandler) successRedirect(resp *dto.AuthResponse) string {
	query := url.Values{}
	query.Set("accessToken", resp.AccessToken)
	query.Set("refreshToken", resp.RefreshToken)
	query.Set("expiresIn", strconv.FormatInt(resp.ExpiresIn, 10))
	return h.frontendURL + "/auth/callback?" + query.Encode()
}

func (h *OAuthHandler) errorRedirect(provider models.Provider) string {
	query := url.Values{}
	query.Set("provider", string(provider))
	return h.frontendURL + "/auth/error?" + query.Encode()
}

func setFlowCookie(c *fiber.Ctx, name, value string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  time.Now().Add(cookieTTL),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearFlowCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
