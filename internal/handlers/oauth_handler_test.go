package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/config"
	"github.com/stackstart/api/internal/dto"
	"github.com/stackstart/api/internal/repository/memory"
	"github.com/stackstart/api/internal/services"
	"github.com/stackstart/api/internal/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOAuthApp(t *testing.T) *fiber.App {
	t.Helper()
	cfg := &config.Config{
		FrontendURL:        "http://localhost:3000",
		GoogleClientID:     "gid",
		GoogleClientSecret: "gsecret",
		GoogleRedirectURL:  "http://localhost:8080/api/auth/callback/google",
	}
	tokens, err := token.NewService(testSecret, 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	store := memory.NewStore()
	auth := services.NewAuthService(store, tokens)
	oauth := services.NewOAuthService(cfg, store, auth)
	h := NewOAuthHandler(oauth, cfg)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			appErr := apperrors.From(err)
			return c.Status(appErr.Status).JSON(dto.Fail(appErr.Code, appErr.Message, appErr.Details...))
		},
	})
	app.Get("/api/auth/oauth/providers", h.Providers)
	app.Get("/api/auth/oauth/:provider", h.Authorize)
	app.Get("/api/auth/callback/:provider", h.Callback)
	return app
}

func cookieValue(resp *http.Response, name string) (string, bool) {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c.Value, true
		}
	}
	return "", false
}

func TestProvidersEndpoint(t *testing.T) {
	app := newOAuthApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/auth/oauth/providers", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, true, data["google"])
	assert.Equal(t, false, data["facebook"])
	assert.Equal(t, false, data["twitter"])
}

func TestAuthorizeEndpoint(t *testing.T) {
	app := newOAuthApp(t)

	t.Run("sets flow cookies and returns provider url", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/oauth/google", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		state, ok := cookieValue(resp, "oauth_state")
		require.True(t, ok, "state cookie set")
		assert.NotEmpty(t, state)

		verifier, ok := cookieValue(resp, "oauth_code_verifier")
		require.True(t, ok, "verifier cookie set for a pkce provider")
		assert.NotEmpty(t, verifier)

		env := decodeEnvelope(t, resp)
		data, ok := env.Data.(map[string]interface{})
		require.True(t, ok)
		url, _ := data["url"].(string)
		assert.True(t, strings.HasPrefix(url, "https://accounts.google.com/"))
		assert.Equal(t, state, data["state"])
	})

	t.Run("unknown provider", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/oauth/github", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/oauth/facebook", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	})
}

func TestCallbackEndpoint(t *testing.T) {
	app := newOAuthApp(t)

	t.Run("state mismatch redirects to error page and clears cookies", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/callback/google?code=abc&state=attacker", nil)
		req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "legit"})
		req.AddCookie(&http.Cookie{Name: "oauth_code_verifier", Value: "verifier"})
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Equal(t, "http://localhost:3000/auth/error?provider=google", resp.Header.Get(fiber.HeaderLocation))

		for _, c := range resp.Cookies() {
			if c.Name == "oauth_state" || c.Name == "oauth_code_verifier" {
				assert.Empty(t, c.Value, "flow cookie %s cleared", c.Name)
				assert.True(t, c.Expires.Before(time.Now()), "flow cookie %s expired", c.Name)
			}
		}
	})

	t.Run("missing state cookie redirects to error page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/callback/google?code=abc&state=legit", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)

		assert.Equal(t, http.StatusFound, resp.StatusCode)
		assert.Contains(t, resp.Header.Get(fiber.HeaderLocation), "/auth/error")
	})

	t.Run("unknown provider", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/callback/github", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}
