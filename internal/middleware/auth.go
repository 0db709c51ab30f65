package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/token"
)

const claimsKey = "claims"

// RequireAuth verifies the bearer token as an access token and attaches
// the decoded claims to the request. Missing header, malformed token,
// expired token and wrong token kind all fail the same way.
func RequireAuth(tokens *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		bearer := token.ExtractBearer(c.Get(fiber.HeaderAuthorization))
		if bearer == "" {
			return apperrors.Authentication("authentication required")
		}
		claims, err := tokens.VerifyAccess(bearer)
		if err != nil {
			return apperrors.Authentication("invalid or expired token")
		}
		c.Locals(claimsKey, claims)
		return c.Next()
	}
}

// OptionalAuth attaches claims when a valid access token is present and
// proceeds silently otherwise. For endpoints with public and
// authenticated variants.
func OptionalAuth(tokens *token.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if bearer := token.ExtractBearer(c.Get(fiber.HeaderAuthorization)); bearer != "" {
			if claims, err := tokens.VerifyAccess(bearer); err == nil {
				c.Locals(claimsKey, claims)
			}
		}
		return c.Next()
	}
}

// RequireRole gates a route to the given roles. Must run after
// RequireAuth.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := GetClaims(c)
		if claims == nil {
			return apperrors.Authentication("authentication required")
		}
		for _, role := range roles {
			if claims.Role == string(role) {
				return c.Next()
			}
		}
		return apperrors.Authorization("insufficient role")
	}
}

// GetClaims returns the authenticated claims, or nil when the request is
// anonymous.
func GetClaims(c *fiber.Ctx) *token.Claims {
	claims, _ := c.Locals(claimsKey).(*token.Claims)
	return claims
}

// GetUserID extracts and validates the authenticated user id.
func GetUserID(c *fiber.Ctx) (id.UserID, error) {
	claims := GetClaims(c)
	if claims == nil {
		return "", apperrors.Authentication("authentication required")
	}
	userID, err := id.ParseUserID(claims.Subject)
	if err != nil {
		return "", apperrors.Authentication("invalid token subject")
	}
	return userID, nil
}
