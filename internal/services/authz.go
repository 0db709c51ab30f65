package services

import (
	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/token"
)

// AssertOwner permits the resource owner and admins, and denies everyone
// else. Handlers call it after loading the resource, since the owner is
// only known then.
func AssertOwner(ownerID id.UserID, claims *token.Claims) error {
	if claims == nil {
		return apperrors.Authentication("authentication required")
	}
	if claims.Subject == ownerID.String() || claims.Role == string(models.RoleAdmin) {
		return nil
	}
	return apperrors.Authorization("you do not have access to this resource")
}
