package models

import (
	"time"

	"github.com/stackstart/api/internal/id"
	"gorm.io/datatypes"
)

type Provider string

const (
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderTwitter  Provider = "twitter"
)

func (p Provider) Valid() bool {
	switch p {
	case ProviderGoogle, ProviderFacebook, ProviderTwitter:
		return true
	}
	return false
}

// OAuthAccount links a user to one external provider identity.
// (provider, provider_account_id) identifies at most one link globally;
// (user_id, provider) at most one link per user.
type OAuthAccount struct {
	ID                id.OAuthAccountID `gorm:"primaryKey;size:32" json:"id"`
	UserID            id.UserID         `gorm:"not null;size:31;uniqueIndex:idx_oauth_user_provider" json:"userId"`
	Provider          Provider          `gorm:"not null;size:20;uniqueIndex:idx_oauth_user_provider;uniqueIndex:idx_oauth_provider_account" json:"provider"`
	ProviderAccountID string            `gorm:"not null;size:255;uniqueIndex:idx_oauth_provider_account" json:"providerAccountId"`
	AccessToken       *string           `gorm:"size:2048" json:"-"`
	RefreshToken      *string           `gorm:"size:2048" json:"-"`
	ExpiresAt         *time.Time        `json:"expiresAt,omitempty"`
	Profile           datatypes.JSON    `gorm:"type:jsonb;default:'{}'" json:"-"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}
