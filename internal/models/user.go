package models

import (
	"time"

	"github.com/stackstart/api/internal/id"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleModerator Role = "moderator"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleModerator:
		return true
	}
	return false
}

// User is an account holder. PasswordHash is nil for OAuth-only accounts.
type User struct {
	ID            id.UserID `gorm:"primaryKey;size:31" json:"id"`
	Email         string    `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Name          string    `gorm:"not null;size:255" json:"name"`
	PasswordHash  *string   `gorm:"size:255" json:"-"`
	Role          Role      `gorm:"size:20;not null;default:'user'" json:"role"`
	EmailVerified bool      `gorm:"not null;default:false" json:"emailVerified"`
	AvatarURL     *string   `gorm:"size:512" json:"avatarUrl,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// UserUpdate carries the fields a profile update may change. Nil means
// leave as-is.
type UserUpdate struct {
	Name          *string
	AvatarURL     *string
	EmailVerified *bool
	Role          *Role
	PasswordHash  *string
}
