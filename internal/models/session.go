package models

import (
	"time"

	"github.com/stackstart/api/internal/id"
)

// Session is one refresh-capable login line. Deleting it revokes that
// device; a user may hold many at once.
type Session struct {
	ID        id.SessionID `gorm:"primaryKey;size:31" json:"id"`
	UserID    id.UserID    `gorm:"not null;index;size:31" json:"userId"`
	UserAgent string       `gorm:"size:512" json:"userAgent,omitempty"`
	IPAddress string       `gorm:"size:64" json:"ipAddress,omitempty"`
	ExpiresAt time.Time    `gorm:"not null;index" json:"expiresAt"`
	CreatedAt time.Time    `json:"createdAt"`
}

func (s *Session) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
