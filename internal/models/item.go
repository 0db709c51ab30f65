package models

import (
	"time"

	"github.com/stackstart/api/internal/id"
)

type ItemStatus string

const (
	ItemActive    ItemStatus = "active"
	ItemCompleted ItemStatus = "completed"
	ItemArchived  ItemStatus = "archived"
)

func (s ItemStatus) Valid() bool {
	switch s {
	case ItemActive, ItemCompleted, ItemArchived:
		return true
	}
	return false
}

type Item struct {
	ID          id.ItemID  `gorm:"primaryKey;size:31" json:"id"`
	UserID      id.UserID  `gorm:"not null;index;size:31" json:"userId"`
	Title       string     `gorm:"not null;size:255" json:"title"`
	Description string     `gorm:"size:2048" json:"description,omitempty"`
	Status      ItemStatus `gorm:"not null;size:20;default:'active'" json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
