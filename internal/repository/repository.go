// Package repository defines the storage contract the auth and item
// services are written against. Two adapters satisfy it: memory (default,
// used by tests and the zero-setup dev mode) and gormrepo (Postgres).
// Uniqueness of email, (provider, provider_account_id) and
// (user_id, provider) is enforced inside the adapters; two concurrent
// creates racing on the same key resolve to one winner and one
// ErrDuplicate.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type UserRepository interface {
	// Create persists a new user, returning ErrDuplicate when the email is
	// already registered.
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	// FindByEmail returns the user with the password hash stripped.
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	// FindByEmailWithPassword returns the user including the stored hash,
	// for credential verification only.
	FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, userID id.UserID, update models.UserUpdate) (*models.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
}

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error)
	FindByUserID(ctx context.Context, userID id.UserID) ([]models.Session, error)
	Delete(ctx context.Context, sessionID id.SessionID) error
	DeleteAllByUserID(ctx context.Context, userID id.UserID) (int64, error)
	// DeleteExpired removes every session past its expiry. Idempotent; safe
	// to run concurrently with request traffic.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type OAuthAccountRepository interface {
	// Upsert inserts or, when (provider, provider_account_id) already
	// exists, refreshes the stored tokens, expiry and profile. Linking a
	// second account of the same provider to one user fails with
	// ErrDuplicate.
	Upsert(ctx context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error)
	FindByProviderAccount(ctx context.Context, provider models.Provider, providerAccountID string) (*models.OAuthAccount, error)
	FindAllByUserID(ctx context.Context, userID id.UserID) ([]models.OAuthAccount, error)
	Delete(ctx context.Context, accountID id.OAuthAccountID) error
}

type ItemRepository interface {
	Create(ctx context.Context, item *models.Item) error
	FindByID(ctx context.Context, itemID id.ItemID) (*models.Item, error)
	FindByUserID(ctx context.Context, userID id.UserID) ([]models.Item, error)
	FindAll(ctx context.Context) ([]models.Item, error)
	Update(ctx context.Context, item *models.Item) error
	Delete(ctx context.Context, itemID id.ItemID) error
}

// Store bundles the repositories handed to the services.
type Store struct {
	Users         UserRepository
	Sessions      SessionRepository
	OAuthAccounts OAuthAccountRepository
	Items         ItemRepository
}
