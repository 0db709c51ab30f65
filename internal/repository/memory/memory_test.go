package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUser(email string) *models.User {
	hash := "$2a$12$fakefakefakefakefakefake"
	return &models.User{
		ID:           id.NewUserID(),
		Email:        email,
		Name:         "Test User",
		PasswordHash: &hash,
		Role:         models.RoleUser,
	}
}

func TestUserEmailUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Users.Create(ctx, newUser("a@b.com")))

	err := store.Users.Create(ctx, newUser("A@B.com"))
	assert.ErrorIs(t, err, repository.ErrDuplicate, "email uniqueness is case-insensitive")
}

func TestUserEmailUniquenessUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	const racers = 16
	var wg sync.WaitGroup
	errs := make(chan error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Users.Create(ctx, newUser("race@b.com"))
		}()
	}
	wg.Wait()
	close(errs)

	var winners, losers int
	for err := range errs {
		if err == nil {
			winners++
		} else if assert.ErrorIs(t, err, repository.ErrDuplicate) {
			losers++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, racers-1, losers)
}

func TestUserFindByEmailStripsHash(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	require.NoError(t, store.Users.Create(ctx, newUser("a@b.com")))

	user, err := store.Users.FindByEmail(ctx, "a@b.com")
	require.NoError(t, err)
	assert.Nil(t, user.PasswordHash)

	withHash, err := store.Users.FindByEmailWithPassword(ctx, "a@b.com")
	require.NoError(t, err)
	assert.NotNil(t, withHash.PasswordHash)
}

func TestUserUpdatePartial(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	u := newUser("a@b.com")
	require.NoError(t, store.Users.Create(ctx, u))

	verified := true
	role := models.RoleModerator
	updated, err := store.Users.Update(ctx, u.ID, models.UserUpdate{EmailVerified: &verified, Role: &role})
	require.NoError(t, err)
	assert.True(t, updated.EmailVerified)
	assert.Equal(t, models.RoleModerator, updated.Role)
	assert.Equal(t, "Test User", updated.Name, "unset fields stay untouched")

	_, err = store.Users.Update(ctx, id.NewUserID(), models.UserUpdate{EmailVerified: &verified})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func newSession(userID id.UserID, expiresAt time.Time) *models.Session {
	return &models.Session{
		ID:        id.NewSessionID(),
		UserID:    userID,
		ExpiresAt: expiresAt,
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	userID := id.NewUserID()

	first := newSession(userID, time.Now().Add(time.Hour))
	second := newSession(userID, time.Now().Add(time.Hour))
	other := newSession(id.NewUserID(), time.Now().Add(time.Hour))
	require.NoError(t, store.Sessions.Create(ctx, first))
	require.NoError(t, store.Sessions.Create(ctx, second))
	require.NoError(t, store.Sessions.Create(ctx, other))

	sessions, err := store.Sessions.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	deleted, err := store.Sessions.DeleteAllByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = store.Sessions.FindByID(ctx, first.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// unrelated user's session survives
	_, err = store.Sessions.FindByID(ctx, other.ID)
	assert.NoError(t, err)
}

func TestDeleteExpiredIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	userID := id.NewUserID()

	require.NoError(t, store.Sessions.Create(ctx, newSession(userID, time.Now().Add(-time.Minute))))
	require.NoError(t, store.Sessions.Create(ctx, newSession(userID, time.Now().Add(time.Hour))))

	now := time.Now()
	deleted, err := store.Sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = store.Sessions.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted, "second sweep with no new expirations removes nothing")
}

func newLink(userID id.UserID, provider models.Provider, accountID string) *models.OAuthAccount {
	tok := "provider-access-token"
	return &models.OAuthAccount{
		ID:                id.NewOAuthAccountID(),
		UserID:            userID,
		Provider:          provider,
		ProviderAccountID: accountID,
		AccessToken:       &tok,
	}
}

func TestOAuthUpsertRefreshesExistingLink(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	userID := id.NewUserID()

	created, err := store.OAuthAccounts.Upsert(ctx, newLink(userID, models.ProviderGoogle, "g-123"))
	require.NoError(t, err)

	refreshed := newLink(userID, models.ProviderGoogle, "g-123")
	newTok := "rotated-token"
	refreshed.AccessToken = &newTok
	updated, err := store.OAuthAccounts.Upsert(ctx, refreshed)
	require.NoError(t, err)

	assert.Equal(t, created.ID, updated.ID, "existing link keeps its id")
	assert.Equal(t, "rotated-token", *updated.AccessToken)

	all, err := store.OAuthAccounts.FindAllByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestOAuthUserProviderUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	userID := id.NewUserID()

	_, err := store.OAuthAccounts.Upsert(ctx, newLink(userID, models.ProviderGoogle, "g-123"))
	require.NoError(t, err)

	// same user, same provider, different provider account
	_, err = store.OAuthAccounts.Upsert(ctx, newLink(userID, models.ProviderGoogle, "g-456"))
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	// same user, different provider is fine
	_, err = store.OAuthAccounts.Upsert(ctx, newLink(userID, models.ProviderFacebook, "f-789"))
	assert.NoError(t, err)
}

func TestOAuthDeleteDropsIndexes(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	userID := id.NewUserID()

	link, err := store.OAuthAccounts.Upsert(ctx, newLink(userID, models.ProviderGoogle, "g-123"))
	require.NoError(t, err)
	require.NoError(t, store.OAuthAccounts.Delete(ctx, link.ID))

	_, err = store.OAuthAccounts.FindByProviderAccount(ctx, models.ProviderGoogle, "g-123")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// the slot is reusable after deletion
	_, err = store.OAuthAccounts.Upsert(ctx, newLink(userID, models.ProviderGoogle, "g-999"))
	assert.NoError(t, err)
}

func TestItemCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	userID := id.NewUserID()

	item := &models.Item{
		ID:     id.NewItemID(),
		UserID: userID,
		Title:  "first",
		Status: models.ItemActive,
	}
	require.NoError(t, store.Items.Create(ctx, item))

	item.Status = models.ItemCompleted
	require.NoError(t, store.Items.Update(ctx, item))

	got, err := store.Items.FindByID(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ItemCompleted, got.Status)

	mine, err := store.Items.FindByUserID(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, store.Items.Delete(ctx, item.ID))
	assert.ErrorIs(t, store.Items.Delete(ctx, item.ID), repository.ErrNotFound)
}
