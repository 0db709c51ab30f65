// Package memory is the in-memory repository adapter. One mutex guards all
// maps, so a check-then-insert on a unique key is atomic and concurrent
// creates racing on the same key resolve to exactly one winner.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/repository"
)

type store struct {
	mu sync.RWMutex

	users      map[id.UserID]models.User
	emailIndex map[string]id.UserID

	sessions map[id.SessionID]models.Session

	oauthAccounts map[id.OAuthAccountID]models.OAuthAccount
	// provider ":" providerAccountID -> account id
	providerIndex map[string]id.OAuthAccountID
	// userID ":" provider -> account id
	userProviderIndex map[string]id.OAuthAccountID

	items map[id.ItemID]models.Item
}

// NewStore returns a repository.Store backed by process memory.
func NewStore() *repository.Store {
	s := &store{
		users:             make(map[id.UserID]models.User),
		emailIndex:        make(map[string]id.UserID),
		sessions:          make(map[id.SessionID]models.Session),
		oauthAccounts:     make(map[id.OAuthAccountID]models.OAuthAccount),
		providerIndex:     make(map[string]id.OAuthAccountID),
		userProviderIndex: make(map[string]id.OAuthAccountID),
		items:             make(map[id.ItemID]models.Item),
	}
	return &repository.Store{
		Users:         (*userRepo)(s),
		Sessions:      (*sessionRepo)(s),
		OAuthAccounts: (*oauthRepo)(s),
		Items:         (*itemRepo)(s),
	}
}

func providerKey(provider models.Provider, accountID string) string {
	return string(provider) + ":" + accountID
}

func userProviderKey(userID id.UserID, provider models.Provider) string {
	return string(userID) + ":" + string(provider)
}

type userRepo store

func (r *userRepo) Create(_ context.Context, user *models.User) error {
	email := strings.ToLower(user.Email)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, taken := r.emailIndex[email]; taken {
		return repository.ErrDuplicate
	}
	user.Email = email
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	r.emailIndex[email] = user.ID
	return nil
}

func (r *userRepo) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	u, err := r.FindByEmailWithPassword(ctx, email)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = nil
	return u, nil
}

func (r *userRepo) FindByEmailWithPassword(_ context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userID, ok := r.emailIndex[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	u := r.users[userID]
	return &u, nil
}

func (r *userRepo) Update(_ context.Context, userID id.UserID, update models.UserUpdate) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if update.Name != nil {
		u.Name = *update.Name
	}
	if update.AvatarURL != nil {
		u.AvatarURL = update.AvatarURL
	}
	if update.EmailVerified != nil {
		u.EmailVerified = *update.EmailVerified
	}
	if update.Role != nil {
		u.Role = *update.Role
	}
	if update.PasswordHash != nil {
		u.PasswordHash = update.PasswordHash
	}
	u.UpdatedAt = time.Now()
	r.users[userID] = u
	return &u, nil
}

func (r *userRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.emailIndex[strings.ToLower(email)]
	return ok, nil
}

type sessionRepo store

func (r *sessionRepo) Create(_ context.Context, session *models.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.sessions[session.ID]; exists {
		return repository.ErrDuplicate
	}
	session.CreatedAt = time.Now()
	r.sessions[session.ID] = *session
	return nil
}

func (r *sessionRepo) FindByID(_ context.Context, sessionID id.SessionID) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

func (r *sessionRepo) FindByUserID(_ context.Context, userID id.UserID) ([]models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Session
	for _, s := range r.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *sessionRepo) Delete(_ context.Context, sessionID id.SessionID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sessionID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *sessionRepo) DeleteAllByUserID(_ context.Context, userID id.UserID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for sid, s := range r.sessions {
		if s.UserID == userID {
			delete(r.sessions, sid)
			n++
		}
	}
	return n, nil
}

func (r *sessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for sid, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, sid)
			n++
		}
	}
	return n, nil
}

type oauthRepo store

func (r *oauthRepo) Upsert(_ context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()

	if existingID, ok := r.providerIndex[providerKey(account.Provider, account.ProviderAccountID)]; ok {
		existing := r.oauthAccounts[existingID]
		existing.AccessToken = account.AccessToken
		existing.RefreshToken = account.RefreshToken
		existing.ExpiresAt = account.ExpiresAt
		if len(account.Profile) > 0 {
			existing.Profile = account.Profile
		}
		existing.UpdatedAt = now
		r.oauthAccounts[existingID] = existing
		return &existing, nil
	}

	if _, taken := r.userProviderIndex[userProviderKey(account.UserID, account.Provider)]; taken {
		return nil, repository.ErrDuplicate
	}

	account.CreatedAt = now
	account.UpdatedAt = now
	r.oauthAccounts[account.ID] = *account
	r.providerIndex[providerKey(account.Provider, account.ProviderAccountID)] = account.ID
	r.userProviderIndex[userProviderKey(account.UserID, account.Provider)] = account.ID
	out := *account
	return &out, nil
}

func (r *oauthRepo) FindByProviderAccount(_ context.Context, provider models.Provider, providerAccountID string) (*models.OAuthAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	accountID, ok := r.providerIndex[providerKey(provider, providerAccountID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	a := r.oauthAccounts[accountID]
	return &a, nil
}

func (r *oauthRepo) FindAllByUserID(_ context.Context, userID id.UserID) ([]models.OAuthAccount, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.OAuthAccount
	for _, a := range r.oauthAccounts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *oauthRepo) Delete(_ context.Context, accountID id.OAuthAccountID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.oauthAccounts[accountID]
	if !ok {
		return repository.ErrNotFound
	}
	delete(r.oauthAccounts, accountID)
	delete(r.providerIndex, providerKey(a.Provider, a.ProviderAccountID))
	delete(r.userProviderIndex, userProviderKey(a.UserID, a.Provider))
	return nil
}

type itemRepo store

func (r *itemRepo) Create(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.ID]; exists {
		return repository.ErrDuplicate
	}
	now := time.Now()
	item.CreatedAt = now
	item.UpdatedAt = now
	r.items[item.ID] = *item
	return nil
}

func (r *itemRepo) FindByID(_ context.Context, itemID id.ItemID) (*models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	it, ok := r.items[itemID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &it, nil
}

func (r *itemRepo) FindByUserID(_ context.Context, userID id.UserID) ([]models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []models.Item
	for _, it := range r.items {
		if it.UserID == userID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *itemRepo) FindAll(_ context.Context) ([]models.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.Item, 0, len(r.items))
	for _, it := range r.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *itemRepo) Update(_ context.Context, item *models.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[item.ID]; !ok {
		return repository.ErrNotFound
	}
	item.UpdatedAt = time.Now()
	r.items[item.ID] = *item
	return nil
}

func (r *itemRepo) Delete(_ context.Context, itemID id.ItemID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[itemID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, itemID)
	return nil
}
