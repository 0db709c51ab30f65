// Package gormrepo is the Postgres repository adapter. Unique-key
// violations are surfaced as repository.ErrDuplicate; the database's
// unique indexes are what resolve concurrent creates racing on the same
// email or provider account.
package gormrepo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stackstart/api/internal/config"
	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/repository"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Connect opens the Postgres connection, runs migrations and returns the
// repository store.
func Connect(cfg *config.Config) (*repository.Store, *gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.AutoMigrate(
		&models.User{},
		&models.Session{},
		&models.OAuthAccount{},
		&models.Item{},
	); err != nil {
		return nil, nil, fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database connected", "host", cfg.DBHost, "name", cfg.DBName)
	return NewStore(db), db, nil
}

func NewStore(db *gorm.DB) *repository.Store {
	return &repository.Store{
		Users:         &userRepo{db},
		Sessions:      &sessionRepo{db},
		OAuthAccounts: &oauthRepo{db},
		Items:         &itemRepo{db},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return repository.ErrDuplicate
	default:
		return err
	}
}

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *userRepo) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", userID).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := r.FindByEmailWithPassword(ctx, email)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = nil
	return user, nil
}

func (r *userRepo) FindByEmailWithPassword(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "email = ?", email).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *userRepo) Update(ctx context.Context, userID id.UserID, update models.UserUpdate) (*models.User, error) {
	fields := map[string]interface{}{}
	if update.Name != nil {
		fields["name"] = *update.Name
	}
	if update.AvatarURL != nil {
		fields["avatar_url"] = *update.AvatarURL
	}
	if update.EmailVerified != nil {
		fields["email_verified"] = *update.EmailVerified
	}
	if update.Role != nil {
		fields["role"] = *update.Role
	}
	if update.PasswordHash != nil {
		fields["password_hash"] = *update.PasswordHash
	}
	if len(fields) > 0 {
		result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Updates(fields)
		if result.Error != nil {
			return nil, translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return nil, repository.ErrNotFound
		}
	}
	return r.FindByID(ctx, userID)
}

func (r *userRepo) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error
	return count > 0, translate(err)
}

type sessionRepo struct {
	db *gorm.DB
}

func (r *sessionRepo) Create(ctx context.Context, session *models.Session) error {
	return translate(r.db.WithContext(ctx).Create(session).Error)
}

func (r *sessionRepo) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	var session models.Session
	if err := r.db.WithContext(ctx).First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, translate(err)
	}
	return &session, nil
}

func (r *sessionRepo) FindByUserID(ctx context.Context, userID id.UserID) ([]models.Session, error) {
	var sessions []models.Session
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&sessions).Error
	return sessions, translate(err)
}

func (r *sessionRepo) Delete(ctx context.Context, sessionID id.SessionID) error {
	result := r.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", sessionID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *sessionRepo) DeleteAllByUserID(ctx context.Context, userID id.UserID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Session{}, "user_id = ?", userID)
	return result.RowsAffected, translate(result.Error)
}

func (r *sessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&models.Session{}, "expires_at < ?", now)
	return result.RowsAffected, translate(result.Error)
}

type oauthRepo struct {
	db *gorm.DB
}

func (r *oauthRepo) Upsert(ctx context.Context, account *models.OAuthAccount) (*models.OAuthAccount, error) {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "provider"}, {Name: "provider_account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"access_token", "refresh_token", "expires_at", "profile", "updated_at",
		}),
	}).Create(account).Error
	if err != nil {
		// A conflict on (user_id, provider) is not absorbed by the ON
		// CONFLICT target above and comes back as a duplicate-key error.
		return nil, translate(err)
	}
	return r.FindByProviderAccount(ctx, account.Provider, account.ProviderAccountID)
}

func (r *oauthRepo) FindByProviderAccount(ctx context.Context, provider models.Provider, providerAccountID string) (*models.OAuthAccount, error) {
	var account models.OAuthAccount
	err := r.db.WithContext(ctx).
		First(&account, "provider = ? AND provider_account_id = ?", provider, providerAccountID).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *oauthRepo) FindAllByUserID(ctx context.Context, userID id.UserID) ([]models.OAuthAccount, error) {
	var accounts []models.OAuthAccount
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&accounts).Error
	return accounts, translate(err)
}

func (r *oauthRepo) Delete(ctx context.Context, accountID id.OAuthAccountID) error {
	result := r.db.WithContext(ctx).Delete(&models.OAuthAccount{}, "id = ?", accountID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type itemRepo struct {
	db *gorm.DB
}

func (r *itemRepo) Create(ctx context.Context, item *models.Item) error {
	return translate(r.db.WithContext(ctx).Create(item).Error)
}

func (r *itemRepo) FindByID(ctx context.Context, itemID id.ItemID) (*models.Item, error) {
	var item models.Item
	if err := r.db.WithContext(ctx).First(&item, "id = ?", itemID).Error; err != nil {
		return nil, translate(err)
	}
	return &item, nil
}

func (r *itemRepo) FindByUserID(ctx context.Context, userID id.UserID) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&items).Error
	return items, translate(err)
}

func (r *itemRepo) FindAll(ctx context.Context) ([]models.Item, error) {
	var items []models.Item
	err := r.db.WithContext(ctx).Order("id").Find(&items).Error
	return items, translate(err)
}

func (r *itemRepo) Update(ctx context.Context, item *models.Item) error {
	result := r.db.WithContext(ctx).Model(item).Updates(map[string]interface{}{
		"title":       item.Title,
		"description": item.Description,
		"status":      item.Status,
	})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *itemRepo) Delete(ctx context.Context, itemID id.ItemID) error {
	result := r.db.WithContext(ctx).Delete(&models.Item{}, "id = ?", itemID)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
