package services

import (
	"context"
	"errors"
	"strings"

	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/dto"
	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/models"
	"github.com/stackstart/api/internal/repository"
	"github.com/stackstart/api/internal/token"
)

var ErrItemNotFound = apperrors.NotFound("item not found")

type ItemService struct {
	store *repository.Store
}

func NewItemService(store *repository.Store) *ItemService {
	return &ItemService{store: store}
}

func (s *ItemService) Create(ctx context.Context, userID id.UserID, req *dto.CreateItemRequest) (*models.Item, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, apperrors.Validation("title is required")
	}

	item := &models.Item{
		ID:          id.NewItemID(),
		UserID:      userID,
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Status:      models.ItemActive,
	}
	if err := s.store.Items.Create(ctx, item); err != nil {
		return nil, apperrors.Internal(err)
	}
	return item, nil
}

// List returns the caller's items; admins see everything.
func (s *ItemService) List(ctx context.Context, claims *token.Claims) ([]models.Item, error) {
	var (
		items []models.Item
		err   error
	)
	if claims.Role == string(models.RoleAdmin) {
		items, err = s.store.Items.FindAll(ctx)
	} else {
		userID, perr := id.ParseUserID(claims.Subject)
		if perr != nil {
			return nil, apperrors.Authentication("invalid token subject")
		}
		items, err = s.store.Items.FindByUserID(ctx, userID)
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return items, nil
}

func (s *ItemService) Get(ctx context.Context, claims *token.Claims, itemID id.ItemID) (*models.Item, error) {
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := AssertOwner(item.UserID, claims); err != nil {
		return nil, err
	}
	return item, nil
}

func (s *ItemService) Update(ctx context.Context, claims *token.Claims, itemID id.ItemID, req *dto.UpdateItemRequest) (*models.Item, error) {
	item, err := s.load(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := AssertOwner(item.UserID, claims); err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, apperrors.Validation("title cannot be empty")
		}
		item.Title = title
	}
	if req.Description != nil {
		item.Description = strings.TrimSpace(*req.Description)
	}
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, apperrors.Validation("status must be one of: active, completed, archived")
		}
		item.Status = *req.Status
	}

	if err := s.store.Items.Update(ctx, item); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, apperrors.Internal(err)
	}
	return item, nil
}

func (s *ItemService) Delete(ctx context.Context, claims *token.Claims, itemID id.ItemID) error {
	item, err := s.load(ctx, itemID)
	if err != nil {
		return err
	}
	if err := AssertOwner(item.UserID, claims); err != nil {
		return err
	}
	if err := s.store.Items.Delete(ctx, itemID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrItemNotFound
		}
		return apperrors.Internal(err)
	}
	return nil
}

func (s *ItemService) load(ctx context.Context, itemID id.ItemID) (*models.Item, error) {
	item, err := s.store.Items.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, apperrors.Internal(err)
	}
	return item, nil
}
