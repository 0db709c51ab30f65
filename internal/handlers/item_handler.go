package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/dto"
	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/middleware"
	"github.com/stackstart/api/internal/services"
)

type ItemHandler struct {
	items *services.ItemService
}

func NewItemHandler(items *services.ItemService) *ItemHandler {
	return &ItemHandler{items: items}
}

func (h *ItemHandler) Create(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	var req dto.CreateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	item, err := h.items.Create(c.Context(), userID, &req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(item))
}

func (h *ItemHandler) List(c *fiber.Ctx) error {
	items, err := h.items.List(c.Context(), middleware.GetClaims(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(dto.ItemsResponse{Items: items}))
}

func (h *ItemHandler) Get(c *fiber.Ctx) error {
	itemID, err := id.ParseItemID(c.Params("id"))
	if err != nil {
		return services.ErrItemNotFound
	}
	item, err := h.items.Get(c.Context(), middleware.GetClaims(c), itemID)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(item))
}

func (h *ItemHandler) Update(c *fiber.Ctx) error {
	itemID, err := id.ParseItemID(c.Params("id"))
	if err != nil {
		return services.ErrItemNotFound
	}
	var req dto.UpdateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	item, err := h.items.Update(c.Context(), middleware.GetClaims(c), itemID, &req)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(item))
}

func (h *ItemHandler) Delete(c *fiber.Ctx) error {
	itemID, err := id.ParseItemID(c.Params("id"))
	if err != nil {
		return services.ErrItemNotFound
	}
	if err := h.items.Delete(c.Context(), middleware.GetClaims(c), itemID); err != nil {
		return err
	}
	return c.JSON(dto.OKMessage("item deleted"))
}
