package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/stackstart/api/internal/apperrors"
	"github.com/stackstart/api/internal/dto"
	"github.com/stackstart/api/internal/id"
	"github.com/stackstart/api/internal/middleware"
	"github.com/stackstart/api/internal/services"
)

type AuthHandler struct {
	auth *services.AuthService
}

func NewAuthHandler(auth *services.AuthService) *AuthHandler {
	return &AuthHandler{auth: auth}
}

func clientMeta(c *fiber.Ctx) services.ClientMeta {
	return services.ClientMeta{
		UserAgent: c.Get(fiber.HeaderUserAgent),
		IPAddress: c.IP(),
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	resp, err := h.auth.Register(c.Context(), &req, clientMeta(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(dto.OK(resp))
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	resp, err := h.auth.Login(c.Context(), &req, clientMeta(c))
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(resp))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.Validation("invalid request body")
	}
	resp, err := h.auth.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(resp))
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	if err := h.auth.Logout(c.Context(), userID); err != nil {
		return err
	}
	return c.JSON(dto.OKMessage("logged out"))
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	user, err := h.auth.Me(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(fiber.Map{"user": user}))
}

func (h *AuthHandler) ListSessions(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}
	sessions, err := h.auth.ListSessions(c.Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK(dto.SessionsResponse{Sessions: sessions}))
}

func (h *AuthHandler) RevokeSession(c *fiber.Ctx) error {
	sessionID, err := id.ParseSessionID(c.Params("id"))
	if err != nil {
		return services.ErrSessionNotFound
	}
	if err := h.auth.RevokeSession(c.Context(), middleware.GetClaims(c), sessionID); err != nil {
		return err
	}
	return c.JSON(dto.OKMessage("session revoked"))
}
