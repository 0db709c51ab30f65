package dto

import "github.com/stackstart/api/internal/models"

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type AuthResponse struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int64        `json:"expiresIn"`
}

type RefreshResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int64  `json:"expiresIn"`
}

type SessionsResponse struct {
	Sessions []models.Session `json:"sessions"`
}

type AuthorizeResponse struct {
	URL   string `json:"url"`
	State string `json:"state"`
}

type ProvidersResponse struct {
	Google   bool `json:"google"`
	Facebook bool `json:"facebook"`
	Twitter  bool `json:"twitter"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	DB        string `json:"db"`
}
