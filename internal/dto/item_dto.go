package dto

import "github.com/stackstart/api/internal/models"

type CreateItemRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type UpdateItemRequest struct {
	Title       *string            `json:"title"`
	Description *string            `json:"description"`
	Status      *models.ItemStatus `json:"status"`
}

type ItemsResponse struct {
	Items []models.Item `json:"items"`
}
