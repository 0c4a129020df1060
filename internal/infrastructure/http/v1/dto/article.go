package dto

import (
	"gestock/internal/core/types"
)

// CreateArticleRequest creates a catalog article.
type CreateArticleRequest struct {
	Nom       string      `json:"nom" binding:"required"`
	Reference string      `json:"reference"`
	PrixVente types.Money `json:"prixVente"`
}

// UpdateArticleRequest updates a catalog article.
type UpdateArticleRequest struct {
	Nom       string      `json:"nom" binding:"required"`
	Reference string      `json:"reference"`
	PrixVente types.Money `json:"prixVente"`
	Actif     bool        `json:"actif"`
}
