package dto

import (
	"gestock/internal/core/types"
)

// StockEntryRequest registers received goods at a location.
type StockEntryRequest struct {
	LocationType string         `json:"locationType" binding:"required,oneof=entrepot point_vente"`
	LocationID   string         `json:"locationId" binding:"required,uuid"`
	ArticleID    string         `json:"articleId" binding:"required,uuid"`
	Quantite     types.Quantity `json:"quantite" binding:"required"`
	Reference    string         `json:"reference"`
}

// TransferRequest moves stock from a warehouse to a point of sale.
type TransferRequest struct {
	EntrepotID   string         `json:"entrepotId" binding:"required,uuid"`
	PointVenteID string         `json:"pointVenteId" binding:"required,uuid"`
	ArticleID    string         `json:"articleId" binding:"required,uuid"`
	Quantite     types.Quantity `json:"quantite" binding:"required"`
}
