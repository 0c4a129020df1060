package dto

import (
	"gestock/internal/core/types"
)

// CreatePrecommandeLigne is one requested pre-order line.
type CreatePrecommandeLigne struct {
	ArticleID string         `json:"articleId" binding:"required,uuid"`
	Quantite  types.Quantity `json:"quantite" binding:"required"`
}

// CreatePrecommandeRequest creates a pre-order.
type CreatePrecommandeRequest struct {
	ClientID string                   `json:"clientId" binding:"required,uuid"`
	Numero   string                   `json:"numero"`
	Lignes   []CreatePrecommandeLigne `json:"lignes" binding:"required,min=1,dive"`
}

// DeliveryLineUpdate carries the new cumulative delivered quantity for
// one line.
type DeliveryLineUpdate struct {
	LigneID        string         `json:"ligneId" binding:"required,uuid"`
	QuantiteLivree types.Quantity `json:"quantiteLivree"`
}

// ReconcileDeliveryRequest applies delivered quantities to a pre-order.
type ReconcileDeliveryRequest struct {
	Lignes []DeliveryLineUpdate `json:"lignes" binding:"required,min=1,dive"`
}
