package dto

import (
	"gestock/internal/core/types"
)

// CreateFactureLigne is one requested invoice line.
type CreateFactureLigne struct {
	ArticleID    string         `json:"articleId" binding:"required,uuid"`
	Quantite     types.Quantity `json:"quantite" binding:"required"`
	PrixUnitaire types.Money    `json:"prixUnitaire"`
}

// CreateFactureRequest creates a sale invoice.
type CreateFactureRequest struct {
	ClientID     string  `json:"clientId" binding:"required,uuid"`
	Numero       string  `json:"numero"`
	PointVenteID *string `json:"pointVenteId" binding:"omitempty,uuid"`

	// StatutLivraison is the client's delivery intent; several legacy
	// spellings are accepted and normalized server side.
	StatutLivraison string `json:"statutLivraison"`

	DeductStock bool `json:"deductStock"`

	MontantVerse types.Money `json:"montantVerse"`
	ModePaiement string      `json:"modePaiement"`

	Lignes []CreateFactureLigne `json:"lignes" binding:"required,min=1,dive"`
}

// RecordVersementRequest records a payment against an invoice.
type RecordVersementRequest struct {
	Montant      types.Money `json:"montant" binding:"required"`
	ModePaiement string      `json:"modePaiement"`
}
