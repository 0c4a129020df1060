// Package facture implements sale invoices: creation with delivery
// status derivation, optional stock deduction, and customer payments.
package facture

import (
	"context"
	"time"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// PaymentStatus tracks how much of the invoice has been settled.
type PaymentStatus string

const (
	PaymentEnAttente PaymentStatus = "en_attente"
	PaymentPartielle PaymentStatus = "partiellement_payee"
	PaymentPayee     PaymentStatus = "payee"
)

// DerivePaymentStatus maps the amount already paid against the invoice
// total to a payment status. Overpayment counts as fully paid.
func DerivePaymentStatus(paid, total types.Money) PaymentStatus {
	switch {
	case !paid.IsPositive():
		return PaymentEnAttente
	case paid.GreaterThanOrEqual(total):
		return PaymentPayee
	default:
		return PaymentPartielle
	}
}

// FactureVente is a sale invoice.
type FactureVente struct {
	entity.BaseEntity

	Numero   string `db:"numero" json:"numero"`
	ClientID id.ID  `db:"client_id" json:"clientId"`

	// PointVenteID is set for point-of-sale checkouts; nil for back
	// office sales against warehouse stock.
	PointVenteID *id.ID `db:"point_vente_id" json:"pointVenteId,omitempty"`

	MontantTTC     types.Money `db:"montant_ttc" json:"montantTtc"`
	MontantRestant types.Money `db:"montant_restant" json:"montantRestant"`

	StatutPaiement PaymentStatus `db:"statut_paiement" json:"statutPaiement"`

	// StatutLivraisonID references the livraison_statut lookup table.
	StatutLivraisonID int64 `db:"statut_livraison_id" json:"statutLivraisonId"`

	Lines []LigneFacture `db:"-" json:"lignes"`
}

// LigneFacture is one article position on an invoice.
type LigneFacture struct {
	ID        id.ID `db:"id" json:"id"`
	FactureID id.ID `db:"facture_id" json:"factureId"`
	ArticleID id.ID `db:"article_id" json:"articleId"`

	Quantite     types.Quantity `db:"quantite" json:"quantite"`
	PrixUnitaire types.Money    `db:"prix_unitaire" json:"prixUnitaire"`
	MontantLigne types.Money    `db:"montant_ligne" json:"montantLigne"`

	// StatutLivraison mirrors the parent invoice's delivery status as
	// text. Legacy line-level reports read this column directly.
	StatutLivraison string `db:"statut_livraison" json:"statutLivraison"`
}

// VersementClient is one customer payment against an invoice.
type VersementClient struct {
	ID        id.ID `db:"id" json:"id"`
	FactureID id.ID `db:"facture_id" json:"factureId"`
	ClientID  id.ID `db:"client_id" json:"clientId"`

	Montant      types.Money `db:"montant" json:"montant"`
	ModePaiement string      `db:"mode_paiement" json:"modePaiement"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// CreateSaleLine is one requested invoice line.
type CreateSaleLine struct {
	ArticleID    id.ID          `json:"articleId"`
	Quantite     types.Quantity `json:"quantite"`
	PrixUnitaire types.Money    `json:"prixUnitaire"`
}

// CreateSaleInput is the invoice creation request.
type CreateSaleInput struct {
	ClientID id.ID  `json:"clientId"`
	Numero   string `json:"numero"`

	// PointVenteID switches the sale to point-of-sale mode: stock is
	// checked up front and drawn from this location's context.
	PointVenteID *id.ID `json:"pointVenteId,omitempty"`

	// DeliveryIntent is the client's free-form delivery state; it is
	// normalized through the livraison_statut lookup.
	DeliveryIntent string `json:"deliveryIntent"`

	// DeductStock requests immediate stock deduction on creation.
	// Always treated as true in point-of-sale mode.
	DeductStock bool `json:"deductStock"`

	// MontantVerse is the payment taken at creation time, zero if none.
	MontantVerse types.Money `json:"montantVerse"`
	ModePaiement string      `json:"modePaiement"`

	Lines []CreateSaleLine `json:"lignes"`
}

// Validate checks the creation request.
func (in *CreateSaleInput) Validate(_ context.Context) error {
	if id.IsNil(in.ClientID) {
		return apperror.NewValidation("client is required")
	}
	if len(in.Lines) == 0 {
		return apperror.NewValidation("invoice must have at least one line")
	}
	for i, l := range in.Lines {
		if id.IsNil(l.ArticleID) {
			return apperror.NewValidation("line article is required").WithDetail("line", i)
		}
		if !l.Quantite.IsPositive() {
			return apperror.NewValidation("line quantity must be positive").WithDetail("line", i)
		}
		if l.PrixUnitaire.IsNegative() {
			return apperror.NewValidation("unit price cannot be negative").WithDetail("line", i)
		}
	}
	if !in.Total().IsPositive() {
		return apperror.NewValidation("invoice total must be positive")
	}
	if in.MontantVerse.IsNegative() {
		return apperror.NewValidation("payment amount cannot be negative")
	}
	return nil
}

// Total returns the invoice total over the requested lines.
func (in *CreateSaleInput) Total() types.Money {
	total := types.ZeroMoney()
	for _, l := range in.Lines {
		total = total.Add(l.PrixUnitaire.Mul(l.Quantite.Decimal()))
	}
	return total
}

// CreateSaleResult is the creation outcome.
type CreateSaleResult struct {
	Facture *FactureVente `json:"facture"`

	// StatutLivraison is the lookup name read back after insertion,
	// confirming what was actually persisted.
	StatutLivraison string `json:"statutLivraison"`

	// StockWarning is set when post-creation deduction could not cover
	// the full quantity; the invoice stands regardless.
	StockWarning string `json:"stockWarning,omitempty"`
}
