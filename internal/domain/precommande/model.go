// Package precommande implements customer pre-orders and the cumulative
// delivery reconciliation workflow.
package precommande

import (
	"context"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/livraison"
)

// Precommande is a customer pre-order tracked to full delivery.
type Precommande struct {
	entity.BaseEntity

	ClientID id.ID  `db:"client_id" json:"clientId"`
	Numero   string `db:"numero" json:"numero"`

	// Statut is derived from the lines; persisted for listing queries.
	Statut livraison.Status `db:"statut" json:"statut"`

	Lines []Ligne `db:"-" json:"lignes"`
}

// Ligne is one article position on a pre-order. QuantiteLivree is
// cumulative: clients always submit the new total delivered, not a delta.
type Ligne struct {
	ID            id.ID `db:"id" json:"id"`
	PrecommandeID id.ID `db:"precommande_id" json:"precommandeId"`
	ArticleID     id.ID `db:"article_id" json:"articleId"`

	Quantite       types.Quantity `db:"quantite" json:"quantite"`
	QuantiteLivree types.Quantity `db:"quantite_livree" json:"quantiteLivree"`

	StatutLigne livraison.Status `db:"statut_ligne" json:"statutLigne"`
}

// Remaining returns the quantity still to deliver.
func (l *Ligne) Remaining() types.Quantity {
	r := l.Quantite - l.QuantiteLivree
	if r < 0 {
		return 0
	}
	return r
}

// Validate checks pre-order invariants.
func (p *Precommande) Validate(_ context.Context) error {
	if id.IsNil(p.ClientID) {
		return apperror.NewValidation("client is required")
	}
	if len(p.Lines) == 0 {
		return apperror.NewValidation("precommande must have at least one line")
	}
	for i := range p.Lines {
		l := &p.Lines[i]
		if id.IsNil(l.ArticleID) {
			return apperror.NewValidation("line article is required").WithDetail("line", i)
		}
		if !l.Quantite.IsPositive() {
			return apperror.NewValidation("line quantity must be positive").
				WithDetail("line", i).
				WithDetail("quantite", l.Quantite.String())
		}
		if l.QuantiteLivree.IsNegative() {
			return apperror.NewValidation("delivered quantity cannot be negative").WithDetail("line", i)
		}
		if l.QuantiteLivree > l.Quantite {
			return apperror.NewDeliveryExceedsOrder(l.ID.String(), l.Quantite.Float64(), l.QuantiteLivree.Float64())
		}
	}
	return nil
}

// AggregateStatus derives the document status from its lines by summing
// quantities, so a fully delivered large line outweighs an undelivered
// small one only when totals actually meet.
func AggregateStatus(lines []Ligne) livraison.Status {
	var ordered, delivered types.Quantity
	for _, l := range lines {
		ordered += l.Quantite
		delivered += l.QuantiteLivree
	}
	return livraison.StatusForProgress(delivered, ordered)
}

// DeliveryUpdate carries the new cumulative delivered quantity for one line.
type DeliveryUpdate struct {
	LineID         id.ID          `json:"ligneId"`
	QuantiteLivree types.Quantity `json:"quantiteLivree"`
}

// ReconcileResult reports what one reconciliation pass changed.
type ReconcileResult struct {
	PrecommandeID id.ID            `json:"precommandeId"`
	Statut        livraison.Status `json:"statut"`
	UpdatedLines  []Ligne          `json:"lignes"`

	// Shortfalls maps line id to the quantity stock could not cover.
	// Deliveries are recorded regardless; these are operator warnings.
	Shortfalls map[id.ID]types.Quantity `json:"shortfalls,omitempty"`
}
