// Package article provides the product catalog read model used by sales
// and stock operations.
package article

import (
	"context"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/types"
)

// Article is a sellable product.
type Article struct {
	entity.BaseEntity

	Nom       string      `db:"nom" json:"nom"`
	Reference string      `db:"reference" json:"reference"`
	PrixVente types.Money `db:"prix_vente" json:"prixVente"`
	Actif     bool        `db:"actif" json:"actif"`
}

// Validate checks article invariants.
func (a *Article) Validate(_ context.Context) error {
	if a.Nom == "" {
		return apperror.NewValidation("article name is required")
	}
	if a.PrixVente.IsNegative() {
		return apperror.NewValidation("sale price cannot be negative")
	}
	return nil
}
