// Package stock implements stock level tracking and the multi-location
// deduction resolver used by deliveries and point-of-sale checkout.
package stock

import (
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// StockLevel is the current available quantity of one article at one
// physical location. (location, article) is unique.
type StockLevel struct {
	ArticleID    id.ID               `db:"article_id" json:"articleId"`
	LocationType entity.LocationType `db:"location_type" json:"locationType"`
	LocationID   id.ID               `db:"location_id" json:"locationId"`

	// Quantity is quantite_disponible; never negative.
	Quantity types.Quantity `db:"quantite_disponible" json:"quantiteDisponible"`
}

// Location returns the location reference for the level.
func (l StockLevel) Location() entity.LocationRef {
	return entity.LocationRef{Type: l.LocationType, ID: l.LocationID}
}

// DeductionEntry records how much was taken from one location during a
// resolver pass.
type DeductionEntry struct {
	Location entity.LocationRef `json:"location"`
	Amount   types.Quantity     `json:"amount"`
}

// DeductionResult is the outcome of a resolver pass. Shortfall is the
// portion of the requested quantity no location could cover; it is a
// reported value, never an error.
type DeductionResult struct {
	ArticleID id.ID                  `json:"articleId"`
	Requested types.Quantity         `json:"requested"`
	Entries   []DeductionEntry       `json:"entries"`
	Movements []entity.StockMovement `json:"-"`
	Shortfall types.Quantity         `json:"shortfall"`
}

// FullySatisfied reports whether the whole requested quantity was deducted.
func (r *DeductionResult) FullySatisfied() bool {
	return r.Shortfall <= 0
}

// Deducted returns the total quantity actually removed from stock.
func (r *DeductionResult) Deducted() types.Quantity {
	return r.Requested - r.Shortfall
}
