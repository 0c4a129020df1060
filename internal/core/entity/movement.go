package entity

import (
	"time"

	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// MovementDirection defines whether a stock movement removes or adds stock.
type MovementDirection string

const (
	// DirectionSortie decreases stock (sortie de stock)
	DirectionSortie MovementDirection = "sortie"
	// DirectionEntree increases stock (entrée de stock)
	DirectionEntree MovementDirection = "entree"
)

// LocationType identifies the kind of physical stock location.
type LocationType string

const (
	// LocationEntrepot is warehouse stock, the preferred deduction source.
	LocationEntrepot LocationType = "entrepot"
	// LocationPointVente is point-of-sale stock, drawn only after warehouses.
	LocationPointVente LocationType = "point_vente"
)

// LocationRef identifies one physical stock location.
type LocationRef struct {
	Type LocationType `db:"location_type" json:"locationType"`
	ID   id.ID        `db:"location_id" json:"locationId"`
}

// StockMovement is an immutable audit row created once per deduction or
// credit event. Movements are never updated or deleted.
type StockMovement struct {
	ID id.ID `db:"id" json:"id"`

	// Direction routes the row to sorties_stock or entrees_stock;
	// it is implied by the table and not stored as a column.
	Direction MovementDirection `db:"-" json:"direction"`

	// Dimensions
	LocationType LocationType `db:"location_type" json:"locationType"`
	LocationID   id.ID        `db:"location_id" json:"locationId"`
	ArticleID    id.ID        `db:"article_id" json:"articleId"`

	// Resources
	Quantity types.Quantity `db:"quantite" json:"quantite"`

	// Reference is a free-text traceability tag naming what triggered the
	// movement (e.g. "precommande:<id>/ligne:<id>" or "facture:<id>").
	Reference string `db:"reference" json:"reference"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewStockMovement creates a new stock movement.
func NewStockMovement(
	direction MovementDirection,
	location LocationRef,
	articleID id.ID,
	quantity types.Quantity,
	reference string,
) StockMovement {
	return StockMovement{
		ID:           id.New(),
		Direction:    direction,
		LocationType: location.Type,
		LocationID:   location.ID,
		ArticleID:    articleID,
		Quantity:     quantity,
		Reference:    reference,
		CreatedAt:    time.Now().UTC(),
	}
}

// SignedQuantity returns quantity with sign based on direction.
// Entrée = positive, sortie = negative.
func (m *StockMovement) SignedQuantity() types.Quantity {
	if m.Direction == DirectionSortie {
		return m.Quantity.Neg()
	}
	return m.Quantity
}
