package stock

import (
	"context"

	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// Repository provides access to stock levels and movement journals.
// Implementations must honor the transaction bound to ctx.
type Repository interface {
	// GetLevelsByArticle returns all positive stock levels holding the
	// article, across warehouses and points of sale.
	GetLevelsByArticle(ctx context.Context, articleID id.ID) ([]StockLevel, error)

	// GetLevel returns the level at one location, zero-quantity if absent.
	GetLevel(ctx context.Context, location entity.LocationRef, articleID id.ID) (StockLevel, error)

	// GetLevelsByLocation lists all levels held at one location.
	GetLevelsByLocation(ctx context.Context, location entity.LocationRef) ([]StockLevel, error)

	// DeductLevel atomically subtracts amount from the location's level.
	// Returns false without error when the level no longer covers amount
	// (the guard `quantite_disponible >= amount` matched zero rows).
	DeductLevel(ctx context.Context, location entity.LocationRef, articleID id.ID, amount types.Quantity) (bool, error)

	// CreditLevel adds amount to the location's level, creating it at
	// zero first if the article was never stocked there.
	CreditLevel(ctx context.Context, location entity.LocationRef, articleID id.ID, amount types.Quantity) error

	// CreateMovements appends journal rows, routed to sorties_stock or
	// entrees_stock by direction.
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error

	// GetMovementsByReference returns the journal rows tagged with a
	// traceability reference, both directions merged.
	GetMovementsByReference(ctx context.Context, reference string) ([]entity.StockMovement, error)
}
