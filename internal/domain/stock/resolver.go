package stock

import (
	"context"
	"sort"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/pkg/logger"
)

// RankLevels orders deduction candidates: warehouses before points of
// sale, then by descending available quantity, then by location id for a
// stable order. Levels without positive stock are dropped.
func RankLevels(levels []StockLevel) []StockLevel {
	ranked := make([]StockLevel, 0, len(levels))
	for _, l := range levels {
		if l.Quantity.IsPositive() {
			ranked = append(ranked, l)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.LocationType != b.LocationType {
			return a.LocationType == entity.LocationEntrepot
		}
		if a.Quantity != b.Quantity {
			return a.Quantity > b.Quantity
		}
		return a.LocationID.String() < b.LocationID.String()
	})
	return ranked
}

// Resolver deducts a requested quantity across locations greedily. Each
// per-location subtraction is guarded in SQL, so a concurrent drain makes
// the resolver fall through to the next candidate instead of failing.
//
// Callers decide how to treat shortfall: deliveries log it and continue,
// point-of-sale checkout rejects before calling Deduct.
type Resolver struct {
	repo Repository
}

func NewResolver(repo Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Deduct removes up to quantity of the article from stock, warehouse
// first, and journals one sortie movement per touched location. Must run
// inside the caller's transaction so line persistence and movements
// commit together.
func (r *Resolver) Deduct(ctx context.Context, articleID id.ID, quantity types.Quantity, reference string) (*DeductionResult, error) {
	if !quantity.IsPositive() {
		return nil, apperror.NewValidation("deduction quantity must be positive").
			WithDetail("article_id", articleID.String()).
			WithDetail("quantity", quantity.String())
	}

	levels, err := r.repo.GetLevelsByArticle(ctx, articleID)
	if err != nil {
		return nil, err
	}

	result := &DeductionResult{
		ArticleID: articleID,
		Requested: quantity,
	}

	remaining := quantity
	for _, level := range RankLevels(levels) {
		if remaining.IsZero() {
			break
		}
		take := remaining.Min(level.Quantity)

		ok, err := r.repo.DeductLevel(ctx, level.Location(), articleID, take)
		if err != nil {
			return nil, err
		}
		if !ok {
			// Level drained since we read it; next candidate.
			logger.Debug(ctx, "stock level drained, skipping location",
				"article_id", articleID,
				"location_id", level.LocationID,
				"wanted", take.String())
			continue
		}

		result.Entries = append(result.Entries, DeductionEntry{
			Location: level.Location(),
			Amount:   take,
		})
		result.Movements = append(result.Movements, entity.NewStockMovement(
			entity.DirectionSortie, level.Location(), articleID, take, reference))
		remaining -= take
	}

	if len(result.Movements) > 0 {
		if err := r.repo.CreateMovements(ctx, result.Movements); err != nil {
			return nil, err
		}
	}

	result.Shortfall = remaining
	logger.Info(ctx, "stock deduction resolved",
		"article_id", articleID,
		"requested", quantity.String(),
		"deducted", result.Deducted().String(),
		"shortfall", result.Shortfall.String(),
		"locations", len(result.Entries),
		"reference", reference)

	return result, nil
}

// Credit adds quantity back to one location and journals an entree
// movement. Used by stock entries and the receiving side of transfers.
func (r *Resolver) Credit(ctx context.Context, location entity.LocationRef, articleID id.ID, quantity types.Quantity, reference string) (entity.StockMovement, error) {
	if !quantity.IsPositive() {
		return entity.StockMovement{}, apperror.NewValidation("credit quantity must be positive").
			WithDetail("article_id", articleID.String())
	}

	if err := r.repo.CreditLevel(ctx, location, articleID, quantity); err != nil {
		return entity.StockMovement{}, err
	}

	movement := entity.NewStockMovement(entity.DirectionEntree, location, articleID, quantity, reference)
	if err := r.repo.CreateMovements(ctx, []entity.StockMovement{movement}); err != nil {
		return entity.StockMovement{}, err
	}
	return movement, nil
}

// Available sums the article's stock across all locations.
func (r *Resolver) Available(ctx context.Context, articleID id.ID) (types.Quantity, error) {
	levels, err := r.repo.GetLevelsByArticle(ctx, articleID)
	if err != nil {
		return 0, err
	}
	var total types.Quantity
	for _, l := range levels {
		if l.Quantity.IsPositive() {
			total += l.Quantity
		}
	}
	return total, nil
}

// CheckAvailability returns INSUFFICIENT_STOCK when total stock across
// locations does not cover required. A snapshot check only; the guarded
// per-location updates remain authoritative.
func (r *Resolver) CheckAvailability(ctx context.Context, articleID id.ID, required types.Quantity) error {
	available, err := r.Available(ctx, articleID)
	if err != nil {
		return err
	}
	if available < required {
		return apperror.NewInsufficientStock(articleID.String(), required.Float64(), available.Float64())
	}
	return nil
}
