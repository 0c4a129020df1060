package stock

import (
	"context"
	"fmt"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/tx"
	"gestock/internal/core/types"
	"gestock/internal/domain/event"
	"gestock/pkg/logger"
)

// Service covers stock operations initiated directly by operators:
// goods entries, warehouse to point-of-sale transfers, and level reads.
// Delivery and checkout deductions go through the Resolver instead.
type Service struct {
	repo      Repository
	resolver  *Resolver
	txManager tx.Manager
	events    event.Publisher
}

func NewService(repo Repository, resolver *Resolver, txManager tx.Manager, events event.Publisher) *Service {
	return &Service{
		repo:      repo,
		resolver:  resolver,
		txManager: txManager,
		events:    events,
	}
}

// RecordEntry registers received goods at a location and journals the
// entree movement.
func (s *Service) RecordEntry(ctx context.Context, location entity.LocationRef, articleID id.ID, quantity types.Quantity, reference string) (entity.StockMovement, error) {
	if !quantity.IsPositive() {
		return entity.StockMovement{}, apperror.NewValidation("entry quantity must be positive")
	}
	if reference == "" {
		reference = fmt.Sprintf("entree:%s", id.New())
	}

	var movement entity.StockMovement
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		movement, err = s.resolver.Credit(ctx, location, articleID, quantity, reference)
		if err != nil {
			return err
		}
		return s.events.Publish(ctx, event.Event{
			AggregateType: "stock_level",
			AggregateID:   articleID,
			EventType:     event.TypeStockAdjusted,
			Payload: map[string]any{
				"article_id":  articleID,
				"location_id": location.ID,
				"direction":   entity.DirectionEntree,
				"quantity":    quantity.String(),
				"reference":   reference,
			},
		})
	})
	if err != nil {
		return entity.StockMovement{}, err
	}

	logger.Info(ctx, "stock entry recorded",
		"article_id", articleID,
		"location_id", location.ID,
		"quantity", quantity.String())
	return movement, nil
}

// Transfer moves quantity from a warehouse to a point of sale. Unlike
// resolver deductions, a transfer draws from one named source and fails
// hard when the source cannot cover the full quantity.
func (s *Service) Transfer(ctx context.Context, from, to entity.LocationRef, articleID id.ID, quantity types.Quantity) error {
	if !quantity.IsPositive() {
		return apperror.NewValidation("transfer quantity must be positive")
	}
	if from == to {
		return apperror.NewValidation("transfer source and destination must differ")
	}

	reference := fmt.Sprintf("transfert:%s->%s", from.ID, to.ID)

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.repo.DeductLevel(ctx, from, articleID, quantity)
		if err != nil {
			return err
		}
		if !ok {
			level, err := s.repo.GetLevel(ctx, from, articleID)
			if err != nil {
				return err
			}
			return apperror.NewInsufficientStock(articleID.String(), quantity.Float64(), level.Quantity.Float64())
		}

		if err := s.repo.CreditLevel(ctx, to, articleID, quantity); err != nil {
			return err
		}

		movements := []entity.StockMovement{
			entity.NewStockMovement(entity.DirectionSortie, from, articleID, quantity, reference),
			entity.NewStockMovement(entity.DirectionEntree, to, articleID, quantity, reference),
		}
		if err := s.repo.CreateMovements(ctx, movements); err != nil {
			return err
		}

		return s.events.Publish(ctx, event.Event{
			AggregateType: "stock_level",
			AggregateID:   articleID,
			EventType:     event.TypeStockAdjusted,
			Payload: map[string]any{
				"article_id": articleID,
				"from":       from.ID,
				"to":         to.ID,
				"quantity":   quantity.String(),
			},
		})
	})
}

// GetLevelsByArticle returns the article's stock across all locations.
func (s *Service) GetLevelsByArticle(ctx context.Context, articleID id.ID) ([]StockLevel, error) {
	return s.repo.GetLevelsByArticle(ctx, articleID)
}

// GetLevelsByLocation lists stock held at one location.
func (s *Service) GetLevelsByLocation(ctx context.Context, location entity.LocationRef) ([]StockLevel, error) {
	return s.repo.GetLevelsByLocation(ctx, location)
}

// GetMovementsByReference returns the movement trail for a reference tag.
func (s *Service) GetMovementsByReference(ctx context.Context, reference string) ([]entity.StockMovement, error) {
	if reference == "" {
		return nil, apperror.NewValidation("reference is required")
	}
	return s.repo.GetMovementsByReference(ctx, reference)
}
