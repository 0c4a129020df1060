package precommande

import (
	"context"
	"fmt"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/tx"
	"gestock/internal/core/types"
	"gestock/internal/domain/audit"
	"gestock/internal/domain/event"
	"gestock/internal/domain/livraison"
	"gestock/internal/domain/stock"
	"gestock/pkg/logger"
)

// Service implements the delivery reconciliation workflow.
type Service struct {
	repo      Repository
	resolver  *stock.Resolver
	txManager tx.Manager
	events    event.Publisher
	audit     audit.Recorder
}

func NewService(repo Repository, resolver *stock.Resolver, txManager tx.Manager, events event.Publisher, auditRecorder audit.Recorder) *Service {
	return &Service{
		repo:      repo,
		resolver:  resolver,
		txManager: txManager,
		events:    events,
		audit:     auditRecorder,
	}
}

// Create registers a new pre-order. Lines start undelivered.
func (s *Service) Create(ctx context.Context, p *Precommande) error {
	if id.IsNil(p.ID) {
		p.BaseEntity = entity.NewBaseEntity()
	}
	for i := range p.Lines {
		l := &p.Lines[i]
		if id.IsNil(l.ID) {
			l.ID = id.New()
		}
		l.PrecommandeID = p.ID
		l.QuantiteLivree = 0
		l.StatutLigne = livraison.StatusEnAttente
	}
	p.Statut = livraison.StatusEnAttente

	if err := p.Validate(ctx); err != nil {
		return err
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, p)
	})
}

// GetByID returns a pre-order with its lines.
func (s *Service) GetByID(ctx context.Context, precommandeID id.ID) (*Precommande, error) {
	return s.repo.GetByID(ctx, precommandeID)
}

// List returns pre-orders matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Precommande, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// ReconcileDelivery applies cumulative delivered quantities to pre-order
// lines. Per line, the recorded delivery and the stock deduction commit
// in one transaction; a stock shortfall is logged and reported but never
// blocks the delivery record. Lines are processed in submission order
// and the pass aborts on the first failing line, leaving earlier lines
// committed.
//
// Decreasing a delivered quantity corrects the record only; stock taken
// by the earlier delivery is not credited back. Physical returns go
// through an explicit stock entry.
func (s *Service) ReconcileDelivery(ctx context.Context, precommandeID id.ID, updates []DeliveryUpdate) (*ReconcileResult, error) {
	if len(updates) == 0 {
		return nil, apperror.NewValidation("at least one line update is required")
	}
	seen := make(map[id.ID]struct{}, len(updates))
	for _, u := range updates {
		if _, dup := seen[u.LineID]; dup {
			return nil, apperror.NewValidation("duplicate line in update").WithDetail("ligne_id", u.LineID.String())
		}
		seen[u.LineID] = struct{}{}
	}

	doc, err := s.repo.GetByID(ctx, precommandeID)
	if err != nil {
		return nil, err
	}

	byLine := make(map[id.ID]Ligne, len(doc.Lines))
	for _, l := range doc.Lines {
		byLine[l.ID] = l
	}

	// Validate the whole batch before touching anything.
	for _, u := range updates {
		line, ok := byLine[u.LineID]
		if !ok {
			return nil, apperror.NewNotFound("ligne_precommande", u.LineID.String())
		}
		if u.QuantiteLivree.IsNegative() {
			return nil, apperror.NewValidation("delivered quantity cannot be negative").
				WithDetail("ligne_id", u.LineID.String())
		}
		if u.QuantiteLivree > line.Quantite {
			return nil, apperror.NewDeliveryExceedsOrder(u.LineID.String(), line.Quantite.Float64(), u.QuantiteLivree.Float64())
		}
	}

	result := &ReconcileResult{
		PrecommandeID: precommandeID,
		Shortfalls:    make(map[id.ID]types.Quantity),
	}

	for _, u := range updates {
		if err := s.reconcileLine(ctx, doc, u, result); err != nil {
			return nil, err
		}
	}

	// Aggregate over ALL lines, not just the updated ones.
	lines, err := s.repo.GetLines(ctx, precommandeID)
	if err != nil {
		return nil, err
	}
	result.Statut = AggregateStatus(lines)

	if result.Statut != doc.Statut {
		err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
			if err := s.repo.UpdateStatut(ctx, precommandeID, result.Statut); err != nil {
				return err
			}
			return s.events.Publish(ctx, event.Event{
				AggregateType: "precommande",
				AggregateID:   precommandeID,
				EventType:     event.TypePrecommandeStatutChange,
				Payload: map[string]any{
					"precommande_id": precommandeID,
					"statut":         result.Statut,
					"previous":       doc.Statut,
				},
			})
		})
		if err != nil {
			return nil, err
		}
	}

	if err := s.audit.Append(ctx, audit.Entry{
		Operation:  "reconcile_delivery",
		EntityType: "precommande",
		EntityID:   precommandeID,
		Changes: map[string]any{
			"updates": updates,
			"statut":  result.Statut,
		},
	}); err != nil {
		logger.Error(ctx, "audit append failed", "error", err, "precommande_id", precommandeID)
	}

	logger.Info(ctx, "delivery reconciled",
		"precommande_id", precommandeID,
		"lines", len(updates),
		"statut", result.Statut,
		"shortfalls", len(result.Shortfalls))

	return result, nil
}

// reconcileLine records one line's delivery and draws stock for the
// positive delta, in a single transaction.
func (s *Service) reconcileLine(ctx context.Context, doc *Precommande, u DeliveryUpdate, result *ReconcileResult) error {
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Fresh read: the pre-validation snapshot may be stale.
		line, err := s.repo.GetLine(ctx, u.LineID)
		if err != nil {
			return err
		}
		if u.QuantiteLivree > line.Quantite {
			return apperror.NewDeliveryExceedsOrder(u.LineID.String(), line.Quantite.Float64(), u.QuantiteLivree.Float64())
		}

		delta := u.QuantiteLivree - line.QuantiteLivree
		statut := livraison.StatusForProgress(u.QuantiteLivree, line.Quantite)

		// Record the delivery before drawing stock.
		if err := s.repo.UpdateLineDelivered(ctx, line.ID, line.QuantiteLivree, u.QuantiteLivree, statut); err != nil {
			return err
		}

		if delta.IsPositive() {
			reference := fmt.Sprintf("precommande:%s/ligne:%s", doc.ID, line.ID)
			deduction, err := s.resolver.Deduct(ctx, line.ArticleID, delta, reference)
			if err != nil {
				return err
			}
			if !deduction.FullySatisfied() {
				result.Shortfalls[line.ID] = deduction.Shortfall
				logger.Warn(ctx, "delivery recorded with stock shortfall",
					"precommande_id", doc.ID,
					"ligne_id", line.ID,
					"article_id", line.ArticleID,
					"delta", delta.String(),
					"shortfall", deduction.Shortfall.String())
			}
			if err := s.events.Publish(ctx, event.Event{
				AggregateType: "stock_level",
				AggregateID:   line.ArticleID,
				EventType:     event.TypeStockAdjusted,
				Payload: map[string]any{
					"article_id": line.ArticleID,
					"deducted":   deduction.Deducted().String(),
					"reference":  reference,
				},
			}); err != nil {
				return err
			}
		}
		// delta <= 0: correction of the record only, stock untouched.

		line.QuantiteLivree = u.QuantiteLivree
		line.StatutLigne = statut
		result.UpdatedLines = append(result.UpdatedLines, line)
		return nil
	})
}
