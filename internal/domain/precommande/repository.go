package precommande

import (
	"context"

	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/livraison"
)

// ListFilter narrows List results.
type ListFilter struct {
	ClientID *id.ID
	Statut   *livraison.Status
	Limit    int
	Offset   int
}

// Repository persists pre-orders. Implementations must honor the
// transaction bound to ctx.
type Repository interface {
	Create(ctx context.Context, p *Precommande) error

	// GetByID returns the pre-order with its lines loaded.
	GetByID(ctx context.Context, precommandeID id.ID) (*Precommande, error)

	// GetLine reads one line. Reconciliation re-reads lines inside the
	// transaction rather than trusting the pre-validation snapshot.
	GetLine(ctx context.Context, lineID id.ID) (Ligne, error)

	// GetLines returns all lines of a pre-order.
	GetLines(ctx context.Context, precommandeID id.ID) ([]Ligne, error)

	// UpdateLineDelivered sets the cumulative delivered quantity and line
	// status, guarded by the previously read value. Returns
	// CONCURRENT_MODIFICATION when the guard matches zero rows.
	UpdateLineDelivered(ctx context.Context, lineID id.ID, expected, delivered types.Quantity, statut livraison.Status) error

	// UpdateStatut persists the derived document status.
	UpdateStatut(ctx context.Context, precommandeID id.ID, statut livraison.Status) error

	List(ctx context.Context, filter ListFilter) ([]*Precommande, error)
}
