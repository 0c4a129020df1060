package facture

import (
	"context"

	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// StatusLookup resolves delivery intents against the livraison_statut
// lookup table. The cache implementation lives in infrastructure/cache.
type StatusLookup interface {
	// ResolveIntent normalizes a free-form intent and returns the lookup
	// row id to store on the invoice.
	ResolveIntent(ctx context.Context, intent string) (int64, string)

	// NameByID returns the lookup name for a stored id.
	NameByID(ctx context.Context, statusID int64) (string, error)
}

// VersementFilter narrows payment listings.
type VersementFilter struct {
	ClientID  *id.ID
	FactureID *id.ID
	Limit     int
	Offset    int
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	ClientID *id.ID
	Statut   *PaymentStatus
	Limit    int
	Offset   int
}

// Repository persists invoices, lines and payments. Implementations must
// honor the transaction bound to ctx.
type Repository interface {
	CreateFacture(ctx context.Context, f *FactureVente) error
	CreateLines(ctx context.Context, lines []LigneFacture) error

	GetByID(ctx context.Context, factureID id.ID) (*FactureVente, error)
	GetLines(ctx context.Context, factureID id.ID) ([]LigneFacture, error)
	List(ctx context.Context, filter ListFilter) ([]*FactureVente, error)

	// GetStatutLivraisonID reads back the persisted delivery status id,
	// used to verify what was stored after creation.
	GetStatutLivraisonID(ctx context.Context, factureID id.ID) (int64, error)

	// UpdatePayment sets the payment status and remaining balance.
	UpdatePayment(ctx context.Context, factureID id.ID, statut PaymentStatus, montantRestant types.Money) error

	CreateVersement(ctx context.Context, v *VersementClient) error
	SumVersements(ctx context.Context, factureID id.ID) (types.Money, error)
	ListVersements(ctx context.Context, filter VersementFilter) ([]VersementClient, error)

	// GetClientName and GetFactureNumero feed payment listing enrichment.
	GetClientName(ctx context.Context, clientID id.ID) (string, error)
	GetFactureNumero(ctx context.Context, factureID id.ID) (string, error)
}
