package article

import (
	"context"

	"gestock/internal/core/id"
)

// ListFilter narrows catalog listings.
type ListFilter struct {
	Search    string
	OnlyActif bool
	Limit     int
	Offset    int
}

// Repository persists articles.
type Repository interface {
	Create(ctx context.Context, a *Article) error
	Update(ctx context.Context, a *Article) error
	GetByID(ctx context.Context, articleID id.ID) (*Article, error)
	GetByReference(ctx context.Context, reference string) (*Article, error)
	List(ctx context.Context, filter ListFilter) ([]*Article, error)
}
