package article

import (
	"context"

	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/tx"
	"gestock/pkg/logger"
)

// Service covers catalog management.
type Service struct {
	repo      Repository
	txManager tx.Manager
}

func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{repo: repo, txManager: txManager}
}

func (s *Service) Create(ctx context.Context, a *Article) error {
	if id.IsNil(a.ID) {
		a.BaseEntity = entity.NewBaseEntity()
	}
	a.Actif = true
	if err := a.Validate(ctx); err != nil {
		return err
	}
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Create(ctx, a)
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "article created", "article_id", a.ID, "nom", a.Nom)
	return nil
}

func (s *Service) Update(ctx context.Context, a *Article) error {
	if err := a.Validate(ctx); err != nil {
		return err
	}
	a.Touch()
	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.Update(ctx, a)
	})
}

func (s *Service) GetByID(ctx context.Context, articleID id.ID) (*Article, error) {
	return s.repo.GetByID(ctx, articleID)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Article, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}
