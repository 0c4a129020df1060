// Package catalog_repo provides PostgreSQL implementations for catalog
// repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/domain/article"
	"gestock/internal/infrastructure/storage/postgres"
)

const articlesTable = "articles"

var articleColumns = []string{
	"id", "nom", "reference", "prix_vente", "actif", "created_at", "updated_at",
}

var _ article.Repository = (*ArticleRepo)(nil)

// ArticleRepo implements article.Repository.
type ArticleRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewArticleRepo creates a new article repository.
func NewArticleRepo(txManager *postgres.TxManager) *ArticleRepo {
	return &ArticleRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *ArticleRepo) Create(ctx context.Context, a *article.Article) error {
	sql, args, err := r.builder.Insert(articlesTable).
		Columns(articleColumns...).
		Values(a.ID, a.Nom, a.Reference, a.PrixVente, a.Actif, a.CreatedAt, a.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert article: %w", err)
	}
	return nil
}

func (r *ArticleRepo) Update(ctx context.Context, a *article.Article) error {
	sql, args, err := r.builder.Update(articlesTable).
		Set("nom", a.Nom).
		Set("reference", a.Reference).
		Set("prix_vente", a.PrixVente).
		Set("actif", a.Actif).
		Set("updated_at", a.UpdatedAt).
		Where(squirrel.Eq{"id": a.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("article", a.ID.String())
	}
	return nil
}

func (r *ArticleRepo) GetByID(ctx context.Context, articleID id.ID) (*article.Article, error) {
	sql, args, err := r.builder.Select(articleColumns...).
		From(articlesTable).
		Where(squirrel.Eq{"id": articleID}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a article.Article
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("article", articleID.String())
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &a, nil
}

func (r *ArticleRepo) GetByReference(ctx context.Context, reference string) (*article.Article, error) {
	sql, args, err := r.builder.Select(articleColumns...).
		From(articlesTable).
		Where(squirrel.Eq{"reference": reference}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var a article.Article
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &a, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("article", reference)
		}
		return nil, fmt.Errorf("get article by reference: %w", err)
	}
	return &a, nil
}

func (r *ArticleRepo) List(ctx context.Context, filter article.ListFilter) ([]*article.Article, error) {
	q := r.builder.Select(articleColumns...).From(articlesTable)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"nom": pattern},
			squirrel.ILike{"reference": pattern},
		})
	}
	if filter.OnlyActif {
		q = q.Where(squirrel.Eq{"actif": true})
	}

	q = q.OrderBy("nom")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var articles []*article.Article
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &articles, sql, args...); err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	return articles, nil
}
