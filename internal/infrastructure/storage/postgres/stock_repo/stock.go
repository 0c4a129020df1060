// Package stock_repo provides the PostgreSQL implementation of the stock
// repository.
package stock_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/stock"
	"gestock/internal/infrastructure/storage/postgres"
)

const (
	levelsTable  = "stock_disponible"
	sortiesTable = "sorties_stock"
	entreesTable = "entrees_stock"
)

var movementColumns = []string{
	"id", "location_type", "location_id", "article_id", "quantite", "reference", "created_at",
}

var _ stock.Repository = (*StockRepo)(nil)

// StockRepo implements stock.Repository.
type StockRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(txManager *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetLevelsByArticle returns all positive levels holding the article.
func (r *StockRepo) GetLevelsByArticle(ctx context.Context, articleID id.ID) ([]stock.StockLevel, error) {
	q := r.builder.Select(
		"article_id", "location_type", "location_id", "quantite_disponible",
	).From(levelsTable).
		Where(squirrel.Eq{"article_id": articleID}).
		Where(squirrel.Gt{"quantite_disponible": int64(0)}).
		OrderBy("location_type", "location_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []stock.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &levels, sql, args...); err != nil {
		return nil, fmt.Errorf("select levels: %w", err)
	}
	return levels, nil
}

// GetLevel returns the level at one location, zero-quantity if absent.
func (r *StockRepo) GetLevel(ctx context.Context, location entity.LocationRef, articleID id.ID) (stock.StockLevel, error) {
	q := r.builder.Select(
		"article_id", "location_type", "location_id", "quantite_disponible",
	).From(levelsTable).
		Where(squirrel.Eq{
			"article_id":    articleID,
			"location_type": location.Type,
			"location_id":   location.ID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return stock.StockLevel{}, fmt.Errorf("build query: %w", err)
	}

	var level stock.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &level, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.StockLevel{
				ArticleID:    articleID,
				LocationType: location.Type,
				LocationID:   location.ID,
			}, nil
		}
		return stock.StockLevel{}, fmt.Errorf("get level: %w", err)
	}
	return level, nil
}

// GetLevelsByLocation lists all levels held at one location.
func (r *StockRepo) GetLevelsByLocation(ctx context.Context, location entity.LocationRef) ([]stock.StockLevel, error) {
	q := r.builder.Select(
		"article_id", "location_type", "location_id", "quantite_disponible",
	).From(levelsTable).
		Where(squirrel.Eq{
			"location_type": location.Type,
			"location_id":   location.ID,
		}).
		OrderBy("article_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var levels []stock.StockLevel
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &levels, sql, args...); err != nil {
		return nil, fmt.Errorf("select levels: %w", err)
	}
	return levels, nil
}

// DeductLevel subtracts amount, guarded so the level can never go
// negative. Zero rows affected means the guard did not hold.
func (r *StockRepo) DeductLevel(ctx context.Context, location entity.LocationRef, articleID id.ID, amount types.Quantity) (bool, error) {
	sql := `
		UPDATE stock_disponible
		SET quantite_disponible = quantite_disponible - $1,
		    updated_at = $2
		WHERE article_id = $3
		  AND location_type = $4
		  AND location_id = $5
		  AND quantite_disponible >= $1
	`

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql,
		amount.Int64Scaled(), time.Now().UTC(), articleID, location.Type, location.ID)
	if err != nil {
		return false, fmt.Errorf("deduct level: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// CreditLevel adds amount, creating the level row on first stock.
func (r *StockRepo) CreditLevel(ctx context.Context, location entity.LocationRef, articleID id.ID, amount types.Quantity) error {
	sql := `
		INSERT INTO stock_disponible (article_id, location_type, location_id, quantite_disponible, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (article_id, location_type, location_id)
		DO UPDATE SET
			quantite_disponible = stock_disponible.quantite_disponible + EXCLUDED.quantite_disponible,
			updated_at = EXCLUDED.updated_at
	`

	querier := r.txManager.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql,
		articleID, location.Type, location.ID, amount.Int64Scaled(), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("credit level: %w", err)
	}
	return nil
}

// CreateMovements appends journal rows, routed by direction.
func (r *StockRepo) CreateMovements(ctx context.Context, movements []entity.StockMovement) error {
	if len(movements) == 0 {
		return nil
	}

	byTable := map[string][]entity.StockMovement{}
	for _, m := range movements {
		table := sortiesTable
		if m.Direction == entity.DirectionEntree {
			table = entreesTable
		}
		byTable[table] = append(byTable[table], m)
	}

	// Fast path: COPY when inside a transaction.
	if tx := r.txManager.GetTx(ctx); tx != nil {
		inserter := postgres.NewBatchInserter(r.txManager)
		for table, ms := range byTable {
			rows := make([][]any, 0, len(ms))
			for _, m := range ms {
				rows = append(rows, []any{
					m.ID, m.LocationType, m.LocationID, m.ArticleID,
					m.Quantity, m.Reference, m.CreatedAt,
				})
			}
			if _, err := inserter.CopyFromSlice(ctx, table, movementColumns, rows); err != nil {
				return fmt.Errorf("copy movements into %s: %w", table, err)
			}
		}
		return nil
	}

	// Fallback outside a transaction. Prefer calling within tx.
	querier := r.txManager.GetQuerier(ctx)
	for table, ms := range byTable {
		q := r.builder.Insert(table).Columns(movementColumns...)
		for _, m := range ms {
			q = q.Values(m.ID, m.LocationType, m.LocationID, m.ArticleID,
				m.Quantity, m.Reference, m.CreatedAt)
		}
		sql, args, err := q.ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := querier.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert movements into %s: %w", table, err)
		}
	}
	return nil
}

// GetMovementsByReference returns journal rows for a traceability tag,
// both directions merged, oldest first.
func (r *StockRepo) GetMovementsByReference(ctx context.Context, reference string) ([]entity.StockMovement, error) {
	sql := `
		SELECT id, 'sortie' AS direction, location_type, location_id, article_id, quantite, reference, created_at
		FROM sorties_stock
		WHERE reference = $1
		UNION ALL
		SELECT id, 'entree' AS direction, location_type, location_id, article_id, quantite, reference, created_at
		FROM entrees_stock
		WHERE reference = $1
		ORDER BY created_at
	`

	querier := r.txManager.GetQuerier(ctx)
	rows, err := querier.Query(ctx, sql, reference)
	if err != nil {
		return nil, fmt.Errorf("query movements: %w", err)
	}
	defer rows.Close()

	var movements []entity.StockMovement
	for rows.Next() {
		var m entity.StockMovement
		var quantiteScaled int64
		if err := rows.Scan(
			&m.ID, &m.Direction, &m.LocationType, &m.LocationID,
			&m.ArticleID, &quantiteScaled, &m.Reference, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		m.Quantity = types.NewQuantityFromInt64Scaled(quantiteScaled)
		movements = append(movements, m)
	}
	return movements, rows.Err()
}
