// Package precommande_repo provides the PostgreSQL implementation of the
// pre-order repository.
package precommande_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/livraison"
	"gestock/internal/domain/precommande"
	"gestock/internal/infrastructure/storage/postgres"
)

const (
	precommandesTable = "precommandes"
	lignesTable       = "lignes_precommande"
)

var _ precommande.Repository = (*PrecommandeRepo)(nil)

// PrecommandeRepo implements precommande.Repository.
type PrecommandeRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewPrecommandeRepo creates a new pre-order repository.
func NewPrecommandeRepo(txManager *postgres.TxManager) *PrecommandeRepo {
	return &PrecommandeRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts the document and its lines.
func (r *PrecommandeRepo) Create(ctx context.Context, p *precommande.Precommande) error {
	sql, args, err := r.builder.Insert(precommandesTable).
		Columns("id", "client_id", "numero", "statut", "created_at", "updated_at").
		Values(p.ID, p.ClientID, p.Numero, p.Statut, p.CreatedAt, p.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert precommande: %w", err)
	}

	if len(p.Lines) == 0 {
		return nil
	}

	q := r.builder.Insert(lignesTable).
		Columns("id", "precommande_id", "article_id", "quantite", "quantite_livree", "statut_ligne")
	for _, l := range p.Lines {
		q = q.Values(l.ID, l.PrecommandeID, l.ArticleID, l.Quantite, l.QuantiteLivree, l.StatutLigne)
	}
	sql, args, err = q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lignes: %w", err)
	}
	return nil
}

// GetByID returns the document with its lines loaded.
func (r *PrecommandeRepo) GetByID(ctx context.Context, precommandeID id.ID) (*precommande.Precommande, error) {
	sql, args, err := r.builder.Select(
		"id", "client_id", "numero", "statut", "created_at", "updated_at",
	).From(precommandesTable).
		Where(squirrel.Eq{"id": precommandeID}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p precommande.Precommande
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("precommande", precommandeID.String())
		}
		return nil, fmt.Errorf("get precommande: %w", err)
	}

	lines, err := r.GetLines(ctx, precommandeID)
	if err != nil {
		return nil, err
	}
	p.Lines = lines
	return &p, nil
}

// GetLines returns all lines of a pre-order.
func (r *PrecommandeRepo) GetLines(ctx context.Context, precommandeID id.ID) ([]precommande.Ligne, error) {
	sql, args, err := r.builder.Select(
		"id", "precommande_id", "article_id", "quantite", "quantite_livree", "statut_ligne",
	).From(lignesTable).
		Where(squirrel.Eq{"precommande_id": precommandeID}).
		OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []precommande.Ligne
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lignes: %w", err)
	}
	return lines, nil
}

// GetLine reads one line.
func (r *PrecommandeRepo) GetLine(ctx context.Context, lineID id.ID) (precommande.Ligne, error) {
	sql, args, err := r.builder.Select(
		"id", "precommande_id", "article_id", "quantite", "quantite_livree", "statut_ligne",
	).From(lignesTable).
		Where(squirrel.Eq{"id": lineID}).
		Limit(1).ToSql()
	if err != nil {
		return precommande.Ligne{}, fmt.Errorf("build query: %w", err)
	}

	var line precommande.Ligne
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &line, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return precommande.Ligne{}, apperror.NewNotFound("ligne_precommande", lineID.String())
		}
		return precommande.Ligne{}, fmt.Errorf("get ligne: %w", err)
	}
	return line, nil
}

// UpdateLineDelivered sets the delivered quantity, guarded by the value
// previously read so concurrent reconciliations cannot silently stack.
func (r *PrecommandeRepo) UpdateLineDelivered(ctx context.Context, lineID id.ID, expected, delivered types.Quantity, statut livraison.Status) error {
	sql := `
		UPDATE lignes_precommande
		SET quantite_livree = $1, statut_ligne = $2
		WHERE id = $3 AND quantite_livree = $4
	`

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql,
		delivered.Int64Scaled(), statut, lineID, expected.Int64Scaled())
	if err != nil {
		return fmt.Errorf("update ligne: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a missing line from a lost race.
		if _, err := r.GetLine(ctx, lineID); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("ligne_precommande", lineID.String())
	}
	return nil
}

// UpdateStatut persists the derived document status.
func (r *PrecommandeRepo) UpdateStatut(ctx context.Context, precommandeID id.ID, statut livraison.Status) error {
	sql, args, err := r.builder.Update(precommandesTable).
		Set("statut", statut).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": precommandeID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update statut: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("precommande", precommandeID.String())
	}
	return nil
}

// List returns pre-orders matching the filter, newest first, without
// lines.
func (r *PrecommandeRepo) List(ctx context.Context, filter precommande.ListFilter) ([]*precommande.Precommande, error) {
	q := r.builder.Select(
		"id", "client_id", "numero", "statut", "created_at", "updated_at",
	).From(precommandesTable)

	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.Statut != nil {
		q = q.Where(squirrel.Eq{"statut": *filter.Statut})
	}

	q = q.OrderBy("created_at DESC")
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

	var docs []*precommande.Precommande
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &docs, sql, args...); err != nil {
		return nil, fmt.Errorf("select precommandes: %w", err)
	}
	return docs, nil
}
