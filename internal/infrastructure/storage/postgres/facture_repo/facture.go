// Package facture_repo provides the PostgreSQL implementation of the
// sale invoice repository.
package facture_repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"gestock/internal/core/apperror"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/facture"
	"gestock/internal/infrastructure/storage/postgres"
)

const (
	facturesTable   = "factures_vente"
	lignesTable     = "lignes_facture_vente"
	versementsTable = "versements_client"
	clientsTable    = "clients"
)

var _ facture.Repository = (*FactureRepo)(nil)

// FactureRepo implements facture.Repository.
type FactureRepo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewFactureRepo creates a new invoice repository.
func NewFactureRepo(txManager *postgres.TxManager) *FactureRepo {
	return &FactureRepo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateFacture inserts the invoice header.
func (r *FactureRepo) CreateFacture(ctx context.Context, f *facture.FactureVente) error {
	sql, args, err := r.builder.Insert(facturesTable).
		Columns("id", "numero", "client_id", "point_vente_id",
			"montant_ttc", "montant_restant", "statut_paiement", "statut_livraison_id",
			"created_at", "updated_at").
		Values(f.ID, f.Numero, f.ClientID, f.PointVenteID,
			f.MontantTTC, f.MontantRestant, f.StatutPaiement, f.StatutLivraisonID,
			f.CreatedAt, f.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert facture: %w", err)
	}
	return nil
}

// CreateLines inserts invoice lines.
func (r *FactureRepo) CreateLines(ctx context.Context, lines []facture.LigneFacture) error {
	if len(lines) == 0 {
		return nil
	}

	q := r.builder.Insert(lignesTable).
		Columns("id", "facture_id", "article_id", "quantite",
			"prix_unitaire", "montant_ligne", "statut_livraison")
	for _, l := range lines {
		q = q.Values(l.ID, l.FactureID, l.ArticleID, l.Quantite,
			l.PrixUnitaire, l.MontantLigne, l.StatutLivraison)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build lines insert: %w", err)
	}
	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert lignes: %w", err)
	}
	return nil
}

// GetByID returns the invoice header.
func (r *FactureRepo) GetByID(ctx context.Context, factureID id.ID) (*facture.FactureVente, error) {
	sql, args, err := r.builder.Select(
		"id", "numero", "client_id", "point_vente_id",
		"montant_ttc", "montant_restant", "statut_paiement", "statut_livraison_id",
		"created_at", "updated_at",
	).From(facturesTable).
		Where(squirrel.Eq{"id": factureID}).
		Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var f facture.FactureVente
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &f, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("facture_vente", factureID.String())
		}
		return nil, fmt.Errorf("get facture: %w", err)
	}
	return &f, nil
}

// GetLines returns invoice lines.
func (r *FactureRepo) GetLines(ctx context.Context, factureID id.ID) ([]facture.LigneFacture, error) {
	sql, args, err := r.builder.Select(
		"id", "facture_id", "article_id", "quantite",
		"prix_unitaire", "montant_ligne", "statut_livraison",
	).From(lignesTable).
		Where(squirrel.Eq{"facture_id": factureID}).
		OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []facture.LigneFacture
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("select lignes: %w", err)
	}
	return lines, nil
}

// List returns invoices matching the filter, newest first.
func (r *FactureRepo) List(ctx context.Context, filter facture.ListFilter) ([]*facture.FactureVente, error) {
	q := r.builder.Select(
		"id", "numero", "client_id", "point_vente_id",
		"montant_ttc", "montant_restant", "statut_paiement", "statut_livraison_id",
		"created_at", "updated_at",
	).From(facturesTable)

	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.Statut != nil {
		q = q.Where(squirrel.Eq{"statut_paiement": *filter.Statut})
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

	var factures []*facture.FactureVente
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &factures, sql, args...); err != nil {
		return nil, fmt.Errorf("select factures: %w", err)
	}
	return factures, nil
}

// GetStatutLivraisonID reads back the persisted delivery status id.
func (r *FactureRepo) GetStatutLivraisonID(ctx context.Context, factureID id.ID) (int64, error) {
	var statusID int64
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx,
		"SELECT statut_livraison_id FROM factures_vente WHERE id = $1", factureID,
	).Scan(&statusID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, apperror.NewNotFound("facture_vente", factureID.String())
		}
		return 0, fmt.Errorf("get statut livraison: %w", err)
	}
	return statusID, nil
}

// UpdatePayment sets the payment status and remaining balance.
func (r *FactureRepo) UpdatePayment(ctx context.Context, factureID id.ID, statut facture.PaymentStatus, montantRestant types.Money) error {
	sql, args, err := r.builder.Update(facturesTable).
		Set("statut_paiement", statut).
		Set("montant_restant", montantRestant).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": factureID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update payment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("facture_vente", factureID.String())
	}
	return nil
}

// CreateVersement inserts one customer payment.
func (r *FactureRepo) CreateVersement(ctx context.Context, v *facture.VersementClient) error {
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}

	sql, args, err := r.builder.Insert(versementsTable).
		Columns("id", "facture_id", "client_id", "montant", "mode_paiement", "created_at").
		Values(v.ID, v.FactureID, v.ClientID, v.Montant, v.ModePaiement, v.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txManager.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert versement: %w", err)
	}
	return nil
}

// SumVersements totals the payments recorded against an invoice.
func (r *FactureRepo) SumVersements(ctx context.Context, factureID id.ID) (types.Money, error) {
	var sum decimal.Decimal
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx,
		"SELECT COALESCE(SUM(montant), 0) FROM versements_client WHERE facture_id = $1", factureID,
	).Scan(&sum)
	if err != nil {
		return types.ZeroMoney(), fmt.Errorf("sum versements: %w", err)
	}
	return sum, nil
}

// ListVersements returns payments matching the filter, newest first.
func (r *FactureRepo) ListVersements(ctx context.Context, filter facture.VersementFilter) ([]facture.VersementClient, error) {
	q := r.builder.Select(
		"id", "facture_id", "client_id", "montant", "mode_paiement", "created_at",
	).From(versementsTable)

	if filter.ClientID != nil {
		q = q.Where(squirrel.Eq{"client_id": *filter.ClientID})
	}
	if filter.FactureID != nil {
		q = q.Where(squirrel.Eq{"facture_id": *filter.FactureID})
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

	var versements []facture.VersementClient
	querier := r.txManager.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &versements, sql, args...); err != nil {
		return nil, fmt.Errorf("select versements: %w", err)
	}
	return versements, nil
}

// GetClientName returns a client's display name.
func (r *FactureRepo) GetClientName(ctx context.Context, clientID id.ID) (string, error) {
	var name string
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx,
		"SELECT nom FROM clients WHERE id = $1", clientID,
	).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperror.NewNotFound("client", clientID.String())
		}
		return "", fmt.Errorf("get client name: %w", err)
	}
	return name, nil
}

// GetFactureNumero returns an invoice's number.
func (r *FactureRepo) GetFactureNumero(ctx context.Context, factureID id.ID) (string, error) {
	var numero string
	querier := r.txManager.GetQuerier(ctx)
	err := querier.QueryRow(ctx,
		"SELECT numero FROM factures_vente WHERE id = $1", factureID,
	).Scan(&numero)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", apperror.NewNotFound("facture_vente", factureID.String())
		}
		return "", fmt.Errorf("get facture numero: %w", err)
	}
	return numero, nil
}
