package facture

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/tx"
	"gestock/internal/core/types"
	"gestock/internal/domain/audit"
	"gestock/internal/domain/event"
	"gestock/internal/domain/stock"
	"gestock/pkg/logger"
)

// enrichConcurrency caps parallel lookup fan-out during payment listing.
const enrichConcurrency = 8

// Service implements sale invoice workflows.
type Service struct {
	repo      Repository
	statuses  StatusLookup
	resolver  *stock.Resolver
	txManager tx.Manager
	events    event.Publisher
	audit     audit.Recorder
}

func NewService(repo Repository, statuses StatusLookup, resolver *stock.Resolver, txManager tx.Manager, events event.Publisher, auditRecorder audit.Recorder) *Service {
	return &Service{
		repo:      repo,
		statuses:  statuses,
		resolver:  resolver,
		txManager: txManager,
		events:    events,
		audit:     auditRecorder,
	}
}

// CreateInvoice creates a sale invoice.
//
// Point-of-sale mode (PointVenteID set) checks stock availability before
// anything is written and rejects the whole sale on a shortage. Back
// office mode records the invoice first; a stock shortfall during
// deduction is returned as a warning and the invoice stands.
func (s *Service) CreateInvoice(ctx context.Context, in CreateSaleInput) (*CreateSaleResult, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	pointOfSale := in.PointVenteID != nil
	deductStock := in.DeductStock || pointOfSale

	statusID, statusName := s.statuses.ResolveIntent(ctx, in.DeliveryIntent)

	if pointOfSale {
		if err := s.checkAvailability(ctx, in.Lines); err != nil {
			return nil, err
		}
	}

	total := in.Total()
	f := &FactureVente{
		BaseEntity:        entity.NewBaseEntity(),
		Numero:            in.Numero,
		ClientID:          in.ClientID,
		PointVenteID:      in.PointVenteID,
		MontantTTC:        total,
		MontantRestant:    total,
		StatutPaiement:    PaymentEnAttente,
		StatutLivraisonID: statusID,
	}
	if f.Numero == "" {
		f.Numero = deriveNumero(f.ID)
	}

	result := &CreateSaleResult{Facture: f}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateFacture(ctx, f); err != nil {
			return err
		}

		lines := make([]LigneFacture, 0, len(in.Lines))
		for _, l := range in.Lines {
			lines = append(lines, LigneFacture{
				ID:           id.New(),
				FactureID:    f.ID,
				ArticleID:    l.ArticleID,
				Quantite:     l.Quantite,
				PrixUnitaire: l.PrixUnitaire,
				MontantLigne: l.PrixUnitaire.Mul(l.Quantite.Decimal()),
				// Line rows mirror the document status as text.
				StatutLivraison: statusName,
			})
		}
		if err := s.repo.CreateLines(ctx, lines); err != nil {
			return err
		}
		f.Lines = lines

		if deductStock {
			warning, err := s.deductForInvoice(ctx, f)
			if err != nil {
				return err
			}
			result.StockWarning = warning
		}

		if in.MontantVerse.IsPositive() {
			if err := s.applyPayment(ctx, f, in.MontantVerse, in.ModePaiement); err != nil {
				return err
			}
		}

		return s.events.Publish(ctx, event.Event{
			AggregateType: "facture_vente",
			AggregateID:   f.ID,
			EventType:     event.TypeFactureCreated,
			Payload: map[string]any{
				"facture_id":  f.ID,
				"client_id":   f.ClientID,
				"montant_ttc": f.MontantTTC,
				"numero":      f.Numero,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	// Read back what was actually persisted rather than echoing input.
	// The invoice is committed at this point; a failed read falls back to
	// the resolved status instead of failing the sale.
	persistedID, err := s.repo.GetStatutLivraisonID(ctx, f.ID)
	if err != nil {
		logger.Warn(ctx, "delivery status read-back failed",
			"facture_id", f.ID,
			"error", err)
		persistedID = statusID
	}
	if persistedID != statusID {
		logger.Warn(ctx, "persisted delivery status differs from resolved intent",
			"facture_id", f.ID,
			"resolved", statusID,
			"persisted", persistedID)
	}
	name, err := s.statuses.NameByID(ctx, persistedID)
	if err != nil {
		name = statusName
	}
	result.StatutLivraison = name

	if err := s.audit.Append(ctx, audit.Entry{
		Operation:  "create_facture",
		EntityType: "facture_vente",
		EntityID:   f.ID,
		Changes: map[string]any{
			"numero":           f.Numero,
			"montant_ttc":      f.MontantTTC,
			"statut_livraison": name,
			"lines":            len(f.Lines),
		},
	}); err != nil {
		logger.Error(ctx, "audit append failed", "error", err, "facture_id", f.ID)
	}

	logger.Info(ctx, "facture created",
		"facture_id", f.ID,
		"numero", f.Numero,
		"client_id", f.ClientID,
		"montant_ttc", f.MontantTTC,
		"statut_livraison", name,
		"stock_warning", result.StockWarning != "")

	return result, nil
}

// checkAvailability verifies total stock covers every article before a
// point-of-sale checkout writes anything. Quantities of repeated
// articles are summed first.
func (s *Service) checkAvailability(ctx context.Context, lines []CreateSaleLine) error {
	required := make(map[id.ID]types.Quantity)
	order := make([]id.ID, 0, len(lines))
	for _, l := range lines {
		if _, ok := required[l.ArticleID]; !ok {
			order = append(order, l.ArticleID)
		}
		required[l.ArticleID] += l.Quantite
	}
	for _, articleID := range order {
		if err := s.resolver.CheckAvailability(ctx, articleID, required[articleID]); err != nil {
			return err
		}
	}
	return nil
}

// deductForInvoice draws stock for each line. Shortfalls are collected
// into a warning string; they never fail the invoice.
func (s *Service) deductForInvoice(ctx context.Context, f *FactureVente) (string, error) {
	reference := fmt.Sprintf("facture:%s", f.ID)
	var warnings []string
	for _, l := range f.Lines {
		deduction, err := s.resolver.Deduct(ctx, l.ArticleID, l.Quantite, reference)
		if err != nil {
			return "", err
		}
		if !deduction.FullySatisfied() {
			warnings = append(warnings, fmt.Sprintf("article %s: %s manquant",
				l.ArticleID, deduction.Shortfall))
			logger.Warn(ctx, "invoice stock deduction incomplete",
				"facture_id", f.ID,
				"article_id", l.ArticleID,
				"shortfall", deduction.Shortfall.String())
		}
	}
	return strings.Join(warnings, "; "), nil
}

// applyPayment records a versement and rederives the payment status from
// the paid total. Runs inside the caller's transaction.
func (s *Service) applyPayment(ctx context.Context, f *FactureVente, montant types.Money, mode string) error {
	v := &VersementClient{
		ID:           id.New(),
		FactureID:    f.ID,
		ClientID:     f.ClientID,
		Montant:      montant,
		ModePaiement: mode,
	}
	if err := s.repo.CreateVersement(ctx, v); err != nil {
		return err
	}

	paid, err := s.repo.SumVersements(ctx, f.ID)
	if err != nil {
		return err
	}

	f.StatutPaiement = DerivePaymentStatus(paid, f.MontantTTC)
	f.MontantRestant = f.MontantTTC.Sub(paid)
	if f.MontantRestant.IsNegative() {
		f.MontantRestant = types.ZeroMoney()
	}
	if err := s.repo.UpdatePayment(ctx, f.ID, f.StatutPaiement, f.MontantRestant); err != nil {
		return err
	}

	return s.events.Publish(ctx, event.Event{
		AggregateType: "facture_vente",
		AggregateID:   f.ID,
		EventType:     event.TypeVersementRecorded,
		Payload: map[string]any{
			"facture_id": f.ID,
			"montant":    montant,
			"statut":     f.StatutPaiement,
		},
	})
}

// RecordPayment registers a customer payment against an existing invoice.
func (s *Service) RecordPayment(ctx context.Context, factureID id.ID, montant types.Money, mode string) (*FactureVente, error) {
	if !montant.IsPositive() {
		return nil, apperror.NewValidation("payment amount must be positive")
	}

	var f *FactureVente
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		f, err = s.repo.GetByID(ctx, factureID)
		if err != nil {
			return err
		}
		if f.StatutPaiement == PaymentPayee {
			return apperror.NewBusinessRule(apperror.CodeBusinessRule, "invoice is already fully paid").
				WithDetail("facture_id", factureID.String())
		}
		return s.applyPayment(ctx, f, montant, mode)
	})
	if err != nil {
		return nil, err
	}

	if err := s.audit.Append(ctx, audit.Entry{
		Operation:  "record_versement",
		EntityType: "facture_vente",
		EntityID:   factureID,
		Changes: map[string]any{
			"montant": montant,
			"statut":  f.StatutPaiement,
			"restant": f.MontantRestant,
		},
	}); err != nil {
		logger.Error(ctx, "audit append failed", "error", err, "facture_id", factureID)
	}

	return f, nil
}

// GetByID returns an invoice with its lines.
func (s *Service) GetByID(ctx context.Context, factureID id.ID) (*FactureVente, error) {
	f, err := s.repo.GetByID(ctx, factureID)
	if err != nil {
		return nil, err
	}
	lines, err := s.repo.GetLines(ctx, factureID)
	if err != nil {
		return nil, err
	}
	f.Lines = lines
	return f, nil
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*FactureVente, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	return s.repo.List(ctx, filter)
}

// EnrichedVersement is a payment row with display fields resolved.
type EnrichedVersement struct {
	VersementClient

	ClientNom     string `json:"clientNom"`
	FactureNumero string `json:"factureNumero"`
}

// ListPayments returns payments with client and invoice references
// resolved concurrently. A failed lookup leaves the display field blank
// rather than failing the listing.
func (s *Service) ListPayments(ctx context.Context, filter VersementFilter) ([]EnrichedVersement, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	versements, err := s.repo.ListVersements(ctx, filter)
	if err != nil {
		return nil, err
	}

	enriched := make([]EnrichedVersement, len(versements))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)
	for i := range versements {
		enriched[i].VersementClient = versements[i]
		g.Go(func() error {
			v := versements[i]
			if name, err := s.repo.GetClientName(gctx, v.ClientID); err == nil {
				enriched[i].ClientNom = name
			} else {
				logger.Warn(gctx, "client name lookup failed", "client_id", v.ClientID, "error", err)
			}
			if numero, err := s.repo.GetFactureNumero(gctx, v.FactureID); err == nil {
				enriched[i].FactureNumero = numero
			} else {
				logger.Warn(gctx, "facture numero lookup failed", "facture_id", v.FactureID, "error", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return enriched, nil
}

// deriveNumero builds a human-readable invoice number from the id when
// the caller did not supply one.
func deriveNumero(factureID id.ID) string {
	raw := strings.ReplaceAll(factureID.String(), "-", "")
	return "FV-" + strings.ToUpper(raw[:12])
}
