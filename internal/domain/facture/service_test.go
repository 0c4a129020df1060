package facture

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
	"gestock/internal/domain/audit"
	"gestock/internal/domain/event"
	"gestock/internal/domain/livraison"
	"gestock/internal/domain/stock"
)

type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeStatusLookup mirrors the seeded livraison_statut table.
type fakeStatusLookup struct{}

func (fakeStatusLookup) ResolveIntent(_ context.Context, intent string) (int64, string) {
	status := livraison.MapIntent(intent)
	return status.DefaultLookupID(), string(status)
}

func (fakeStatusLookup) NameByID(_ context.Context, statusID int64) (string, error) {
	names := map[int64]string{
		1: string(livraison.StatusEnAttente),
		2: string(livraison.StatusPartiellementLivree),
		3: string(livraison.StatusLivree),
	}
	name, ok := names[statusID]
	if !ok {
		return "", apperror.NewNotFound("livraison_statut", statusID)
	}
	return name, nil
}

type fakeFactureRepo struct {
	factures   map[id.ID]*FactureVente
	lines      map[id.ID][]LigneFacture
	versements []VersementClient

	clientNames map[id.ID]string

	failClientLookup   bool
	failStatusReadBack bool
}

func newFakeFactureRepo() *fakeFactureRepo {
	return &fakeFactureRepo{
		factures:    make(map[id.ID]*FactureVente),
		lines:       make(map[id.ID][]LigneFacture),
		clientNames: make(map[id.ID]string),
	}
}

func (f *fakeFactureRepo) CreateFacture(_ context.Context, facture *FactureVente) error {
	cp := *facture
	f.factures[facture.ID] = &cp
	return nil
}

func (f *fakeFactureRepo) CreateLines(_ context.Context, lines []LigneFacture) error {
	for _, l := range lines {
		f.lines[l.FactureID] = append(f.lines[l.FactureID], l)
	}
	return nil
}

func (f *fakeFactureRepo) GetByID(_ context.Context, factureID id.ID) (*FactureVente, error) {
	facture, ok := f.factures[factureID]
	if !ok {
		return nil, apperror.NewNotFound("facture_vente", factureID.String())
	}
	cp := *facture
	return &cp, nil
}

func (f *fakeFactureRepo) GetLines(_ context.Context, factureID id.ID) ([]LigneFacture, error) {
	return f.lines[factureID], nil
}

func (f *fakeFactureRepo) List(_ context.Context, _ ListFilter) ([]*FactureVente, error) {
	var out []*FactureVente
	for _, facture := range f.factures {
		out = append(out, facture)
	}
	return out, nil
}

func (f *fakeFactureRepo) GetStatutLivraisonID(_ context.Context, factureID id.ID) (int64, error) {
	if f.failStatusReadBack {
		return 0, fmt.Errorf("store unavailable")
	}
	facture, ok := f.factures[factureID]
	if !ok {
		return 0, apperror.NewNotFound("facture_vente", factureID.String())
	}
	return facture.StatutLivraisonID, nil
}

func (f *fakeFactureRepo) UpdatePayment(_ context.Context, factureID id.ID, statut PaymentStatus, restant types.Money) error {
	facture, ok := f.factures[factureID]
	if !ok {
		return apperror.NewNotFound("facture_vente", factureID.String())
	}
	facture.StatutPaiement = statut
	facture.MontantRestant = restant
	return nil
}

func (f *fakeFactureRepo) CreateVersement(_ context.Context, v *VersementClient) error {
	f.versements = append(f.versements, *v)
	return nil
}

func (f *fakeFactureRepo) SumVersements(_ context.Context, factureID id.ID) (types.Money, error) {
	sum := types.ZeroMoney()
	for _, v := range f.versements {
		if v.FactureID == factureID {
			sum = sum.Add(v.Montant)
		}
	}
	return sum, nil
}

func (f *fakeFactureRepo) ListVersements(_ context.Context, _ VersementFilter) ([]VersementClient, error) {
	return f.versements, nil
}

func (f *fakeFactureRepo) GetClientName(_ context.Context, clientID id.ID) (string, error) {
	if f.failClientLookup {
		return "", fmt.Errorf("client lookup unavailable")
	}
	name, ok := f.clientNames[clientID]
	if !ok {
		return "", apperror.NewNotFound("client", clientID.String())
	}
	return name, nil
}

func (f *fakeFactureRepo) GetFactureNumero(_ context.Context, factureID id.ID) (string, error) {
	facture, ok := f.factures[factureID]
	if !ok {
		return "", apperror.NewNotFound("facture_vente", factureID.String())
	}
	return facture.Numero, nil
}

// fakeStockRepo is a one-warehouse stock.Repository.
type fakeStockRepo struct {
	warehouse entity.LocationRef
	levels    map[id.ID]types.Quantity
	movements []entity.StockMovement
}

func newFakeStockRepo() *fakeStockRepo {
	return &fakeStockRepo{
		warehouse: entity.LocationRef{Type: entity.LocationEntrepot, ID: id.New()},
		levels:    make(map[id.ID]types.Quantity),
	}
}

func (f *fakeStockRepo) GetLevelsByArticle(_ context.Context, articleID id.ID) ([]stock.StockLevel, error) {
	q := f.levels[articleID]
	if !q.IsPositive() {
		return nil, nil
	}
	return []stock.StockLevel{{
		ArticleID:    articleID,
		LocationType: f.warehouse.Type,
		LocationID:   f.warehouse.ID,
		Quantity:     q,
	}}, nil
}

func (f *fakeStockRepo) GetLevel(_ context.Context, location entity.LocationRef, articleID id.ID) (stock.StockLevel, error) {
	return stock.StockLevel{
		ArticleID:    articleID,
		LocationType: location.Type,
		LocationID:   location.ID,
		Quantity:     f.levels[articleID],
	}, nil
}

func (f *fakeStockRepo) GetLevelsByLocation(_ context.Context, _ entity.LocationRef) ([]stock.StockLevel, error) {
	return nil, nil
}

func (f *fakeStockRepo) DeductLevel(_ context.Context, _ entity.LocationRef, articleID id.ID, amount types.Quantity) (bool, error) {
	if f.levels[articleID] < amount {
		return false, nil
	}
	f.levels[articleID] -= amount
	return true, nil
}

func (f *fakeStockRepo) CreditLevel(_ context.Context, _ entity.LocationRef, articleID id.ID, amount types.Quantity) error {
	f.levels[articleID] += amount
	return nil
}

func (f *fakeStockRepo) CreateMovements(_ context.Context, movements []entity.StockMovement) error {
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeStockRepo) GetMovementsByReference(_ context.Context, _ string) ([]entity.StockMovement, error) {
	return nil, nil
}

type testEnv struct {
	svc       *Service
	repo      *fakeFactureRepo
	stockRepo *fakeStockRepo
}

func newTestEnv() *testEnv {
	repo := newFakeFactureRepo()
	stockRepo := newFakeStockRepo()
	svc := NewService(repo, fakeStatusLookup{}, stock.NewResolver(stockRepo),
		nopTxManager{}, event.NopPublisher{}, audit.NopRecorder{})
	return &testEnv{svc: svc, repo: repo, stockRepo: stockRepo}
}

func qty(units int64) types.Quantity { return types.NewQuantityFromUnits(units) }

func saleInput(articleID id.ID, units int64, price string) CreateSaleInput {
	return CreateSaleInput{
		ClientID: id.New(),
		Lines: []CreateSaleLine{
			{ArticleID: articleID, Quantite: qty(units), PrixUnitaire: money(price)},
		},
	}
}

func TestService_CreateInvoice_Basic(t *testing.T) {
	env := newTestEnv()
	articleID := id.New()
	in := saleInput(articleID, 3, "25.00")
	in.DeliveryIntent = "livree"

	result, err := env.svc.CreateInvoice(context.Background(), in)
	require.NoError(t, err)

	f := result.Facture
	assert.True(t, f.MontantTTC.Equal(money("75.00")))
	assert.True(t, f.MontantRestant.Equal(money("75.00")))
	assert.Equal(t, PaymentEnAttente, f.StatutPaiement)
	assert.Equal(t, int64(3), f.StatutLivraisonID)
	assert.Equal(t, "livree", result.StatutLivraison, "read back from the lookup, not echoed")
	assert.NotEmpty(t, f.Numero)
	assert.Empty(t, result.StockWarning)

	lines := env.repo.lines[f.ID]
	require.Len(t, lines, 1)
	assert.Equal(t, "livree", lines[0].StatutLivraison, "line mirrors document status as text")
	assert.True(t, lines[0].MontantLigne.Equal(money("75.00")))

	// No deduction was requested.
	assert.Empty(t, env.stockRepo.movements)
}

func TestService_CreateInvoice_IntentVariants(t *testing.T) {
	tests := []struct {
		intent   string
		wantID   int64
		wantName string
	}{
		{"livre", 3, "livree"},
		{"partielle", 2, "partiellement_livree"},
		{"", 1, "en_attente"},
		{"nonsense", 1, "en_attente"},
	}
	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			env := newTestEnv()
			in := saleInput(id.New(), 1, "10.00")
			in.DeliveryIntent = tt.intent

			result, err := env.svc.CreateInvoice(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, result.Facture.StatutLivraisonID)
			assert.Equal(t, tt.wantName, result.StatutLivraison)
		})
	}
}

func TestService_CreateInvoice_ReadBackFailureKeepsInvoice(t *testing.T) {
	env := newTestEnv()
	env.repo.failStatusReadBack = true

	in := saleInput(id.New(), 2, "10.00")
	in.DeliveryIntent = "livree"

	result, err := env.svc.CreateInvoice(context.Background(), in)
	require.NoError(t, err, "invoice is committed; read-back failure must not fail the call")

	assert.Contains(t, env.repo.factures, result.Facture.ID)
	assert.Equal(t, int64(3), result.Facture.StatutLivraisonID)
	assert.Equal(t, "livree", result.StatutLivraison, "falls back to the resolved status")
}

func TestService_CreateInvoice_WithDeduction(t *testing.T) {
	env := newTestEnv()
	articleID := id.New()
	env.stockRepo.levels[articleID] = qty(10)

	in := saleInput(articleID, 4, "5.00")
	in.DeductStock = true

	result, err := env.svc.CreateInvoice(context.Background(), in)
	require.NoError(t, err)

	assert.Empty(t, result.StockWarning)
	assert.Equal(t, qty(6), env.stockRepo.levels[articleID])
	require.Len(t, env.stockRepo.movements, 1)
	assert.Equal(t, fmt.Sprintf("facture:%s", result.Facture.ID), env.stockRepo.movements[0].Reference)
}

func TestService_CreateInvoice_ShortfallKeepsInvoice(t *testing.T) {
	env := newTestEnv()
	articleID := id.New()
	env.stockRepo.levels[articleID] = qty(2)

	in := saleInput(articleID, 5, "5.00")
	in.DeductStock = true

	result, err := env.svc.CreateInvoice(context.Background(), in)
	require.NoError(t, err, "back office shortfall is a warning, not a failure")

	assert.NotEmpty(t, result.StockWarning)
	assert.Contains(t, env.repo.factures, result.Facture.ID, "invoice persisted despite shortfall")
	assert.Equal(t, types.Quantity(0), env.stockRepo.levels[articleID])
}

func TestService_CreateInvoice_PointOfSale_InsufficientStock(t *testing.T) {
	env := newTestEnv()
	articleID := id.New()
	env.stockRepo.levels[articleID] = qty(2)
	pdvID := id.New()

	in := saleInput(articleID, 5, "5.00")
	in.PointVenteID = &pdvID

	_, err := env.svc.CreateInvoice(context.Background(), in)
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Checked before anything was written.
	assert.Empty(t, env.repo.factures)
	assert.Empty(t, env.stockRepo.movements)
	assert.Equal(t, qty(2), env.stockRepo.levels[articleID])
}

func TestService_CreateInvoice_PointOfSale_DeductsImplicitly(t *testing.T) {
	env := newTestEnv()
	articleID := id.New()
	env.stockRepo.levels[articleID] = qty(10)
	pdvID := id.New()

	in := saleInput(articleID, 4, "5.00")
	in.PointVenteID = &pdvID
	// DeductStock deliberately left false; point of sale always deducts.

	result, err := env.svc.CreateInvoice(context.Background(), in)
	require.NoError(t, err)

	assert.Empty(t, result.StockWarning)
	assert.Equal(t, qty(6), env.stockRepo.levels[articleID])
}

func TestService_CreateInvoice_PointOfSale_SumsRepeatedArticles(t *testing.T) {
	env := newTestEnv()
	articleID := id.New()
	env.stockRepo.levels[articleID] = qty(5)
	pdvID := id.New()

	in := CreateSaleInput{
		ClientID:     id.New(),
		PointVenteID: &pdvID,
		Lines: []CreateSaleLine{
			{ArticleID: articleID, Quantite: qty(3), PrixUnitaire: money("5.00")},
			{ArticleID: articleID, Quantite: qty(3), PrixUnitaire: money("5.00")},
		},
	}

	_, err := env.svc.CreateInvoice(context.Background(), in)
	require.Error(t, err, "6 required in total, only 5 available")
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestService_CreateInvoice_WithPayment(t *testing.T) {
	t.Run("full payment", func(t *testing.T) {
		env := newTestEnv()
		in := saleInput(id.New(), 2, "30.00")
		in.MontantVerse = money("60.00")
		in.ModePaiement = "especes"

		result, err := env.svc.CreateInvoice(context.Background(), in)
		require.NoError(t, err)

		assert.Equal(t, PaymentPayee, result.Facture.StatutPaiement)
		assert.True(t, result.Facture.MontantRestant.IsZero())
		require.Len(t, env.repo.versements, 1)
	})

	t.Run("partial payment", func(t *testing.T) {
		env := newTestEnv()
		in := saleInput(id.New(), 2, "30.00")
		in.MontantVerse = money("25.00")

		result, err := env.svc.CreateInvoice(context.Background(), in)
		require.NoError(t, err)

		assert.Equal(t, PaymentPartielle, result.Facture.StatutPaiement)
		assert.True(t, result.Facture.MontantRestant.Equal(money("35.00")))
	})
}

func TestService_RecordPayment_Accumulates(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	result, err := env.svc.CreateInvoice(ctx, saleInput(id.New(), 1, "100.00"))
	require.NoError(t, err)
	factureID := result.Facture.ID

	f, err := env.svc.RecordPayment(ctx, factureID, money("40.00"), "especes")
	require.NoError(t, err)
	assert.Equal(t, PaymentPartielle, f.StatutPaiement)
	assert.True(t, f.MontantRestant.Equal(money("60.00")))

	f, err = env.svc.RecordPayment(ctx, factureID, money("60.00"), "virement")
	require.NoError(t, err)
	assert.Equal(t, PaymentPayee, f.StatutPaiement)
	assert.True(t, f.MontantRestant.IsZero())

	// Fully paid invoices take no further payments.
	_, err = env.svc.RecordPayment(ctx, factureID, money("1.00"), "especes")
	assert.Error(t, err)
}

func TestService_RecordPayment_RejectsNonPositive(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.RecordPayment(context.Background(), id.New(), money("0"), "especes")
	assert.Error(t, err)

	_, err = env.svc.RecordPayment(context.Background(), id.New(), money("-5"), "especes")
	assert.Error(t, err)
}

func TestService_ListPayments_Enrichment(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	in := saleInput(id.New(), 1, "50.00")
	in.Numero = "FV-TEST-001"
	in.MontantVerse = money("50.00")
	env.repo.clientNames[in.ClientID] = "Client Test"

	_, err := env.svc.CreateInvoice(ctx, in)
	require.NoError(t, err)

	enriched, err := env.svc.ListPayments(ctx, VersementFilter{})
	require.NoError(t, err)
	require.Len(t, enriched, 1)
	assert.Equal(t, "Client Test", enriched[0].ClientNom)
	assert.Equal(t, "FV-TEST-001", enriched[0].FactureNumero)
}

func TestService_ListPayments_LookupFailureDegrades(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	in := saleInput(id.New(), 1, "50.00")
	in.Numero = "FV-TEST-002"
	in.MontantVerse = money("50.00")
	_, err := env.svc.CreateInvoice(ctx, in)
	require.NoError(t, err)

	env.repo.failClientLookup = true

	enriched, err := env.svc.ListPayments(ctx, VersementFilter{})
	require.NoError(t, err, "enrichment failures must not fail the listing")
	require.Len(t, enriched, 1)
	assert.Empty(t, enriched[0].ClientNom)
	assert.Equal(t, "FV-TEST-002", enriched[0].FactureNumero)
}
