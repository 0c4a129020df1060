package precommande

import (
	"context"
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

// fakeOrderRepo keeps pre-orders in memory and enforces the delivered
// quantity guard the way the SQL implementation does.
type fakeOrderRepo struct {
	docs  map[id.ID]*Precommande
	lines map[id.ID]*Ligne

	// failCASOn simulates a concurrent writer on the given line.
	failCASOn map[id.ID]bool

	statutUpdates []livraison.Status
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{
		docs:      make(map[id.ID]*Precommande),
		lines:     make(map[id.ID]*Ligne),
		failCASOn: make(map[id.ID]bool),
	}
}

func (f *fakeOrderRepo) Create(_ context.Context, p *Precommande) error {
	cp := *p
	f.docs[p.ID] = &cp
	for i := range p.Lines {
		l := p.Lines[i]
		f.lines[l.ID] = &l
	}
	return nil
}

func (f *fakeOrderRepo) GetByID(_ context.Context, precommandeID id.ID) (*Precommande, error) {
	doc, ok := f.docs[precommandeID]
	if !ok {
		return nil, apperror.NewNotFound("precommande", precommandeID.String())
	}
	cp := *doc
	cp.Lines = nil
	for _, l := range f.lines {
		if l.PrecommandeID == precommandeID {
			cp.Lines = append(cp.Lines, *l)
		}
	}
	return &cp, nil
}

func (f *fakeOrderRepo) GetLine(_ context.Context, lineID id.ID) (Ligne, error) {
	l, ok := f.lines[lineID]
	if !ok {
		return Ligne{}, apperror.NewNotFound("ligne_precommande", lineID.String())
	}
	return *l, nil
}

func (f *fakeOrderRepo) GetLines(_ context.Context, precommandeID id.ID) ([]Ligne, error) {
	var out []Ligne
	for _, l := range f.lines {
		if l.PrecommandeID == precommandeID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeOrderRepo) UpdateLineDelivered(_ context.Context, lineID id.ID, expected, delivered types.Quantity, statut livraison.Status) error {
	l, ok := f.lines[lineID]
	if !ok {
		return apperror.NewNotFound("ligne_precommande", lineID.String())
	}
	if f.failCASOn[lineID] || l.QuantiteLivree != expected {
		return apperror.NewConcurrentModification("ligne_precommande", lineID.String())
	}
	l.QuantiteLivree = delivered
	l.StatutLigne = statut
	return nil
}

func (f *fakeOrderRepo) UpdateStatut(_ context.Context, precommandeID id.ID, statut livraison.Status) error {
	doc, ok := f.docs[precommandeID]
	if !ok {
		return apperror.NewNotFound("precommande", precommandeID.String())
	}
	doc.Statut = statut
	f.statutUpdates = append(f.statutUpdates, statut)
	return nil
}

func (f *fakeOrderRepo) List(_ context.Context, _ ListFilter) ([]*Precommande, error) {
	var out []*Precommande
	for _, d := range f.docs {
		out = append(out, d)
	}
	return out, nil
}

// fakeStockRepo is a one-warehouse stock.Repository for reconciliation tests.
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
	orders    *fakeOrderRepo
	stockRepo *fakeStockRepo
}

func newTestEnv() *testEnv {
	orders := newFakeOrderRepo()
	stockRepo := newFakeStockRepo()
	resolver := stock.NewResolver(stockRepo)
	svc := NewService(orders, resolver, nopTxManager{}, event.NopPublisher{}, audit.NopRecorder{})
	return &testEnv{svc: svc, orders: orders, stockRepo: stockRepo}
}

// seedOrder creates a pre-order with one line per (article, quantity) pair.
func (e *testEnv) seedOrder(t *testing.T, quantities ...int64) *Precommande {
	t.Helper()
	p := &Precommande{ClientID: id.New()}
	for _, q := range quantities {
		p.Lines = append(p.Lines, Ligne{ArticleID: id.New(), Quantite: qty(q)})
	}
	require.NoError(t, e.svc.Create(context.Background(), p))
	return p
}

func TestService_ReconcileDelivery_PartialDelivery(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 10)
	line := p.Lines[0]
	env.stockRepo.levels[line.ArticleID] = qty(100)

	result, err := env.svc.ReconcileDelivery(context.Background(), p.ID, []DeliveryUpdate{
		{LineID: line.ID, QuantiteLivree: qty(3)},
	})
	require.NoError(t, err)

	assert.Equal(t, livraison.StatusPartiellementLivree, result.Statut)
	require.Len(t, result.UpdatedLines, 1)
	assert.Equal(t, qty(3), result.UpdatedLines[0].QuantiteLivree)
	assert.Equal(t, livraison.StatusPartiellementLivree, result.UpdatedLines[0].StatutLigne)
	assert.Empty(t, result.Shortfalls)

	// Exactly the delta left the warehouse.
	assert.Equal(t, qty(97), env.stockRepo.levels[line.ArticleID])
	require.Len(t, env.stockRepo.movements, 1)
	assert.Equal(t, entity.DirectionSortie, env.stockRepo.movements[0].Direction)
	assert.Equal(t, qty(3), env.stockRepo.movements[0].Quantity)
}

func TestService_ReconcileDelivery_CumulativeDelta(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 10)
	line := p.Lines[0]
	env.stockRepo.levels[line.ArticleID] = qty(100)
	ctx := context.Background()

	_, err := env.svc.ReconcileDelivery(ctx, p.ID, []DeliveryUpdate{{LineID: line.ID, QuantiteLivree: qty(3)}})
	require.NoError(t, err)

	// 3 -> 7 cumulative deducts only the 4-unit delta.
	result, err := env.svc.ReconcileDelivery(ctx, p.ID, []DeliveryUpdate{{LineID: line.ID, QuantiteLivree: qty(7)}})
	require.NoError(t, err)

	assert.Equal(t, qty(93), env.stockRepo.levels[line.ArticleID])
	assert.Equal(t, livraison.StatusPartiellementLivree, result.Statut)
}

func TestService_ReconcileDelivery_IdempotentResubmission(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 10)
	line := p.Lines[0]
	env.stockRepo.levels[line.ArticleID] = qty(100)
	ctx := context.Background()

	_, err := env.svc.ReconcileDelivery(ctx, p.ID, []DeliveryUpdate{{LineID: line.ID, QuantiteLivree: qty(5)}})
	require.NoError(t, err)
	movementsAfterFirst := len(env.stockRepo.movements)

	// Same cumulative total again: delta zero, no stock action.
	_, err = env.svc.ReconcileDelivery(ctx, p.ID, []DeliveryUpdate{{LineID: line.ID, QuantiteLivree: qty(5)}})
	require.NoError(t, err)

	assert.Equal(t, qty(95), env.stockRepo.levels[line.ArticleID])
	assert.Len(t, env.stockRepo.movements, movementsAfterFirst)
}

func TestService_ReconcileDelivery_DecreaseDoesNotRestock(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 10)
	line := p.Lines[0]
	env.stockRepo.levels[line.ArticleID] = qty(100)
	ctx := context.Background()

	_, err := env.svc.ReconcileDelivery(ctx, p.ID, []DeliveryUpdate{{LineID: line.ID, QuantiteLivree: qty(5)}})
	require.NoError(t, err)

	// Correction down to 3: the record changes, stock does not come back.
	result, err := env.svc.ReconcileDelivery(ctx, p.ID, []DeliveryUpdate{{LineID: line.ID, QuantiteLivree: qty(3)}})
	require.NoError(t, err)

	assert.Equal(t, qty(3), result.UpdatedLines[0].QuantiteLivree)
	assert.Equal(t, qty(95), env.stockRepo.levels[line.ArticleID])
}

func TestService_ReconcileDelivery_FullDelivery(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 4, 6)
	env.stockRepo.levels[p.Lines[0].ArticleID] = qty(50)
	env.stockRepo.levels[p.Lines[1].ArticleID] = qty(50)

	result, err := env.svc.ReconcileDelivery(context.Background(), p.ID, []DeliveryUpdate{
		{LineID: p.Lines[0].ID, QuantiteLivree: qty(4)},
		{LineID: p.Lines[1].ID, QuantiteLivree: qty(6)},
	})
	require.NoError(t, err)

	assert.Equal(t, livraison.StatusLivree, result.Statut)
	for _, l := range result.UpdatedLines {
		assert.Equal(t, livraison.StatusLivree, l.StatutLigne)
	}
	assert.Equal(t, env.orders.docs[p.ID].Statut, livraison.StatusLivree)
}

func TestService_ReconcileDelivery_ExceedsOrder(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 10)
	env.stockRepo.levels[p.Lines[0].ArticleID] = qty(100)

	_, err := env.svc.ReconcileDelivery(context.Background(), p.ID, []DeliveryUpdate{
		{LineID: p.Lines[0].ID, QuantiteLivree: qty(11)},
	})
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeDeliveryExceedsOrder, appErr.Code)

	// Nothing recorded, nothing deducted.
	assert.Equal(t, qty(100), env.stockRepo.levels[p.Lines[0].ArticleID])
	assert.Equal(t, qty(0), env.orders.lines[p.Lines[0].ID].QuantiteLivree)
}

func TestService_ReconcileDelivery_UnknownLine(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 10)

	_, err := env.svc.ReconcileDelivery(context.Background(), p.ID, []DeliveryUpdate{
		{LineID: id.New(), QuantiteLivree: qty(1)},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestService_ReconcileDelivery_ShortfallIsReportedNotFatal(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 10)
	line := p.Lines[0]
	env.stockRepo.levels[line.ArticleID] = qty(2)

	result, err := env.svc.ReconcileDelivery(context.Background(), p.ID, []DeliveryUpdate{
		{LineID: line.ID, QuantiteLivree: qty(6)},
	})
	require.NoError(t, err, "shortfall never blocks the delivery record")

	assert.Equal(t, qty(4), result.Shortfalls[line.ID])
	assert.Equal(t, qty(6), env.orders.lines[line.ID].QuantiteLivree)
	assert.Equal(t, types.Quantity(0), env.stockRepo.levels[line.ArticleID])
	assert.Equal(t, livraison.StatusPartiellementLivree, result.Statut)
}

func TestService_ReconcileDelivery_ConcurrentModificationAborts(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 10, 10)
	first, second := p.Lines[0], p.Lines[1]
	env.stockRepo.levels[first.ArticleID] = qty(100)
	env.stockRepo.levels[second.ArticleID] = qty(100)
	env.orders.failCASOn[second.ID] = true

	_, err := env.svc.ReconcileDelivery(context.Background(), p.ID, []DeliveryUpdate{
		{LineID: first.ID, QuantiteLivree: qty(2)},
		{LineID: second.ID, QuantiteLivree: qty(2)},
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))

	// Fail-fast: the first line committed, the second did not.
	assert.Equal(t, qty(2), env.orders.lines[first.ID].QuantiteLivree)
	assert.Equal(t, qty(0), env.orders.lines[second.ID].QuantiteLivree)
}

func TestService_ReconcileDelivery_DuplicateLineRejected(t *testing.T) {
	env := newTestEnv()
	p := env.seedOrder(t, 10)

	_, err := env.svc.ReconcileDelivery(context.Background(), p.ID, []DeliveryUpdate{
		{LineID: p.Lines[0].ID, QuantiteLivree: qty(1)},
		{LineID: p.Lines[0].ID, QuantiteLivree: qty(2)},
	})
	assert.Error(t, err)
}
