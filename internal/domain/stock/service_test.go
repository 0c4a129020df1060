package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/domain/event"
)

// nopTxManager runs the callback without a real transaction.
type nopTxManager struct{}

func (nopTxManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// capturePublisher collects published events.
type capturePublisher struct {
	events []event.Event
}

func (p *capturePublisher) Publish(_ context.Context, e event.Event) error {
	p.events = append(p.events, e)
	return nil
}

func newTestService(repo *fakeStockRepo) (*Service, *capturePublisher) {
	publisher := &capturePublisher{}
	resolver := NewResolver(repo)
	return NewService(repo, resolver, nopTxManager{}, publisher), publisher
}

func TestService_RecordEntry(t *testing.T) {
	articleID := id.New()
	loc := entrepot(id.New())
	repo := &fakeStockRepo{}
	svc, publisher := newTestService(repo)

	movement, err := svc.RecordEntry(context.Background(), loc, articleID, qty(40), "bl-2026-001")
	require.NoError(t, err)

	assert.Equal(t, entity.DirectionEntree, movement.Direction)
	assert.Equal(t, "bl-2026-001", movement.Reference)

	i := repo.findLevel(loc, articleID)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, qty(40), repo.levels[i].Quantity)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, event.TypeStockAdjusted, publisher.events[0].EventType)
}

func TestService_RecordEntry_RejectsNonPositive(t *testing.T) {
	svc, _ := newTestService(&fakeStockRepo{})

	_, err := svc.RecordEntry(context.Background(), entrepot(id.New()), id.New(), qty(0), "")
	assert.Error(t, err)
}

func TestService_Transfer(t *testing.T) {
	articleID := id.New()
	src := entrepot(id.New())
	dst := pointVente(id.New())
	repo := &fakeStockRepo{levels: []StockLevel{level(src, articleID, 100)}}
	svc, publisher := newTestService(repo)

	err := svc.Transfer(context.Background(), src, dst, articleID, qty(30))
	require.NoError(t, err)

	assert.Equal(t, qty(70), repo.levels[repo.findLevel(src, articleID)].Quantity)
	assert.Equal(t, qty(30), repo.levels[repo.findLevel(dst, articleID)].Quantity)

	require.Len(t, repo.movements, 2)
	assert.Equal(t, entity.DirectionSortie, repo.movements[0].Direction)
	assert.Equal(t, entity.DirectionEntree, repo.movements[1].Direction)
	assert.Equal(t, repo.movements[0].Reference, repo.movements[1].Reference)

	require.Len(t, publisher.events, 1)
}

func TestService_Transfer_InsufficientSource(t *testing.T) {
	articleID := id.New()
	src := entrepot(id.New())
	dst := pointVente(id.New())
	repo := &fakeStockRepo{levels: []StockLevel{level(src, articleID, 10)}}
	svc, _ := newTestService(repo)

	err := svc.Transfer(context.Background(), src, dst, articleID, qty(11))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// Source untouched, destination never created.
	assert.Equal(t, qty(10), repo.levels[repo.findLevel(src, articleID)].Quantity)
	assert.Less(t, repo.findLevel(dst, articleID), 0)
	assert.Empty(t, repo.movements)
}

func TestService_Transfer_SameLocation(t *testing.T) {
	svc, _ := newTestService(&fakeStockRepo{})
	loc := entrepot(id.New())

	err := svc.Transfer(context.Background(), loc, loc, id.New(), qty(1))
	assert.Error(t, err)
}
