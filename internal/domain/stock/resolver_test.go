package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestock/internal/core/apperror"
	"gestock/internal/core/entity"
	"gestock/internal/core/id"
	"gestock/internal/core/types"
)

// fakeStockRepo is an in-memory Repository for resolver and service tests.
// DeductLevel applies the same guard the SQL implementation does.
type fakeStockRepo struct {
	levels    []StockLevel
	movements []entity.StockMovement

	// beforeDeduct runs before each guarded subtraction, simulating a
	// concurrent writer between the read and the update.
	beforeDeduct func(location entity.LocationRef)

	deductOrder []entity.LocationRef
}

func (f *fakeStockRepo) findLevel(location entity.LocationRef, articleID id.ID) int {
	for i, l := range f.levels {
		if l.LocationType == location.Type && l.LocationID == location.ID && l.ArticleID == articleID {
			return i
		}
	}
	return -1
}

func (f *fakeStockRepo) GetLevelsByArticle(_ context.Context, articleID id.ID) ([]StockLevel, error) {
	var out []StockLevel
	for _, l := range f.levels {
		if l.ArticleID == articleID && l.Quantity.IsPositive() {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStockRepo) GetLevel(_ context.Context, location entity.LocationRef, articleID id.ID) (StockLevel, error) {
	if i := f.findLevel(location, articleID); i >= 0 {
		return f.levels[i], nil
	}
	return StockLevel{ArticleID: articleID, LocationType: location.Type, LocationID: location.ID}, nil
}

func (f *fakeStockRepo) GetLevelsByLocation(_ context.Context, location entity.LocationRef) ([]StockLevel, error) {
	var out []StockLevel
	for _, l := range f.levels {
		if l.LocationType == location.Type && l.LocationID == location.ID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeStockRepo) DeductLevel(_ context.Context, location entity.LocationRef, articleID id.ID, amount types.Quantity) (bool, error) {
	if f.beforeDeduct != nil {
		f.beforeDeduct(location)
	}
	i := f.findLevel(location, articleID)
	if i < 0 || f.levels[i].Quantity < amount {
		return false, nil
	}
	f.levels[i].Quantity -= amount
	f.deductOrder = append(f.deductOrder, location)
	return true, nil
}

func (f *fakeStockRepo) CreditLevel(_ context.Context, location entity.LocationRef, articleID id.ID, amount types.Quantity) error {
	if i := f.findLevel(location, articleID); i >= 0 {
		f.levels[i].Quantity += amount
		return nil
	}
	f.levels = append(f.levels, StockLevel{
		ArticleID:    articleID,
		LocationType: location.Type,
		LocationID:   location.ID,
		Quantity:     amount,
	})
	return nil
}

func (f *fakeStockRepo) CreateMovements(_ context.Context, movements []entity.StockMovement) error {
	f.movements = append(f.movements, movements...)
	return nil
}

func (f *fakeStockRepo) GetMovementsByReference(_ context.Context, reference string) ([]entity.StockMovement, error) {
	var out []entity.StockMovement
	for _, m := range f.movements {
		if m.Reference == reference {
			out = append(out, m)
		}
	}
	return out, nil
}

func qty(units int64) types.Quantity { return types.NewQuantityFromUnits(units) }

func entrepot(levelID id.ID) entity.LocationRef {
	return entity.LocationRef{Type: entity.LocationEntrepot, ID: levelID}
}

func pointVente(levelID id.ID) entity.LocationRef {
	return entity.LocationRef{Type: entity.LocationPointVente, ID: levelID}
}

func level(loc entity.LocationRef, articleID id.ID, units int64) StockLevel {
	return StockLevel{
		ArticleID:    articleID,
		LocationType: loc.Type,
		LocationID:   loc.ID,
		Quantity:     qty(units),
	}
}

func TestRankLevels(t *testing.T) {
	articleID := id.New()
	pdv := pointVente(id.New())
	small := entrepot(id.New())
	big := entrepot(id.New())

	ranked := RankLevels([]StockLevel{
		level(pdv, articleID, 500),
		level(small, articleID, 10),
		level(big, articleID, 80),
		level(entrepot(id.New()), articleID, 0),
	})

	require.Len(t, ranked, 3, "zero levels must be dropped")
	assert.Equal(t, big.ID, ranked[0].LocationID, "largest warehouse first")
	assert.Equal(t, small.ID, ranked[1].LocationID)
	assert.Equal(t, pdv.ID, ranked[2].LocationID, "points of sale only after all warehouses")
}

func TestResolver_Deduct_SingleLocation(t *testing.T) {
	articleID := id.New()
	loc := entrepot(id.New())
	repo := &fakeStockRepo{levels: []StockLevel{level(loc, articleID, 100)}}
	resolver := NewResolver(repo)

	result, err := resolver.Deduct(context.Background(), articleID, qty(30), "test:1")
	require.NoError(t, err)

	assert.True(t, result.FullySatisfied())
	assert.Equal(t, qty(30), result.Deducted())
	require.Len(t, result.Entries, 1)
	assert.Equal(t, qty(70), repo.levels[0].Quantity)

	require.Len(t, repo.movements, 1)
	assert.Equal(t, entity.DirectionSortie, repo.movements[0].Direction)
	assert.Equal(t, "test:1", repo.movements[0].Reference)
}

func TestResolver_Deduct_SpansLocations(t *testing.T) {
	articleID := id.New()
	bigWH := entrepot(id.New())
	smallWH := entrepot(id.New())
	pdv := pointVente(id.New())
	repo := &fakeStockRepo{levels: []StockLevel{
		level(pdv, articleID, 50),
		level(smallWH, articleID, 20),
		level(bigWH, articleID, 60),
	}}
	resolver := NewResolver(repo)

	result, err := resolver.Deduct(context.Background(), articleID, qty(90), "test:span")
	require.NoError(t, err)

	assert.True(t, result.FullySatisfied())
	require.Len(t, result.Entries, 3)
	assert.Equal(t, []entity.LocationRef{bigWH, smallWH, pdv}, repo.deductOrder)
	assert.Equal(t, qty(60), result.Entries[0].Amount)
	assert.Equal(t, qty(20), result.Entries[1].Amount)
	assert.Equal(t, qty(10), result.Entries[2].Amount)

	// Point of sale only partially drawn down.
	i := repo.findLevel(pdv, articleID)
	assert.Equal(t, qty(40), repo.levels[i].Quantity)
}

func TestResolver_Deduct_Shortfall(t *testing.T) {
	articleID := id.New()
	loc := entrepot(id.New())
	repo := &fakeStockRepo{levels: []StockLevel{level(loc, articleID, 25)}}
	resolver := NewResolver(repo)

	result, err := resolver.Deduct(context.Background(), articleID, qty(40), "test:short")
	require.NoError(t, err, "shortfall is a result, not an error")

	assert.False(t, result.FullySatisfied())
	assert.Equal(t, qty(25), result.Deducted())
	assert.Equal(t, qty(15), result.Shortfall)
	assert.Equal(t, types.Quantity(0), repo.levels[0].Quantity)
}

func TestResolver_Deduct_NoStockAnywhere(t *testing.T) {
	articleID := id.New()
	repo := &fakeStockRepo{}
	resolver := NewResolver(repo)

	result, err := resolver.Deduct(context.Background(), articleID, qty(5), "test:none")
	require.NoError(t, err)

	assert.Equal(t, qty(5), result.Shortfall)
	assert.Empty(t, result.Entries)
	assert.Empty(t, repo.movements, "no movements when nothing was deducted")
}

func TestResolver_Deduct_ConcurrentDrain(t *testing.T) {
	articleID := id.New()
	drained := entrepot(id.New())
	backup := entrepot(id.New())
	repo := &fakeStockRepo{levels: []StockLevel{
		level(drained, articleID, 100),
		level(backup, articleID, 50),
	}}
	// Another writer empties the first warehouse between the snapshot
	// read and the guarded update.
	repo.beforeDeduct = func(loc entity.LocationRef) {
		if loc == drained {
			i := repo.findLevel(drained, articleID)
			repo.levels[i].Quantity = 0
		}
	}
	resolver := NewResolver(repo)

	result, err := resolver.Deduct(context.Background(), articleID, qty(40), "test:race")
	require.NoError(t, err)

	assert.True(t, result.FullySatisfied(), "resolver falls through to the next location")
	require.Len(t, result.Entries, 1)
	assert.Equal(t, backup, result.Entries[0].Location)
}

func TestResolver_Deduct_NeverNegative(t *testing.T) {
	articleID := id.New()
	repo := &fakeStockRepo{levels: []StockLevel{
		level(entrepot(id.New()), articleID, 7),
		level(pointVente(id.New()), articleID, 3),
	}}
	resolver := NewResolver(repo)

	_, err := resolver.Deduct(context.Background(), articleID, qty(1000), "test:neg")
	require.NoError(t, err)

	for _, l := range repo.levels {
		assert.False(t, l.Quantity.IsNegative(), "location %s went negative", l.LocationID)
	}
}

func TestResolver_Deduct_RejectsNonPositive(t *testing.T) {
	resolver := NewResolver(&fakeStockRepo{})

	for _, q := range []types.Quantity{0, qty(-1)} {
		_, err := resolver.Deduct(context.Background(), id.New(), q, "test:invalid")
		assert.Error(t, err)
	}
}

func TestResolver_CheckAvailability(t *testing.T) {
	articleID := id.New()
	repo := &fakeStockRepo{levels: []StockLevel{
		level(entrepot(id.New()), articleID, 10),
		level(pointVente(id.New()), articleID, 5),
	}}
	resolver := NewResolver(repo)

	assert.NoError(t, resolver.CheckAvailability(context.Background(), articleID, qty(15)))

	err := resolver.CheckAvailability(context.Background(), articleID, qty(16))
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
}

func TestResolver_Credit(t *testing.T) {
	articleID := id.New()
	loc := pointVente(id.New())
	repo := &fakeStockRepo{}
	resolver := NewResolver(repo)

	movement, err := resolver.Credit(context.Background(), loc, articleID, qty(12), "entree:x")
	require.NoError(t, err)

	assert.Equal(t, entity.DirectionEntree, movement.Direction)
	i := repo.findLevel(loc, articleID)
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, qty(12), repo.levels[i].Quantity)
}
