package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epharma/ent"
	"epharma/store"
)

func setup(t *testing.T) (*Service, *store.Memory, *ent.Product) {
	t.Helper()

	mem := store.NewMemory()

	p := &ent.Product{
		Name:          "Paracetamol 500mg",
		Slug:          "paracetamol-500mg",
		Price:         1550,
		StockQuantity: 100,
		IsActive:      true,
	}
	require.NoError(t, mem.CreateProduct(context.Background(), p))

	return NewService(mem, mem), mem, p
}

func TestAddMergesQuantities(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Add(ctx, 1, p.ID, 2)
		require.NoError(t, err)
	}

	items, err := svc.Items(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(6), items[0].Quantity)
}

func TestAddConcurrent(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Add(ctx, 1, p.ID, 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	items, err := svc.Items(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(20), items[0].Quantity)
}

func TestAddValidation(t *testing.T) {
	svc, mem, p := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, p.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(ctx, 1, p.ID, -3)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(ctx, 1, 9999, 1)
	assert.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, mem.DeactivateProduct(ctx, p.ID))
	_, err = svc.Add(ctx, 1, p.ID, 1)
	assert.ErrorIs(t, err, ErrProductUnavailable)

	items, err := svc.Items(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateOverwrites(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, p.ID, 5)
	require.NoError(t, err)

	it, err := svc.Update(ctx, 1, p.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, int32(2), it.Quantity)

	items, err := svc.Items(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(2), items[0].Quantity)
}

func TestUpdateAbsentItem(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	_, err := svc.Update(ctx, 1, p.ID, 2)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The failed update must not have created a row.
	items, err := svc.Items(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateInvalidQuantity(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, p.ID, 5)
	require.NoError(t, err)

	_, err = svc.Update(ctx, 1, p.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	items, err := svc.Items(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(5), items[0].Quantity)
}

func TestRemoveIsIdempotent(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, p.ID, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, 1, p.ID))
	require.NoError(t, svc.Remove(ctx, 1, p.ID))

	items, err := svc.Items(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestClear(t *testing.T) {
	svc, mem, p := setup(t)
	ctx := context.Background()

	p2 := &ent.Product{Name: "Ibuprofen", Slug: "ibuprofen", Price: 2000, StockQuantity: 10, IsActive: true}
	require.NoError(t, mem.CreateProduct(ctx, p2))

	_, err := svc.Add(ctx, 1, p.ID, 1)
	require.NoError(t, err)
	_, err = svc.Add(ctx, 1, p2.ID, 2)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, 1))
	require.NoError(t, svc.Clear(ctx, 1))

	items, err := svc.Items(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartsAreIsolatedPerUser(t *testing.T) {
	svc, _, p := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, p.ID, 3)
	require.NoError(t, err)
	_, err = svc.Add(ctx, 2, p.ID, 7)
	require.NoError(t, err)

	require.NoError(t, svc.Clear(ctx, 1))

	items, err := svc.Items(ctx, 2)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int32(7), items[0].Quantity)
}

func TestItemsCarryCurrentProduct(t *testing.T) {
	svc, mem, p := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, 1, p.ID, 1)
	require.NoError(t, err)

	p.Price = 1800
	require.NoError(t, mem.UpdateProduct(ctx, p))

	items, err := svc.Items(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.NotNil(t, items[0].Product)
	assert.Equal(t, int64(1800), items[0].Product.Price)
}
