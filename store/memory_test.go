package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epharma/ent"
)

func seedCatalog(t *testing.T) *Memory {
	t.Helper()

	mem := NewMemory()
	ctx := context.Background()

	cat := &ent.Category{Name: "Pain Relief", Slug: "pain-relief"}
	require.NoError(t, mem.CreateCategory(ctx, cat))
	brand := &ent.Brand{Name: "Bayer"}
	require.NoError(t, mem.CreateBrand(ctx, brand))

	products := []ent.Product{
		{Name: "Aspirin 75mg", Slug: "aspirin-75mg", Price: 500,
			StockQuantity: 10, CategoryID: &cat.ID, BrandID: &brand.ID, IsActive: true},
		{Name: "Paracetamol 500mg", Slug: "paracetamol-500mg", Price: 1500,
			StockQuantity: 0, CategoryID: &cat.ID, IsActive: true},
		{Name: "Discontinued Tonic", Slug: "discontinued-tonic", Price: 900,
			StockQuantity: 5, IsActive: false},
		{Name: "Vitamin C 1000mg", Slug: "vitamin-c-1000mg", Price: 2500,
			StockQuantity: 40, IsActive: true, Description: "immune support"},
	}
	for i := range products {
		require.NoError(t, mem.CreateProduct(ctx, &products[i]))
	}

	return mem
}

func TestProductsFiltering(t *testing.T) {
	mem := seedCatalog(t)
	ctx := context.Background()

	all, err := mem.Products(ctx, ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3, "inactive products stay hidden")

	inStock, err := mem.Products(ctx, ProductFilter{InStock: true})
	require.NoError(t, err)
	assert.Len(t, inStock, 2)

	cheap, err := mem.Products(ctx, ProductFilter{MaxPrice: 1000})
	require.NoError(t, err)
	require.Len(t, cheap, 1)
	assert.Equal(t, "Aspirin 75mg", cheap[0].Name)

	search, err := mem.Products(ctx, ProductFilter{Search: "immune"})
	require.NoError(t, err)
	require.Len(t, search, 1)
	assert.Equal(t, "Vitamin C 1000mg", search[0].Name)

	branded, err := mem.Products(ctx, ProductFilter{BrandID: 2})
	require.NoError(t, err)
	require.Len(t, branded, 1)
	require.NotNil(t, branded[0].BrandName)
	assert.Equal(t, "Bayer", *branded[0].BrandName)
}

func TestProductsPagination(t *testing.T) {
	mem := seedCatalog(t)
	ctx := context.Background()

	page, err := mem.Products(ctx, ProductFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)

	rest, err := mem.Products(ctx, ProductFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, rest, 1)

	beyond, err := mem.Products(ctx, ProductFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestProductBySlug(t *testing.T) {
	mem := seedCatalog(t)
	ctx := context.Background()

	p, err := mem.ProductBySlug(ctx, "aspirin-75mg")
	require.NoError(t, err)
	assert.Equal(t, "Aspirin 75mg", p.Name)
	require.NotNil(t, p.CategoryName)
	assert.Equal(t, "Pain Relief", *p.CategoryName)

	_, err = mem.ProductBySlug(ctx, "no-such-thing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDuplicateSlugs(t *testing.T) {
	mem := seedCatalog(t)
	ctx := context.Background()

	err := mem.CreateProduct(ctx, &ent.Product{Name: "Copy", Slug: "aspirin-75mg", IsActive: true})
	assert.ErrorIs(t, err, ErrDuplicate)

	err = mem.CreateCategory(ctx, &ent.Category{Name: "Other", Slug: "pain-relief"})
	assert.ErrorIs(t, err, ErrDuplicate)
}
