package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/catalog/models"
	"github.com/Skotchmaster/storefront/internal/catalog/repo"
	"github.com/Skotchmaster/storefront/internal/catalog/transport"
	"github.com/Skotchmaster/storefront/pkg/db/dbtest"
	"github.com/Skotchmaster/storefront/pkg/events"
)

func newTestCatalog(t *testing.T) (*CatalogService, *events.Recorder) {
	t.Helper()
	rec := &events.Recorder{}
	db := dbtest.Open(t, &models.Product{})
	return &CatalogService{Repo: &repo.GormRepo{DB: db}, Events: rec}, rec
}

func validProduct() transport.CreateProductRequest {
	return transport.CreateProductRequest{
		Name:          "Lamp",
		Description:   "Desk lamp",
		Price:         19.99,
		ImageURL:      "https://img.example.com/lamp.png",
		StockQuantity: 4,
	}
}

func TestCatalogService_CreateAndGet(t *testing.T) {
	t.Parallel()

	svc, rec := newTestCatalog(t)
	ctx := context.Background()

	prod, err := svc.CreateProduct(ctx, validProduct())
	require.NoError(t, err)
	assert.NotEmpty(t, prod.ID)
	assert.Equal(t, models.StatusActive, prod.Status)

	got, err := svc.GetProduct(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)
	assert.InDelta(t, 19.99, got.Price, 0.001)

	assert.Equal(t, []string{"product_created"}, rec.Types(events.TopicProducts))
}

func TestCatalogService_CreateValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestCatalog(t)

	tests := []struct {
		name   string
		mutate func(*transport.CreateProductRequest)
	}{
		{name: "missing name", mutate: func(r *transport.CreateProductRequest) { r.Name = "  " }},
		{name: "negative price", mutate: func(r *transport.CreateProductRequest) { r.Price = -1 }},
		{name: "negative stock", mutate: func(r *transport.CreateProductRequest) { r.StockQuantity = -2 }},
		{name: "missing image", mutate: func(r *transport.CreateProductRequest) { r.ImageURL = "" }},
		{name: "unknown status", mutate: func(r *transport.CreateProductRequest) { r.Status = "archived" }},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			req := validProduct()
			tt.mutate(&req)
			_, err := svc.CreateProduct(context.Background(), req)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestCatalogService_PatchIsPartial(t *testing.T) {
	t.Parallel()

	svc, rec := newTestCatalog(t)
	ctx := context.Background()
	prod, err := svc.CreateProduct(ctx, validProduct())
	require.NoError(t, err)

	price := 25.5
	updated, err := svc.PatchProduct(ctx, prod.ID, transport.PatchProductRequest{Price: &price})
	require.NoError(t, err)
	assert.InDelta(t, 25.5, updated.Price, 0.001)
	assert.Equal(t, "Lamp", updated.Name)
	assert.Equal(t, 4, updated.StockQuantity)

	negative := -3
	_, err = svc.PatchProduct(ctx, prod.ID, transport.PatchProductRequest{StockQuantity: &negative})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.PatchProduct(ctx, "6f1c2f0e-0000-4000-8000-000000000000", transport.PatchProductRequest{Price: &price})
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, []string{"product_created", "product_updated"}, rec.Types(events.TopicProducts))
}

func TestCatalogService_DeleteAndList(t *testing.T) {
	t.Parallel()

	svc, _ := newTestCatalog(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		prod, err := svc.CreateProduct(ctx, validProduct())
		require.NoError(t, err)
		ids = append(ids, prod.ID)
	}

	total, items, err := svc.GetProducts(ctx, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, items, 2)

	require.NoError(t, svc.DeleteProduct(ctx, ids[0]))
	assert.ErrorIs(t, svc.DeleteProduct(ctx, ids[0]), ErrNotFound)

	_, err = svc.GetProduct(ctx, ids[0])
	assert.ErrorIs(t, err, ErrNotFound)

	total, _, err = svc.GetProducts(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}
