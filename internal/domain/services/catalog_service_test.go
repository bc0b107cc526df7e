package services

import (
	"context"
	"testing"
	"time"

	"github.com/athebyme/gomarket-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedCatalog(t *testing.T, store *memStore, n int) {
	t.Helper()
	fetch := productPages(n, nil)
	page, err := fetch(0, n)
	require.NoError(t, err)
	newTestReconciler(store).ReconcileProducts(context.Background(), "acc-1", page.Items, time.Now())
}

func TestCatalogService_ListProducts(t *testing.T) {
	store := newMemStore()
	seedCatalog(t, store, 5)
	svc := NewCatalogService(store, logger.NewNopLogger())

	page, err := svc.ListProducts(context.Background(), "acc-1", models.CatalogFilter{}, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "p-002", page.Items[0].ExternalID)

	empty, err := svc.ListProducts(context.Background(), "acc-2", models.CatalogFilter{}, 0, 1000)
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Equal(t, MaxListPageSize, empty.PageSize)
}

func TestCatalogService_ListProductsFiltered(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	seedCatalog(t, store, 12)
	svc := NewCatalogService(store, logger.NewNopLogger())

	cost := mustDecimal("3")
	require.NoError(t, svc.SetCostPrice(ctx, "acc-1", "p-010", &cost))

	page, err := svc.ListProducts(ctx, "acc-1", models.CatalogFilter{Search: "  product 1 "}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, []string{"p-001", "p-010", "p-011"}, externalIDs(page.Items))

	withCost := true
	page, err = svc.ListProducts(ctx, "acc-1", models.CatalogFilter{HasCostPrice: &withCost}, 0, 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"p-010"}, externalIDs(page.Items))

	page, err = svc.ListProducts(ctx, "acc-1", models.CatalogFilter{Statuses: []models.ProductStatus{models.ProductArchived}}, 0, 20)
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.Total)
}

func TestCatalogService_SetCostPriceSurvivesSync(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	seedCatalog(t, store, 1)
	svc := NewCatalogService(store, logger.NewNopLogger())

	cost := mustDecimal("7.25")
	require.NoError(t, svc.SetCostPrice(ctx, "acc-1", "p-000", &cost))

	changed := product("p-000", "11")
	newTestReconciler(store).ReconcileProducts(ctx, "acc-1", []models.CatalogItem{changed}, time.Now())

	got, err := svc.GetProduct(ctx, "acc-1", "p-000")
	require.NoError(t, err)
	require.NotNil(t, got.CostPrice)
	assert.True(t, got.CostPrice.Equal(cost))
	assert.True(t, got.SalePrice.Equal(mustDecimal("11")))
}

func TestCatalogService_SetCostPriceRoundsToStorageScale(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	seedCatalog(t, store, 1)
	svc := NewCatalogService(store, logger.NewNopLogger())

	cost := mustDecimal("7.125")
	require.NoError(t, svc.SetCostPrice(ctx, "acc-1", "p-000", &cost))

	got, err := svc.GetProduct(ctx, "acc-1", "p-000")
	require.NoError(t, err)
	require.NotNil(t, got.CostPrice)
	assert.True(t, got.CostPrice.Equal(mustDecimal("7.13")))
}

func TestCatalogService_SetCostPriceErrors(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	seedCatalog(t, store, 1)
	svc := NewCatalogService(store, logger.NewNopLogger())

	negative := mustDecimal("-1")
	err := svc.SetCostPrice(ctx, "acc-1", "p-000", &negative)
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	err = svc.SetCostPrice(ctx, "acc-1", "missing", nil)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))

	_, err = svc.GetProduct(ctx, "acc-1", "missing")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}
