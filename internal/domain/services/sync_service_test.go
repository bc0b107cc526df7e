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

type syncFixture struct {
	store   *memStore
	locker  *fakeLocker
	gateway *fakeGateway
	events  *recordingEvents
	svc     *SyncService
}

func newSyncFixture(cfg SyncConfig) *syncFixture {
	log := logger.NewNopLogger()
	store := newMemStore()
	store.addAccount("acc-1", models.SubscriptionActive)

	gw := &fakeGateway{products: productPages(10, nil), connectionResult: true}
	locker := newFakeLocker()
	events := &recordingEvents{}

	svc := NewSyncService(
		store,
		NewSyncGate(store),
		locker,
		NewFetchService(FetchConfig{PageSize: 2, Concurrency: 2}, log),
		NewReconcileService(store, store, store, inlineTx{}, log),
		gw,
		events,
		cfg,
		log,
	)
	return &syncFixture{store: store, locker: locker, gateway: gw, events: events, svc: svc}
}

func TestRunProductSync_Success(t *testing.T) {
	f := newSyncFixture(SyncConfig{})

	result, err := f.svc.RunProductSync(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, models.ResourceProducts, result.Resource)
	assert.Equal(t, "acc-1", result.AccountID)
	assert.Equal(t, 10, result.Created)
	assert.Equal(t, 10, result.TotalObserved)
	assert.Equal(t, 5, result.TotalPages)
	assert.Empty(t, result.FailedPages)
	assert.NotNil(t, result.FailedPages)
	assert.Equal(t, "seller-acc-1", f.gateway.lastCreds.SellerID)
	assert.Equal(t, "acc-1", f.gateway.lastCreds.AccountID)

	require.Len(t, f.events.syncs, 1)
	assert.Equal(t, 10, f.events.syncs[0].Created)

	again, err := f.svc.RunProductSync(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 10, again.Unchanged)
	assert.Zero(t, again.Created+again.Updated)
}

func TestRunProductSync_PartialFailureStillSucceeds(t *testing.T) {
	f := newSyncFixture(SyncConfig{})
	f.gateway.products = productPages(10, map[int]error{
		2: apperrors.New(apperrors.KindUnavailable, "fetch_products", "upstream 503"),
	})

	result, err := f.svc.RunProductSync(context.Background(), "acc-1")
	require.NoError(t, err)

	assert.Equal(t, 8, result.Created)
	require.Len(t, result.FailedPages, 1)
	assert.Equal(t, 2, result.FailedPages[0].Page)
	require.Len(t, f.events.syncs, 1)
}

func TestRunProductSync_EntitlementDeniedDoesNoWork(t *testing.T) {
	f := newSyncFixture(SyncConfig{})
	f.store.addAccount("acc-1", models.SubscriptionPastDue)

	result, err := f.svc.RunProductSync(context.Background(), "acc-1")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsKind(err, apperrors.KindEntitlementDenied))
	assert.Contains(t, err.Error(), "subscription is past_due")

	assert.Zero(t, f.gateway.fetches())
	assert.Zero(t, f.store.writeCount())
	assert.Empty(t, f.events.syncs)
}

func TestRunProductSync_UnknownAccountIsDenied(t *testing.T) {
	f := newSyncFixture(SyncConfig{})

	_, err := f.svc.RunProductSync(context.Background(), "acc-404")
	assert.True(t, apperrors.IsKind(err, apperrors.KindEntitlementDenied))
	assert.Zero(t, f.gateway.fetches())
}

func TestRunProductSync_AlreadyRunning(t *testing.T) {
	f := newSyncFixture(SyncConfig{})
	f.locker.busy["acc-1"] = true

	result, err := f.svc.RunProductSync(context.Background(), "acc-1")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSyncInProgress))
	assert.Zero(t, f.gateway.fetches())
}

func TestRunProductSync_AuthenticationFailure(t *testing.T) {
	f := newSyncFixture(SyncConfig{})
	f.gateway.products = productPages(10, map[int]error{
		0: apperrors.FromHTTPStatus("fetch_products", 401, "unauthorized"),
	})

	result, err := f.svc.RunProductSync(context.Background(), "acc-1")
	require.Error(t, err)
	assert.Nil(t, result)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthentication))
	assert.Equal(t, 1, f.gateway.fetches())
	assert.Zero(t, f.store.writeCount())
	assert.Empty(t, f.events.syncs)
}

func TestRunProductSync_TimeoutKeepsReconciledPages(t *testing.T) {
	f := newSyncFixture(SyncConfig{RunTimeout: 30 * time.Millisecond})
	pages := productPages(10, nil)
	f.gateway.products = func(page, size int) (*models.Page[models.CatalogItem], error) {
		if page > 0 {
			time.Sleep(150 * time.Millisecond)
		}
		return pages(page, size)
	}

	result, err := f.svc.RunProductSync(context.Background(), "acc-1")
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindTimeout))
	require.NotNil(t, result)
	assert.Equal(t, 2, result.Created)

	stored, err := f.store.GetProduct(context.Background(), "acc-1", "p-000")
	require.NoError(t, err)
	assert.NotNil(t, stored)
	assert.Empty(t, f.events.syncs)
}

func TestRunOrderSync_UsesConfiguredWindow(t *testing.T) {
	f := newSyncFixture(SyncConfig{OrderWindow: 7 * 24 * time.Hour})
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f.svc.now = func() time.Time { return now }
	f.gateway.orders = func(page, size int) (*models.Page[models.Order], error) {
		return &models.Page[models.Order]{
			Items:      []models.Order{order("1001", models.OrderCreated)},
			Page:       page,
			Size:       size,
			TotalPages: 1,
			FetchedAt:  now,
		}, nil
	}

	result, err := f.svc.RunOrderSync(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, models.OrderWindow{Start: now.Add(-7 * 24 * time.Hour), End: now}, f.gateway.lastWindow)

	history, err := f.svc.ListOrderHistory(context.Background(), "acc-1", "1001")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, now, history[0].ObservedAt)
}

func TestRunSync_UnknownResource(t *testing.T) {
	f := newSyncFixture(SyncConfig{})

	_, err := f.svc.RunSync(context.Background(), "acc-1", models.Resource("invoices"))
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	assert.Zero(t, f.gateway.fetches())
}

func TestTestConnection(t *testing.T) {
	f := newSyncFixture(SyncConfig{})

	ok, err := f.svc.TestConnection(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.True(t, ok)

	f.gateway.connectionResult = false
	ok, err = f.svc.TestConnection(context.Background(), "acc-1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.svc.TestConnection(context.Background(), "acc-404")
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestEntitledAccounts(t *testing.T) {
	f := newSyncFixture(SyncConfig{})
	f.store.addAccount("acc-2", models.SubscriptionCanceled)
	f.store.addAccount("acc-3", models.SubscriptionActive)

	ids, err := f.svc.EntitledAccounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"acc-1", "acc-3"}, ids)
}
