package marketplace

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/athebyme/gomarket-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = models.Credentials{
	AccountID: "acc-1",
	SellerID:  "777",
	APIKey:    "key",
	APISecret: "secret",
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := Config{
		BaseURL:        srv.URL,
		Integration:    "SyncTest",
		Timeout:        2 * time.Second,
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
	}
	return NewClient(cfg, logger.NewNopLogger()), srv
}

func TestFetchProductsPage_MapsPayloadAndSignsRequest(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)
		assert.Equal(t, "777 - SyncTest", r.Header.Get("User-Agent"))
		assert.Equal(t, "/suppliers/777/products", r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("page"))
		assert.Equal(t, "200", r.URL.Query().Get("size"))

		_, _ = io.WriteString(w, `{
			"totalElements": 401, "totalPages": 3, "page": 1, "size": 200,
			"content": [
				{"id": "p-1", "barcode": "869", "title": "Mug", "salePrice": 19.90, "listPrice": "25", "quantity": 4, "approved": true, "onSale": true},
				{"id": "p-2", "title": "Plate", "approved": true, "archived": true},
				{"id": "p-3", "title": "Cup", "blacklisted": true, "onSale": true}
			]
		}`)
	})

	page, err := client.FetchProductsPage(context.Background(), testCreds, 1, 1000)
	require.NoError(t, err)

	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, int64(401), page.TotalElements)
	assert.Equal(t, 200, page.Size)
	require.Len(t, page.Items, 3)

	first := page.Items[0]
	assert.Equal(t, "acc-1", first.AccountID)
	assert.Equal(t, "p-1", first.ExternalID)
	assert.True(t, first.SalePrice.Equal(decimal.RequireFromString("19.9")))
	assert.True(t, first.ListPrice.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, models.ProductOnSale, first.Status)
	assert.Nil(t, first.CostPrice)

	assert.Equal(t, models.ProductArchived, page.Items[1].Status)
	assert.Equal(t, models.ProductBlacklisted, page.Items[2].Status)
	assert.False(t, page.FetchedAt.IsZero())
}

func TestFetchOrdersPage_SendsWindowAndMapsOrder(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(14 * 24 * time.Hour)

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/suppliers/777/orders", r.URL.Path)
		assert.Equal(t, "1772323200000", r.URL.Query().Get("startDate"))
		assert.NotEmpty(t, r.URL.Query().Get("endDate"))

		_, _ = io.WriteString(w, `{
			"totalElements": 1, "totalPages": 1, "page": 0, "size": 50,
			"content": [{
				"orderNumber": "123", "customerId": 42, "customerFirstName": "Ada", "customerLastName": "L",
				"shipmentAddress": {"firstName": "Ada", "lastName": "L", "city": "Istanbul"},
				"totalPrice": 99.5, "currencyCode": "TRY", "status": "Created", "orderDate": 1772323200000,
				"lines": [{"id": 9, "barcode": "869", "productName": "Mug", "quantity": 2, "price": 49.75}]
			}]
		}`)
	})

	page, err := client.FetchOrdersPage(context.Background(), testCreds, models.OrderWindow{Start: start, End: end}, 0, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	o := page.Items[0]
	assert.Equal(t, "123", o.OrderNumber)
	assert.Equal(t, "42", o.CustomerID)
	assert.Equal(t, "Ada L", o.CustomerName)
	assert.Equal(t, "Istanbul", o.ShipmentAddress.City)
	assert.Equal(t, models.OrderCreated, o.Status)
	assert.True(t, o.OrderedAt.Equal(start))
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "9", o.Lines[0].ExternalID)
}

func TestFetchClaimsPage_FlattensItemsAndMapsStates(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{
			"totalElements": 1, "totalPages": 1, "page": 0, "size": 50,
			"content": [{
				"id": "c-1", "orderNumber": "123", "claimDate": 1772323200000,
				"items": [{
					"orderLine": {"id": 9, "barcode": "869"},
					"claimItems": [
						{"id": "i-1", "claimItemStatus": {"name": "WaitingInAction"}},
						{"id": "i-2", "claimItemStatus": {"name": "Accepted"}},
						{"id": "i-3", "claimItemStatus": {"name": "InAnalysis"}}
					]
				}]
			}]
		}`)
	})

	page, err := client.FetchClaimsPage(context.Background(), testCreds, 0, 50)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	claim := page.Items[0]
	require.Len(t, claim.Items, 3)
	assert.Equal(t, models.ClaimItemAwaitingDecision, claim.Items[0].State)
	assert.Equal(t, models.ClaimItemApproved, claim.Items[1].State)
	assert.Equal(t, models.ClaimItemUnderReview, claim.Items[2].State)
	assert.Equal(t, "9", claim.Items[0].OrderLineID)
}

func TestGet_RetriesTransientFailures(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"id": 1, "name": "Damaged by customer"}]`)
	})

	reasons, err := client.FetchClaimReasons(context.Background(), testCreds)
	require.NoError(t, err)
	assert.Equal(t, []models.RejectionReason{{ID: 1, Name: "Damaged by customer"}}, reasons)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_GivesUpAfterMaxAttempts(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := client.FetchProductsPage(context.Background(), testCreds, 0, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindRateLimited))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGet_DoesNotRetryAuthenticationFailure(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "invalid credentials")
	})

	_, err := client.FetchProductsPage(context.Background(), testCreds, 0, 10)
	require.Error(t, err)

	e, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.KindAuthentication, e.Kind)
	assert.Equal(t, http.StatusUnauthorized, e.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_MissingCredentialsFailWithoutNetwork(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := client.FetchProductsPage(context.Background(), models.Credentials{AccountID: "acc-1"}, 0, 10)
	assert.True(t, apperrors.IsKind(err, apperrors.KindAuthentication))
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestTestConnection(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "1", r.URL.Query().Get("size"))
			_, _ = io.WriteString(w, `{"totalElements": 0, "totalPages": 0, "content": []}`)
		})
		assert.True(t, client.TestConnection(context.Background(), testCreds))
	})

	t.Run("unauthorized is false, not an error", func(t *testing.T) {
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		})
		assert.False(t, client.TestConnection(context.Background(), testCreds))
	})

	t.Run("unreachable host is false", func(t *testing.T) {
		client, srv := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		srv.Close()
		assert.False(t, client.TestConnection(context.Background(), testCreds))
	})
}

func TestTransitionClaimItems_ApproveSendsBodyOnce(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/suppliers/777/claims/c-1/items/approve", r.URL.Path)

		var body approveClaimItemsDTO
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"i-1", "i-2"}, body.ClaimLineItemIDList)
		assert.NotNil(t, body.Params)
	})

	err := client.TransitionClaimItems(context.Background(), testCreds, models.ClaimTransition{
		ClaimID:     "c-1",
		LineItemIDs: []string{"i-1", "i-2"},
		Action:      models.ClaimApprove,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransitionClaimItems_RejectSendsQueryParams(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/suppliers/777/claims/c-1/issue", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "7", q.Get("claimIssueReasonId"))
		assert.Equal(t, "i-1,i-2", q.Get("claimItemIdList"))
		assert.Equal(t, "wrong item returned", q.Get("description"))
	})

	err := client.TransitionClaimItems(context.Background(), testCreds, models.ClaimTransition{
		ClaimID:     "c-1",
		LineItemIDs: []string{"i-1", "i-2"},
		Action:      models.ClaimReject,
		ReasonID:    7,
		Description: "wrong item returned",
	})
	require.NoError(t, err)
}

func TestTransitionClaimItems_NotRetriedOnServerError(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := client.TransitionClaimItems(context.Background(), testCreds, models.ClaimTransition{
		ClaimID:     "c-1",
		LineItemIDs: []string{"i-1"},
		Action:      models.ClaimApprove,
	})
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnavailable))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTransitionClaimItems_ValidationBeforeNetwork(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	long := make([]rune, MaxRejectDescription+1)
	for i := range long {
		long[i] = 'x'
	}

	cases := []models.ClaimTransition{
		{ClaimID: "c-1", Action: models.ClaimApprove},
		{ClaimID: "c-1", LineItemIDs: []string{"i-1"}, Action: models.ClaimReject, ReasonID: 0, Description: "x"},
		{ClaimID: "c-1", LineItemIDs: []string{"i-1"}, Action: models.ClaimReject, ReasonID: 3, Description: "   "},
		{ClaimID: "c-1", LineItemIDs: []string{"i-1"}, Action: models.ClaimReject, ReasonID: 3, Description: string(long)},
	}
	for _, tc := range cases {
		err := client.TransitionClaimItems(context.Background(), testCreds, tc)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation), "transition %+v", tc)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestGet_ContextCancelledDuringBackoffIsTimeout(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	client.cfg.InitialBackoff = time.Second
	client.cfg.MaxBackoff = time.Second

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchProductsPage(ctx, testCreds, 0, 10)
	require.Error(t, err)
	assert.True(t, apperrors.IsRetryable(err))
}
