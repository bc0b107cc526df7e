package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/shopspring/decimal"
)

// memStore хранилище в памяти, реализует все репозитории
type memStore struct {
	mu       sync.Mutex
	accounts map[string]*models.Account
	products map[string]models.CatalogItem
	orders   map[string]models.Order
	history  []models.OrderStatusHistoryEntry
	claims   map[string]models.Claim

	failProducts map[string]bool // external id -> UpsertProduct возвращает ошибку
	writes       int
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     map[string]*models.Account{},
		products:     map[string]models.CatalogItem{},
		orders:       map[string]models.Order{},
		claims:       map[string]models.Claim{},
		failProducts: map[string]bool{},
	}
}

func key(accountID, externalID string) string { return accountID + "/" + externalID }

func (m *memStore) addAccount(id string, status models.SubscriptionStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.accounts[id] = &models.Account{
		ID:                 id,
		SubscriptionStatus: status,
		Credentials:        models.Credentials{SellerID: "seller-" + id, APIKey: "k", APISecret: "s"},
	}
}

func (m *memStore) GetAccount(_ context.Context, accountID string) (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) ListAccountIDsByStatus(_ context.Context, status models.SubscriptionStatus) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for id, a := range m.accounts {
		if a.SubscriptionStatus == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (m *memStore) GetProduct(_ context.Context, accountID, externalID string) (*models.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[key(accountID, externalID)]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memStore) UpsertProduct(_ context.Context, item *models.CatalogItem) (*models.CatalogItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failProducts[item.ExternalID] {
		return nil, errors.New("disk full")
	}
	m.writes++
	stored := *item
	// NUMERIC(18,2)
	stored.SalePrice = stored.SalePrice.Round(2)
	stored.ListPrice = stored.ListPrice.Round(2)
	m.products[key(item.AccountID, item.ExternalID)] = stored
	return &stored, nil
}

func (m *memStore) ListProducts(_ context.Context, accountID string, filter models.CatalogFilter, page utils.Pagination) ([]models.CatalogItem, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.CatalogItem
	for _, p := range m.products {
		if p.AccountID == accountID && filter.Matches(&p) {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ExternalID < all[j].ExternalID })

	from := page.Offset()
	if from > len(all) {
		from = len(all)
	}
	to := from + page.PageSize
	if to > len(all) {
		to = len(all)
	}
	return all[from:to], int64(len(all)), nil
}

func (m *memStore) SetCostPrice(_ context.Context, accountID, externalID string, cost *decimal.Decimal) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[key(accountID, externalID)]
	if !ok {
		return false, nil
	}
	p.CostPrice = cost
	m.products[key(accountID, externalID)] = p
	return true, nil
}

func (m *memStore) setCostPrice(accountID, externalID string, cost string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[key(accountID, externalID)]
	d := mustDecimal(cost)
	p.CostPrice = &d
	m.products[key(accountID, externalID)] = p
}

func (m *memStore) GetOrder(_ context.Context, accountID, orderNumber string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[key(accountID, orderNumber)]
	if !ok {
		return nil, nil
	}
	o.Lines = append([]models.OrderLine(nil), o.Lines...)
	return &o, nil
}

func (m *memStore) UpsertOrder(_ context.Context, order *models.Order) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	stored := *order
	stored.TotalPrice = stored.TotalPrice.Round(2)
	stored.Lines = append([]models.OrderLine(nil), order.Lines...)
	m.orders[key(order.AccountID, order.OrderNumber)] = stored
	cp := stored
	return &cp, nil
}

func (m *memStore) AppendStatusHistory(_ context.Context, entry *models.OrderStatusHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.history = append(m.history, *entry)
	return nil
}

func (m *memStore) ListStatusHistory(_ context.Context, orderID string) ([]models.OrderStatusHistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.OrderStatusHistoryEntry
	for _, e := range m.history {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.Before(out[j].ObservedAt) })
	return out, nil
}

func (m *memStore) GetClaim(_ context.Context, accountID, externalID string) (*models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.claims[key(accountID, externalID)]
	if !ok {
		return nil, nil
	}
	c.Items = append([]models.ClaimItem(nil), c.Items...)
	return &c, nil
}

func (m *memStore) UpsertClaim(_ context.Context, claim *models.Claim) (*models.Claim, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes++
	m.claims[key(claim.AccountID, claim.ExternalID)] = *claim
	cp := *claim
	return &cp, nil
}

func (m *memStore) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// inlineTx выполняет fn без транзакции
type inlineTx struct{}

func (inlineTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeLocker блокировка в памяти с возможностью занять аккаунт заранее
type fakeLocker struct {
	mu   sync.Mutex
	busy map[string]bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{busy: map[string]bool{}} }

func (l *fakeLocker) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if l.busy[accountID] {
		l.mu.Unlock()
		return apperrors.New(apperrors.KindSyncInProgress, "lock account", "sync already in progress")
	}
	l.busy[accountID] = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.busy, accountID)
		l.mu.Unlock()
	}()
	return fn(ctx)
}

// fakeGateway клиент маркетплейса, страницы задаются функциями
type fakeGateway struct {
	mu sync.Mutex

	products func(page, size int) (*models.Page[models.CatalogItem], error)
	orders   func(page, size int) (*models.Page[models.Order], error)
	claims   func(page, size int) (*models.Page[models.Claim], error)
	reasons  []models.RejectionReason

	fetchCalls       int
	transitionCalls  []models.ClaimTransition
	transitionErr    error
	connectionResult bool
	lastCreds        models.Credentials
	lastWindow       models.OrderWindow
}

func (g *fakeGateway) countFetch(creds models.Credentials) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetchCalls++
	g.lastCreds = creds
}

func (g *fakeGateway) FetchProductsPage(_ context.Context, creds models.Credentials, page, size int) (*models.Page[models.CatalogItem], error) {
	g.countFetch(creds)
	return g.products(page, size)
}

func (g *fakeGateway) FetchOrdersPage(_ context.Context, creds models.Credentials, window models.OrderWindow, page, size int) (*models.Page[models.Order], error) {
	g.countFetch(creds)
	g.mu.Lock()
	g.lastWindow = window
	g.mu.Unlock()
	return g.orders(page, size)
}

func (g *fakeGateway) FetchClaimsPage(_ context.Context, creds models.Credentials, page, size int) (*models.Page[models.Claim], error) {
	g.countFetch(creds)
	return g.claims(page, size)
}

func (g *fakeGateway) TestConnection(_ context.Context, creds models.Credentials) bool {
	g.countFetch(creds)
	return g.connectionResult
}

func (g *fakeGateway) FetchClaimReasons(_ context.Context, _ models.Credentials) ([]models.RejectionReason, error) {
	return g.reasons, nil
}

func (g *fakeGateway) TransitionClaimItems(_ context.Context, _ models.Credentials, t models.ClaimTransition) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.transitionCalls = append(g.transitionCalls, t)
	return g.transitionErr
}

func (g *fakeGateway) fetches() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetchCalls
}

// recordingEvents сохраняет опубликованные события
type recordingEvents struct {
	mu          sync.Mutex
	syncs       []models.SyncResult
	transitions []models.ClaimTransition
}

func (e *recordingEvents) SyncCompleted(_ context.Context, result *models.SyncResult) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.syncs = append(e.syncs, *result)
	return nil
}

func (e *recordingEvents) ClaimItemsTransitioned(_ context.Context, _ string, t models.ClaimTransition) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.transitions = append(e.transitions, t)
	return nil
}

// productPages отдает total товаров страницами по size, failing страницы возвращают ошибку
func productPages(total int, failing map[int]error) func(page, size int) (*models.Page[models.CatalogItem], error) {
	return func(page, size int) (*models.Page[models.CatalogItem], error) {
		if err, ok := failing[page]; ok {
			return nil, err
		}
		totalPages := (total + size - 1) / size
		var items []models.CatalogItem
		for i := page * size; i < (page+1)*size && i < total; i++ {
			items = append(items, models.CatalogItem{
				ExternalID: fmt.Sprintf("p-%03d", i),
				Title:      fmt.Sprintf("Product %d", i),
				SalePrice:  mustDecimal("10"),
				Status:     models.ProductOnSale,
			})
		}
		return &models.Page[models.CatalogItem]{
			Items:         items,
			Page:          page,
			Size:          size,
			TotalPages:    totalPages,
			TotalElements: int64(total),
			FetchedAt:     time.Now().UTC(),
		}, nil
	}
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
