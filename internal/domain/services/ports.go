package services

import (
	"context"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/shopspring/decimal"
)

// Репозитории возвращают nil, nil, если запись не найдена.
// Запись выполняется в транзакции из контекста, если она там есть.

// AccountRepository доступ к аккаунтам продавцов
type AccountRepository interface {
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	ListAccountIDsByStatus(ctx context.Context, status models.SubscriptionStatus) ([]string, error)
}

// CatalogRepository хранилище товаров
type CatalogRepository interface {
	GetProduct(ctx context.Context, accountID, externalID string) (*models.CatalogItem, error)
	// UpsertProduct не меняет себестоимость существующей записи
	UpsertProduct(ctx context.Context, item *models.CatalogItem) (*models.CatalogItem, error)
	// ListProducts возвращает страницу товаров, подходящих под фильтр, и их общее число
	ListProducts(ctx context.Context, accountID string, filter models.CatalogFilter, page utils.Pagination) ([]models.CatalogItem, int64, error)
	// SetCostPrice задает себестоимость, nil очищает ее. Возвращает false, если товара нет
	SetCostPrice(ctx context.Context, accountID, externalID string, cost *decimal.Decimal) (bool, error)
}

// OrderRepository хранилище заказов и истории их статусов
type OrderRepository interface {
	GetOrder(ctx context.Context, accountID, orderNumber string) (*models.Order, error)
	UpsertOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	AppendStatusHistory(ctx context.Context, entry *models.OrderStatusHistoryEntry) error
	// ListStatusHistory возвращает историю, упорядоченную по времени наблюдения
	ListStatusHistory(ctx context.Context, orderID string) ([]models.OrderStatusHistoryEntry, error)
}

// ClaimRepository хранилище заявок на возврат
type ClaimRepository interface {
	GetClaim(ctx context.Context, accountID, externalID string) (*models.Claim, error)
	UpsertClaim(ctx context.Context, claim *models.Claim) (*models.Claim, error)
}

// AccountLocker не дает запустить две синхронизации одного аккаунта одновременно
type AccountLocker interface {
	// WithAccountLock выполняет fn под блокировкой аккаунта.
	// Если блокировка занята, возвращает ошибку KindSyncInProgress, fn не вызывается
	WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error
}

// MarketplaceGateway клиент API маркетплейса
type MarketplaceGateway interface {
	FetchProductsPage(ctx context.Context, creds models.Credentials, page, size int) (*models.Page[models.CatalogItem], error)
	FetchOrdersPage(ctx context.Context, creds models.Credentials, window models.OrderWindow, page, size int) (*models.Page[models.Order], error)
	FetchClaimsPage(ctx context.Context, creds models.Credentials, page, size int) (*models.Page[models.Claim], error)
	TestConnection(ctx context.Context, creds models.Credentials) bool
	FetchClaimReasons(ctx context.Context, creds models.Credentials) ([]models.RejectionReason, error)
	TransitionClaimItems(ctx context.Context, creds models.Credentials, t models.ClaimTransition) error
}

// EventPublisher публикует доменные события. Может быть nil
type EventPublisher interface {
	SyncCompleted(ctx context.Context, result *models.SyncResult) error
	ClaimItemsTransitioned(ctx context.Context, accountID string, t models.ClaimTransition) error
}
