package services

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/shopspring/decimal"
)

// MaxListPageSize наибольший размер страницы локального каталога
const MaxListPageSize = 100

// CatalogPage страница локального каталога
type CatalogPage struct {
	Items      []models.CatalogItem `json:"items"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	Total      int64                `json:"total"`
	TotalPages int                  `json:"total_pages"`
}

// CatalogService чтение локального каталога и поля, которыми владеет продавец
type CatalogService struct {
	catalog CatalogRepository
	logger  interfaces.LoggerPort
}

// NewCatalogService создает сервис каталога
func NewCatalogService(catalog CatalogRepository, logger interfaces.LoggerPort) *CatalogService {
	return &CatalogService{catalog: catalog, logger: logger}
}

// ListProducts возвращает страницу товаров аккаунта, подходящих под фильтр
func (s *CatalogService) ListProducts(ctx context.Context, accountID string, filter models.CatalogFilter, page, pageSize int) (*CatalogPage, error) {
	p := utils.NewPagination(page, pageSize, MaxListPageSize)
	filter = filter.Normalize()

	s.logger.DebugWithContext(ctx, "Запрос каталога",
		"account_id", accountID,
		"filter", filter.ToMap(),
		"page", p.Page,
		"page_size", p.PageSize,
	)

	items, total, err := s.catalog.ListProducts(ctx, accountID, filter, p)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if items == nil {
		items = []models.CatalogItem{}
	}

	return &CatalogPage{
		Items:      items,
		Page:       p.Page,
		PageSize:   p.PageSize,
		Total:      total,
		TotalPages: utils.TotalPages(total, p.PageSize),
	}, nil
}

// GetProduct возвращает товар по внешнему ID
func (s *CatalogService) GetProduct(ctx context.Context, accountID, externalID string) (*models.CatalogItem, error) {
	item, err := s.catalog.GetProduct(ctx, accountID, externalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if item == nil {
		return nil, apperrors.Newf(apperrors.KindNotFound, "get product", "product %s not found", externalID)
	}
	return item, nil
}

// SetCostPrice задает себестоимость товара. nil очищает значение
func (s *CatalogService) SetCostPrice(ctx context.Context, accountID, externalID string, cost *decimal.Decimal) error {
	if cost != nil && cost.IsNegative() {
		return apperrors.New(apperrors.KindValidation, "set cost price", "cost price must not be negative")
	}

	if cost != nil {
		rounded := models.RoundPrice(*cost)
		cost = &rounded
	}

	found, err := s.catalog.SetCostPrice(ctx, accountID, externalID, cost)
	if err != nil {
		return fmt.Errorf("failed to set cost price: %w", err)
	}
	if !found {
		return apperrors.Newf(apperrors.KindNotFound, "set cost price", "product %s not found", externalID)
	}

	s.logger.InfoWithContext(ctx, "Себестоимость товара обновлена",
		"account_id", accountID,
		"external_id", externalID,
	)
	return nil
}
