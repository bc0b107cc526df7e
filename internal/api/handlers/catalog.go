package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/athebyme/gomarket-sync/internal/domain/services"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/shopspring/decimal"
)

// CatalogReader локальный каталог аккаунта
type CatalogReader interface {
	ListProducts(ctx context.Context, accountID string, filter models.CatalogFilter, page, pageSize int) (*services.CatalogPage, error)
	GetProduct(ctx context.Context, accountID, externalID string) (*models.CatalogItem, error)
	SetCostPrice(ctx context.Context, accountID, externalID string, cost *decimal.Decimal) error
}

// CatalogHandler обработчик запросов для товаров
type CatalogHandler struct {
	catalog CatalogReader
	logger  interfaces.LoggerPort
}

// NewCatalogHandler создает обработчик каталога
func NewCatalogHandler(catalog CatalogReader, logger interfaces.LoggerPort) *CatalogHandler {
	return &CatalogHandler{catalog: catalog, logger: logger}
}

// costPriceRequest тело запроса себестоимости. null очищает значение
type costPriceRequest struct {
	CostPrice *decimal.Decimal `json:"cost_price"`
}

type pageMeta struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

func queryInt(r *http.Request, name string, def int) (int, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// catalogFilter читает фильтр из status, q и has_cost_price
func catalogFilter(r *http.Request) (models.CatalogFilter, bool) {
	q := r.URL.Query()
	filter := models.CatalogFilter{Search: q.Get("q")}

	if v := q.Get("status"); v != "" {
		for _, s := range strings.Split(v, ",") {
			filter.Statuses = append(filter.Statuses, models.ProductStatus(s))
		}
	}

	if v := q.Get("has_cost_price"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return filter, false
		}
		filter.HasCostPrice = &b
	}
	return filter, true
}

// ListProducts обрабатывает GET /products?page=&page_size=&status=&q=&has_cost_price=
// @Summary Список товаров
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param page query int false "номер страницы с нуля"
// @Param page_size query int false "размер страницы, до 100"
// @Param status query string false "статусы через запятую"
// @Param q query string false "поиск по названию, штрихкоду и артикулу"
// @Param has_cost_price query boolean false "наличие себестоимости"
// @Success 200 {object} response
// @Failure 400 {object} errorResponse
// @Router /products/ [get]
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}

	page, ok := queryInt(r, "page", 0)
	if !ok {
		badRequest(w, r, "page must be a non-negative integer")
		return
	}
	pageSize, ok := queryInt(r, "page_size", 20)
	if !ok {
		badRequest(w, r, "page_size must be a non-negative integer")
		return
	}

	filter, ok := catalogFilter(r)
	if !ok {
		badRequest(w, r, "has_cost_price must be a boolean")
		return
	}

	result, err := h.catalog.ListProducts(r.Context(), account, filter, page, pageSize)
	if err != nil {
		writeError(w, r, h.logger, err, nil)
		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, response{
		Success: true,
		Data:    result.Items,
		Meta: pageMeta{
			Page:       result.Page,
			PageSize:   result.PageSize,
			Total:      result.Total,
			TotalPages: result.TotalPages,
		},
	})
}

// GetProduct обрабатывает GET /products/{externalId}
// @Summary Товар по внешнему ID
// @Tags products
// @Security BearerAuth
// @Produce json
// @Param externalId path string true "внешний ID товара"
// @Success 200 {object} response
// @Failure 404 {object} errorResponse
// @Router /products/{externalId} [get]
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}

	item, err := h.catalog.GetProduct(r.Context(), account, chi.URLParam(r, "externalId"))
	if err != nil {
		writeError(w, r, h.logger, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}

// SetCostPrice обрабатывает PUT /products/{externalId}/cost-price
// @Summary Себестоимость товара
// @Description null очищает себестоимость
// @Tags products
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param externalId path string true "внешний ID товара"
// @Param request body costPriceRequest true "тело запроса"
// @Success 200 {object} response
// @Failure 404 {object} errorResponse
// @Router /products/{externalId}/cost-price [put]
func (h *CatalogHandler) SetCostPrice(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	externalID := chi.URLParam(r, "externalId")

	var req costPriceRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	if err := h.catalog.SetCostPrice(r.Context(), account, externalID, req.CostPrice); err != nil {
		writeError(w, r, h.logger, err, nil)
		return
	}

	item, err := h.catalog.GetProduct(r.Context(), account, externalID)
	if err != nil {
		writeError(w, r, h.logger, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, item)
}
