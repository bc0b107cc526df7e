package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/go-chi/chi/v5"
)

// SyncRunner запуск синхронизации и чтение ее результатов
type SyncRunner interface {
	RunSync(ctx context.Context, accountID string, resource models.Resource) (*models.SyncResult, error)
	TestConnection(ctx context.Context, accountID string) (bool, error)
	ListOrderHistory(ctx context.Context, accountID, orderNumber string) ([]models.OrderStatusHistoryEntry, error)
}

// SyncRequester ставит синхронизацию в очередь воркера
type SyncRequester interface {
	RequestSync(ctx context.Context, accountID string, resource models.Resource) error
}

// SyncHandler обработчик запросов синхронизации
type SyncHandler struct {
	sync   SyncRunner
	queue  SyncRequester
	logger interfaces.LoggerPort
}

// NewSyncHandler создает обработчик синхронизации. queue может быть nil,
// тогда запуск возможен только синхронно
func NewSyncHandler(sync SyncRunner, queue SyncRequester, logger interfaces.LoggerPort) *SyncHandler {
	return &SyncHandler{sync: sync, queue: queue, logger: logger}
}

type connectionResponse struct {
	Connected bool `json:"connected"`
}

type queuedResponse struct {
	Resource models.Resource `json:"resource"`
	Queued   bool            `json:"queued"`
}

// RunSync обрабатывает POST /sync/{resource}.
// С параметром async=true запуск передается воркеру, ответ 202
// @Summary Запуск синхронизации
// @Tags sync
// @Security BearerAuth
// @Produce json
// @Param resource path string true "products, orders или claims"
// @Param async query boolean false "поставить в очередь Kafka"
// @Success 200 {object} response
// @Success 202 {object} response
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Failure 502 {object} errorResponse
// @Failure 504 {object} errorResponse
// @Router /sync/{resource} [post]
func (h *SyncHandler) RunSync(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}

	resource := models.Resource(chi.URLParam(r, "resource"))
	switch resource {
	case models.ResourceProducts, models.ResourceOrders, models.ResourceClaims:
	default:
		badRequest(w, r, "unknown resource "+string(resource))
		return
	}

	async := false
	if v := r.URL.Query().Get("async"); v != "" {
		var err error
		if async, err = strconv.ParseBool(v); err != nil {
			badRequest(w, r, "async must be a boolean")
			return
		}
	}

	if async {
		if h.queue == nil {
			badRequest(w, r, "async sync is disabled")
			return
		}
		if err := h.queue.RequestSync(r.Context(), account, resource); err != nil {
			writeError(w, r, h.logger, apperrors.Wrap(apperrors.KindUnavailable, "queue sync", err), nil)
			return
		}
		h.logger.InfoWithContext(r.Context(), "Синхронизация поставлена в очередь", "resource", string(resource))
		writeJSON(w, r, http.StatusAccepted, queuedResponse{Resource: resource, Queued: true})
		return
	}

	result, err := h.sync.RunSync(r.Context(), account, resource)
	if err != nil {
		// при таймауте отдаем частичный результат
		var partial interface{}
		if result != nil {
			partial = result
		}
		writeError(w, r, h.logger, err, partial)
		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// TestConnection обрабатывает GET /connection/test
// @Summary Проверка ключей API маркетплейса
// @Tags sync
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response
// @Router /connection/test [get]
func (h *SyncHandler) TestConnection(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}

	connected, err := h.sync.TestConnection(r.Context(), account)
	if err != nil {
		writeError(w, r, h.logger, err, nil)
		return
	}
	writeJSON(w, r, http.StatusOK, connectionResponse{Connected: connected})
}

// OrderHistory обрабатывает GET /orders/{orderNumber}/history
// @Summary История статусов заказа
// @Tags orders
// @Security BearerAuth
// @Produce json
// @Param orderNumber path string true "номер заказа"
// @Success 200 {object} response
// @Failure 404 {object} errorResponse
// @Router /orders/{orderNumber}/history [get]
func (h *SyncHandler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}

	orderNumber := chi.URLParam(r, "orderNumber")
	if orderNumber == "" {
		badRequest(w, r, "order number is required")
		return
	}

	history, err := h.sync.ListOrderHistory(r.Context(), account, orderNumber)
	if err != nil {
		writeError(w, r, h.logger, err, nil)
		return
	}
	if history == nil {
		history = []models.OrderStatusHistoryEntry{}
	}
	writeJSON(w, r, http.StatusOK, history)
}
