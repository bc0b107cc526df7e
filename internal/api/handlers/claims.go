package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

const reasonsCacheKey = "claims:rejection_reasons"

// ClaimDecider решения по заявкам на возврат
type ClaimDecider interface {
	ListRejectionReasons(ctx context.Context, accountID string) ([]models.RejectionReason, error)
	Approve(ctx context.Context, accountID, claimID string, lineItemIDs []string) error
	Reject(ctx context.Context, accountID, claimID string, lineItemIDs []string, reasonID int, description string) error
}

// ClaimHandler обработчик запросов по возвратам
type ClaimHandler struct {
	claims     ClaimDecider
	cache      interfaces.CachePort
	reasonsTTL time.Duration
	logger     interfaces.LoggerPort
}

// NewClaimHandler создает обработчик возвратов.
// Причины отказа кэшируются на reasonsTTL, если cache не nil
func NewClaimHandler(claims ClaimDecider, cache interfaces.CachePort, reasonsTTL time.Duration, logger interfaces.LoggerPort) *ClaimHandler {
	return &ClaimHandler{claims: claims, cache: cache, reasonsTTL: reasonsTTL, logger: logger}
}

type approveRequest struct {
	LineItemIDs []string `json:"line_item_ids"`
}

type rejectRequest struct {
	LineItemIDs []string `json:"line_item_ids"`
	ReasonID    int      `json:"reason_id"`
	Description string   `json:"description"`
}

type decisionResponse struct {
	ClaimID     string             `json:"claim_id"`
	Action      models.ClaimAction `json:"action"`
	LineItemIDs []string           `json:"line_item_ids"`
}

// RejectionReasons обрабатывает GET /claims/reasons
// @Summary Причины отклонения возврата
// @Tags claims
// @Security BearerAuth
// @Produce json
// @Success 200 {object} response
// @Failure 502 {object} errorResponse
// @Router /claims/reasons [get]
func (h *ClaimHandler) RejectionReasons(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}

	if reasons, hit := h.cachedReasons(r.Context(), account); hit {
		writeJSON(w, r, http.StatusOK, reasons)
		return
	}

	reasons, err := h.claims.ListRejectionReasons(r.Context(), account)
	if err != nil {
		writeError(w, r, h.logger, err, nil)
		return
	}
	if reasons == nil {
		reasons = []models.RejectionReason{}
	}

	h.storeReasons(r.Context(), account, reasons)
	writeJSON(w, r, http.StatusOK, reasons)
}

func (h *ClaimHandler) cachedReasons(ctx context.Context, account string) ([]models.RejectionReason, bool) {
	if h.cache == nil {
		return nil, false
	}

	data, err := h.cache.GetWithTenant(ctx, reasonsCacheKey, account)
	if err != nil {
		if !errors.Is(err, apperrors.ErrCacheMiss) {
			h.logger.WarnWithContext(ctx, "Ошибка чтения кэша причин отказа", "error", err.Error())
		}
		return nil, false
	}

	var reasons []models.RejectionReason
	if err := json.Unmarshal(data, &reasons); err != nil {
		h.logger.WarnWithContext(ctx, "Поврежденная запись кэша причин отказа", "error", err.Error())
		return nil, false
	}
	return reasons, true
}

func (h *ClaimHandler) storeReasons(ctx context.Context, account string, reasons []models.RejectionReason) {
	if h.cache == nil {
		return
	}

	data, err := json.Marshal(reasons)
	if err != nil {
		return
	}
	if err := h.cache.SetWithTenant(ctx, reasonsCacheKey, data, account, h.reasonsTTL); err != nil {
		h.logger.WarnWithContext(ctx, "Не удалось сохранить причины отказа в кэш", "error", err.Error())
	}
}

// Approve обрабатывает POST /claims/{claimId}/approve
// @Summary Одобрение позиций возврата
// @Tags claims
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param claimId path string true "ID заявки"
// @Param request body approveRequest true "тело запроса"
// @Success 200 {object} response
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /claims/{claimId}/approve [post]
func (h *ClaimHandler) Approve(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	claimID := chi.URLParam(r, "claimId")

	var req approveRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	if err := h.claims.Approve(r.Context(), account, claimID, req.LineItemIDs); err != nil {
		writeError(w, r, h.logger, err, nil)
		return
	}

	writeJSON(w, r, http.StatusOK, decisionResponse{
		ClaimID:     claimID,
		Action:      models.ClaimApprove,
		LineItemIDs: req.LineItemIDs,
	})
}

// Reject обрабатывает POST /claims/{claimId}/reject
// @Summary Отклонение позиций возврата
// @Tags claims
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param claimId path string true "ID заявки"
// @Param request body rejectRequest true "тело запроса"
// @Success 200 {object} response
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /claims/{claimId}/reject [post]
func (h *ClaimHandler) Reject(w http.ResponseWriter, r *http.Request) {
	account, ok := accountID(w, r)
	if !ok {
		return
	}
	claimID := chi.URLParam(r, "claimId")

	var req rejectRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		badRequest(w, r, "invalid request body")
		return
	}

	if err := h.claims.Reject(r.Context(), account, claimID, req.LineItemIDs, req.ReasonID, req.Description); err != nil {
		writeError(w, r, h.logger, err, nil)
		return
	}

	writeJSON(w, r, http.StatusOK, decisionResponse{
		ClaimID:     claimID,
		Action:      models.ClaimReject,
		LineItemIDs: req.LineItemIDs,
	})
}
