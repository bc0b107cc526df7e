package services

import (
	"context"
	"fmt"
	"time"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/tx"
	"github.com/google/uuid"
)

type reconcileOutcome int

const (
	outcomeCreated reconcileOutcome = iota
	outcomeUpdated
	outcomeUnchanged
)

// ReconcileService сверяет полученные записи с локальным хранилищем.
// Записи только добавляются и обновляются, удаления нет: выборка часто неполная
type ReconcileService struct {
	catalog   CatalogRepository
	orders    OrderRepository
	claims    ClaimRepository
	txManager tx.TxManager
	logger    interfaces.LoggerPort
}

// NewReconcileService создает сервис сверки
func NewReconcileService(
	catalog CatalogRepository,
	orders OrderRepository,
	claims ClaimRepository,
	txManager tx.TxManager,
	logger interfaces.LoggerPort,
) *ReconcileService {
	return &ReconcileService{
		catalog:   catalog,
		orders:    orders,
		claims:    claims,
		txManager: txManager,
		logger:    logger,
	}
}

// reconcileEach применяет apply к каждой записи в отдельной транзакции.
// Ошибка одной записи учитывается и не останавливает остальные
func reconcileEach[T any](
	ctx context.Context,
	s *ReconcileService,
	resource models.Resource,
	records []T,
	key func(*T) string,
	apply func(ctx context.Context, rec *T) (reconcileOutcome, error),
) models.ReconcileResult {
	var result models.ReconcileResult

	for i := range records {
		rec := &records[i]
		var outcome reconcileOutcome
		err := s.txManager.Do(ctx, func(txCtx context.Context) error {
			var err error
			outcome, err = apply(txCtx, rec)
			return err
		})
		if err != nil {
			s.logger.ErrorWithContext(ctx, "Ошибка сверки записи",
				"resource", string(resource),
				"external_id", key(rec),
				"error", err.Error(),
			)
			result.Failed++
			result.Failures = append(result.Failures, models.RecordFailure{ExternalID: key(rec), Error: err.Error()})
			continue
		}

		switch outcome {
		case outcomeCreated:
			result.Created++
		case outcomeUpdated:
			result.Updated++
		default:
			result.Unchanged++
		}
	}

	return result
}

// ReconcileProducts сверяет товары. Себестоимость, заданная пользователем, не перезаписывается
func (s *ReconcileService) ReconcileProducts(ctx context.Context, accountID string, items []models.CatalogItem, observedAt time.Time) models.ReconcileResult {
	return reconcileEach(ctx, s, models.ResourceProducts, items,
		func(p *models.CatalogItem) string { return p.ExternalID },
		func(ctx context.Context, rec *models.CatalogItem) (reconcileOutcome, error) {
			normalized := *rec
			normalized.NormalizePrices()
			fetched := &normalized

			existing, err := s.catalog.GetProduct(ctx, accountID, fetched.ExternalID)
			if err != nil {
				return 0, fmt.Errorf("failed to get product: %w", err)
			}

			if existing == nil {
				item := *fetched
				item.ID = uuid.New().String()
				item.AccountID = accountID
				item.CostPrice = nil
				item.CreatedAt = observedAt
				item.UpdatedAt = observedAt
				if _, err := s.catalog.UpsertProduct(ctx, &item); err != nil {
					return 0, fmt.Errorf("failed to insert product: %w", err)
				}
				return outcomeCreated, nil
			}

			if existing.ExternalEqual(fetched) {
				return outcomeUnchanged, nil
			}

			existing.ApplyExternal(fetched)
			existing.UpdatedAt = observedAt
			if _, err := s.catalog.UpsertProduct(ctx, existing); err != nil {
				return 0, fmt.Errorf("failed to update product: %w", err)
			}
			return outcomeUpdated, nil
		})
}

// ReconcileOrders сверяет заказы. Запись истории добавляется при создании заказа
// и при каждой смене статуса, с временем наблюдения observedAt
func (s *ReconcileService) ReconcileOrders(ctx context.Context, accountID string, orders []models.Order, observedAt time.Time) models.ReconcileResult {
	return reconcileEach(ctx, s, models.ResourceOrders, orders,
		func(o *models.Order) string { return o.OrderNumber },
		func(ctx context.Context, rec *models.Order) (reconcileOutcome, error) {
			normalized := *rec
			normalized.NormalizePrices()
			fetched := &normalized

			existing, err := s.orders.GetOrder(ctx, accountID, fetched.OrderNumber)
			if err != nil {
				return 0, fmt.Errorf("failed to get order: %w", err)
			}

			if existing == nil {
				order := *fetched
				order.ID = uuid.New().String()
				order.AccountID = accountID
				order.CreatedAt = observedAt
				order.UpdatedAt = observedAt
				saved, err := s.orders.UpsertOrder(ctx, &order)
				if err != nil {
					return 0, fmt.Errorf("failed to insert order: %w", err)
				}
				if err := s.appendHistory(ctx, saved.ID, saved.Status, observedAt); err != nil {
					return 0, err
				}
				return outcomeCreated, nil
			}

			if existing.ExternalEqual(fetched) {
				return outcomeUnchanged, nil
			}

			statusChanged := existing.Status != fetched.Status
			existing.ApplyExternal(fetched)
			existing.UpdatedAt = observedAt
			saved, err := s.orders.UpsertOrder(ctx, existing)
			if err != nil {
				return 0, fmt.Errorf("failed to update order: %w", err)
			}
			if statusChanged {
				if err := s.appendHistory(ctx, saved.ID, saved.Status, observedAt); err != nil {
					return 0, err
				}
			}
			return outcomeUpdated, nil
		})
}

func (s *ReconcileService) appendHistory(ctx context.Context, orderID string, status models.OrderStatus, observedAt time.Time) error {
	entry := &models.OrderStatusHistoryEntry{
		ID:         uuid.New().String(),
		OrderID:    orderID,
		Status:     status,
		ObservedAt: observedAt,
	}
	if err := s.orders.AppendStatusHistory(ctx, entry); err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// ReconcileClaims сверяет заявки на возврат
func (s *ReconcileService) ReconcileClaims(ctx context.Context, accountID string, claims []models.Claim, observedAt time.Time) models.ReconcileResult {
	return reconcileEach(ctx, s, models.ResourceClaims, claims,
		func(c *models.Claim) string { return c.ExternalID },
		func(ctx context.Context, fetched *models.Claim) (reconcileOutcome, error) {
			existing, err := s.claims.GetClaim(ctx, accountID, fetched.ExternalID)
			if err != nil {
				return 0, fmt.Errorf("failed to get claim: %w", err)
			}

			if existing == nil {
				claim := *fetched
				claim.ID = uuid.New().String()
				claim.AccountID = accountID
				claim.CreatedAt = observedAt
				claim.UpdatedAt = observedAt
				if _, err := s.claims.UpsertClaim(ctx, &claim); err != nil {
					return 0, fmt.Errorf("failed to insert claim: %w", err)
				}
				return outcomeCreated, nil
			}

			if existing.ExternalEqual(fetched) {
				return outcomeUnchanged, nil
			}

			existing.ApplyExternal(fetched)
			existing.UpdatedAt = observedAt
			if _, err := s.claims.UpsertClaim(ctx, existing); err != nil {
				return 0, fmt.Errorf("failed to update claim: %w", err)
			}
			return outcomeUpdated, nil
		})
}

// ListOrderHistory возвращает историю статусов заказа
func (s *ReconcileService) ListOrderHistory(ctx context.Context, accountID, orderNumber string) ([]models.OrderStatusHistoryEntry, error) {
	order, err := s.orders.GetOrder(ctx, accountID, orderNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, apperrors.Newf(apperrors.KindNotFound, "list order history", "order %s not found", orderNumber)
	}
	return s.orders.ListStatusHistory(ctx, order.ID)
}
