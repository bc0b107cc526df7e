package services

import (
	"context"
	"time"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/athebyme/gomarket-sync/internal/metrics"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
)

// SyncConfig настройки запусков синхронизации
type SyncConfig struct {
	OrderWindow time.Duration // глубина выборки заказов
	RunTimeout  time.Duration // 0 без ограничения
}

// SyncService запускает синхронизацию аккаунта: шлюз, блокировка, выборка, сверка
type SyncService struct {
	accounts   AccountRepository
	gate       *SyncGate
	locker     AccountLocker
	fetcher    *FetchService
	reconciler *ReconcileService
	gateway    MarketplaceGateway
	events     EventPublisher
	cfg        SyncConfig
	logger     interfaces.LoggerPort
	now        func() time.Time
}

// NewSyncService создает сервис синхронизации
func NewSyncService(
	accounts AccountRepository,
	gate *SyncGate,
	locker AccountLocker,
	fetcher *FetchService,
	reconciler *ReconcileService,
	gateway MarketplaceGateway,
	events EventPublisher,
	cfg SyncConfig,
	logger interfaces.LoggerPort,
) *SyncService {
	if cfg.OrderWindow <= 0 {
		cfg.OrderWindow = 14 * 24 * time.Hour
	}
	return &SyncService{
		accounts:   accounts,
		gate:       gate,
		locker:     locker,
		fetcher:    fetcher,
		reconciler: reconciler,
		gateway:    gateway,
		events:     events,
		cfg:        cfg,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RunProductSync синхронизирует каталог товаров
func (s *SyncService) RunProductSync(ctx context.Context, accountID string) (*models.SyncResult, error) {
	return runSync(ctx, s, accountID, models.ResourceProducts,
		func(creds models.Credentials) PageFetcher[models.CatalogItem] {
			return func(ctx context.Context, page, size int) (*models.Page[models.CatalogItem], error) {
				return s.gateway.FetchProductsPage(ctx, creds, page, size)
			}
		},
		s.reconciler.ReconcileProducts,
	)
}

// RunOrderSync синхронизирует заказы за последние OrderWindow
func (s *SyncService) RunOrderSync(ctx context.Context, accountID string) (*models.SyncResult, error) {
	end := s.now()
	window := models.OrderWindow{Start: end.Add(-s.cfg.OrderWindow), End: end}

	return runSync(ctx, s, accountID, models.ResourceOrders,
		func(creds models.Credentials) PageFetcher[models.Order] {
			return func(ctx context.Context, page, size int) (*models.Page[models.Order], error) {
				return s.gateway.FetchOrdersPage(ctx, creds, window, page, size)
			}
		},
		s.reconciler.ReconcileOrders,
	)
}

// RunClaimSync синхронизирует заявки на возврат
func (s *SyncService) RunClaimSync(ctx context.Context, accountID string) (*models.SyncResult, error) {
	return runSync(ctx, s, accountID, models.ResourceClaims,
		func(creds models.Credentials) PageFetcher[models.Claim] {
			return func(ctx context.Context, page, size int) (*models.Page[models.Claim], error) {
				return s.gateway.FetchClaimsPage(ctx, creds, page, size)
			}
		},
		s.reconciler.ReconcileClaims,
	)
}

// RunSync запускает синхронизацию указанного ресурса
func (s *SyncService) RunSync(ctx context.Context, accountID string, resource models.Resource) (*models.SyncResult, error) {
	switch resource {
	case models.ResourceProducts:
		return s.RunProductSync(ctx, accountID)
	case models.ResourceOrders:
		return s.RunOrderSync(ctx, accountID)
	case models.ResourceClaims:
		return s.RunClaimSync(ctx, accountID)
	default:
		return nil, apperrors.Newf(apperrors.KindValidation, "run sync", "unknown resource %q", resource)
	}
}

// TestConnection проверяет ключи API аккаунта
func (s *SyncService) TestConnection(ctx context.Context, accountID string) (bool, error) {
	creds, err := loadCredentials(ctx, s.accounts, accountID)
	if err != nil {
		return false, err
	}
	return s.gateway.TestConnection(ctx, creds), nil
}

// ListOrderHistory возвращает историю статусов заказа по времени наблюдения
func (s *SyncService) ListOrderHistory(ctx context.Context, accountID, orderNumber string) ([]models.OrderStatusHistoryEntry, error) {
	return s.reconciler.ListOrderHistory(ctx, accountID, orderNumber)
}

// EntitledAccounts возвращает аккаунты, которым разрешена синхронизация
func (s *SyncService) EntitledAccounts(ctx context.Context) ([]string, error) {
	return s.accounts.ListAccountIDsByStatus(ctx, models.SubscriptionActive)
}

// runSync общий порядок запуска. Без права на синхронизацию выборка и сверка не выполняются.
// Если истек RunTimeout, возвращается частичный результат вместе с ошибкой KindTimeout:
// уже сверенные страницы остаются сохраненными
func runSync[T any](
	ctx context.Context,
	s *SyncService,
	accountID string,
	resource models.Resource,
	fetcher func(creds models.Credentials) PageFetcher[T],
	reconcile func(ctx context.Context, accountID string, records []T, observedAt time.Time) models.ReconcileResult,
) (*models.SyncResult, error) {
	op := "sync " + string(resource)
	log := s.logger.WithTenant(accountID).WithField("resource", string(resource))

	decision, err := s.gate.CheckEntitlement(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		metrics.SyncRuns.WithLabelValues(string(resource), "denied").Inc()
		log.InfoWithContext(ctx, "Синхронизация запрещена", "reason", decision.Reason)
		return nil, apperrors.New(apperrors.KindEntitlementDenied, op, decision.Reason)
	}

	creds, err := loadCredentials(ctx, s.accounts, accountID)
	if err != nil {
		return nil, err
	}

	var result *models.SyncResult
	err = s.locker.WithAccountLock(ctx, accountID, func(lockCtx context.Context) error {
		metrics.SyncInFlight.Inc()
		defer metrics.SyncInFlight.Dec()

		runCtx := lockCtx
		if s.cfg.RunTimeout > 0 {
			var cancel context.CancelFunc
			runCtx, cancel = context.WithTimeout(lockCtx, s.cfg.RunTimeout)
			defer cancel()
		}
		// запись страницы доводится до конца даже после истечения RunTimeout
		writeCtx := context.WithoutCancel(lockCtx)

		result = &models.SyncResult{
			Resource:    resource,
			AccountID:   accountID,
			FailedPages: []models.PageFailure{},
			StartedAt:   s.now(),
		}

		var reconciled models.ReconcileResult
		fetched, fetchErr := FetchAll(runCtx, s.fetcher, FetchRequest[T]{
			Resource: resource,
			Fetch:    fetcher(creds),
			Sink: func(_ context.Context, page *models.Page[T]) {
				reconciled.Add(reconcile(writeCtx, accountID, page.Items, page.FetchedAt))
			},
		})

		if fetched != nil {
			result.TotalObserved = fetched.TotalFetched
			result.TotalPages = fetched.TotalPages
			if len(fetched.FailedPages) > 0 {
				result.FailedPages = fetched.FailedPages
			}
		}
		result.Created = reconciled.Created
		result.Updated = reconciled.Updated
		result.Unchanged = reconciled.Unchanged
		result.Failed = reconciled.Failed
		result.Failures = reconciled.Failures
		result.FinishedAt = s.now()

		return fetchErr
	})

	if apperrors.IsKind(err, apperrors.KindSyncInProgress) {
		metrics.SyncRuns.WithLabelValues(string(resource), "in_progress").Inc()
		log.InfoWithContext(ctx, "Синхронизация уже выполняется")
		return nil, err
	}
	if result == nil {
		// блокировку не удалось получить
		metrics.SyncRuns.WithLabelValues(string(resource), "error").Inc()
		return nil, err
	}

	s.observe(result)

	if err != nil {
		metrics.SyncRuns.WithLabelValues(string(resource), "error").Inc()
		log.ErrorWithContext(ctx, "Синхронизация прервана",
			"kind", string(apperrors.KindOf(err)),
			"error", err.Error(),
			"created", result.Created,
			"updated", result.Updated,
		)
		if apperrors.IsKind(err, apperrors.KindTimeout) {
			return result, err
		}
		return nil, err
	}

	status := "success"
	if len(result.FailedPages) > 0 || result.Failed > 0 {
		status = "partial"
	}
	metrics.SyncRuns.WithLabelValues(string(resource), status).Inc()

	log.InfoWithContext(ctx, "Синхронизация завершена",
		"created", result.Created,
		"updated", result.Updated,
		"unchanged", result.Unchanged,
		"failed", result.Failed,
		"failed_pages", len(result.FailedPages),
		"duration", result.FinishedAt.Sub(result.StartedAt).String(),
	)

	if s.events != nil {
		if err := s.events.SyncCompleted(ctx, result); err != nil {
			log.WarnWithContext(ctx, "Не удалось опубликовать событие синхронизации", "error", err.Error())
		}
	}

	return result, nil
}

func (s *SyncService) observe(result *models.SyncResult) {
	resource := string(result.Resource)
	metrics.SyncDuration.WithLabelValues(resource).Observe(result.FinishedAt.Sub(result.StartedAt).Seconds())
	metrics.SyncRecords.WithLabelValues(resource, "created").Add(float64(result.Created))
	metrics.SyncRecords.WithLabelValues(resource, "updated").Add(float64(result.Updated))
	metrics.SyncRecords.WithLabelValues(resource, "unchanged").Add(float64(result.Unchanged))
	metrics.SyncRecords.WithLabelValues(resource, "failed").Add(float64(result.Failed))
	metrics.SyncFailedPages.WithLabelValues(resource).Add(float64(len(result.FailedPages)))
}
