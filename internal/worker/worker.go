// Package worker выполняет синхронизацию вне HTTP-запросов:
// команды из брокера и плановые запуски для аккаунтов с активной подпиской
package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/athebyme/gomarket-sync/internal/adapters/messaging"
	"github.com/athebyme/gomarket-sync/internal/domain/models"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"golang.org/x/sync/errgroup"
)

// SyncRunner запуск синхронизации
type SyncRunner interface {
	RunSync(ctx context.Context, accountID string, resource models.Resource) (*models.SyncResult, error)
	EntitledAccounts(ctx context.Context) ([]string, error)
}

// SyncRequester ставит синхронизацию в очередь
type SyncRequester interface {
	RequestSync(ctx context.Context, accountID string, resource models.Resource) error
}

// Config настройки воркера
type Config struct {
	Resources   []models.Resource
	Interval    time.Duration // 0 отключает планировщик
	Concurrency int           // аккаунтов одновременно при запуске без очереди
}

// Worker обработчик команд синхронизации и планировщик
type Worker struct {
	sync   SyncRunner
	queue  SyncRequester
	cfg    Config
	logger interfaces.LoggerPort
}

// New создает воркер. Если queue nil, планировщик запускает синхронизацию сам
func New(sync SyncRunner, queue SyncRequester, cfg Config, logger interfaces.LoggerPort) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	return &Worker{sync: sync, queue: queue, cfg: cfg, logger: logger}
}

// HandleCommand обрабатывает команду sync_requested.
// Ошибка возвращается только для сбоев, после которых команду стоит получить повторно
func (w *Worker) HandleCommand(ctx context.Context, msg *interfaces.Message) error {
	env, err := messaging.DecodeEnvelope(msg.Value)
	if err != nil {
		w.logger.WarnWithContext(ctx, "Некорректная команда пропущена", "message_id", msg.ID, "error", err.Error())
		return nil
	}
	if env.Type != messaging.SyncRequestedCommand {
		return nil
	}

	var cmd messaging.SyncRequested
	if err := json.Unmarshal(env.Payload, &cmd); err != nil {
		w.logger.WarnWithContext(ctx, "Некорректная команда пропущена", "message_id", msg.ID, "error", err.Error())
		return nil
	}

	return w.run(ctx, env.AccountID, cmd.Resource)
}

func (w *Worker) run(ctx context.Context, accountID string, resource models.Resource) error {
	log := w.logger.WithTenant(accountID).WithField("resource", string(resource))

	_, err := w.sync.RunSync(ctx, accountID, resource)
	if err == nil {
		return nil
	}

	switch apperrors.KindOf(err) {
	case apperrors.KindEntitlementDenied, apperrors.KindSyncInProgress, apperrors.KindValidation,
		apperrors.KindNotFound, apperrors.KindAuthentication:
		log.InfoWithContext(ctx, "Синхронизация не выполнена", "error", err.Error())
		return nil
	case apperrors.KindTimeout:
		// сверенные страницы уже сохранены, остальное догонит следующий запуск
		log.WarnWithContext(ctx, "Синхронизация прервана по таймауту", "error", err.Error())
		return nil
	default:
		return err
	}
}

// Tick запускает синхронизацию всех ресурсов для аккаунтов с правом на нее
func (w *Worker) Tick(ctx context.Context) error {
	accounts, err := w.sync.EntitledAccounts(ctx)
	if err != nil {
		return err
	}
	w.logger.InfoWithContext(ctx, "Плановая синхронизация", "accounts", len(accounts))

	if w.queue != nil {
		for _, acc := range accounts {
			for _, resource := range w.cfg.Resources {
				if err := w.queue.RequestSync(ctx, acc, resource); err != nil {
					return err
				}
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, acc := range accounts {
		g.Go(func() error {
			// ресурсы одного аккаунта идут по очереди: блокировка общая
			for _, resource := range w.cfg.Resources {
				if err := w.run(gctx, acc, resource); err != nil {
					w.logger.WithTenant(acc).ErrorWithContext(gctx, "Ошибка плановой синхронизации",
						"resource", string(resource), "error", err.Error())
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// RunScheduler вызывает Tick с периодом Interval до отмены ctx
func (w *Worker) RunScheduler(ctx context.Context) {
	if w.cfg.Interval <= 0 {
		return
	}

	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Tick(ctx); err != nil {
				w.logger.ErrorWithContext(ctx, "Ошибка планировщика", "error", err.Error())
			}
		}
	}
}
