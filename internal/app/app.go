// Package app собирает зависимости сервиса синхронизации для API и воркера
package app

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-sync/config"
	"github.com/athebyme/gomarket-sync/internal/adapters/cache"
	"github.com/athebyme/gomarket-sync/internal/adapters/lock"
	"github.com/athebyme/gomarket-sync/internal/adapters/marketplace"
	"github.com/athebyme/gomarket-sync/internal/adapters/messaging"
	"github.com/athebyme/gomarket-sync/internal/adapters/storage"
	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/athebyme/gomarket-sync/internal/domain/services"
	"github.com/athebyme/gomarket-sync/internal/utils"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/tx"
)

// App готовые к работе сервисы и их инфраструктура
type App struct {
	Config *config.Config
	Logger interfaces.LoggerPort

	Storage   *storage.PostgresStorage
	Cache     interfaces.CachePort      // nil, если Redis выключен
	Broker    *messaging.KafkaMessaging // nil, если Kafka выключена
	Publisher *messaging.Publisher      // nil, если Kafka выключена

	Sync    *services.SyncService
	Claims  *services.ClaimService
	Catalog *services.CatalogService

	closers []func() error
}

type pinger interface {
	Ping(ctx context.Context) error
}

// New подключается к хранилищам, применяет миграции и создает сервисы.
// При ошибке уже открытые соединения закрываются
func New(ctx context.Context, cfg *config.Config, log interfaces.LoggerPort) (*App, error) {
	a := &App{Config: cfg, Logger: log}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	cfg, log := a.Config, a.Logger

	if cfg.Migrations.Enabled {
		migrationURL, err := utils.GenerateMigrationURL(cfg.DSN())
		if err != nil {
			return fmt.Errorf("invalid postgres settings: %w", err)
		}
		if err := storage.Migrate(cfg.Migrations.Dir, migrationURL, log); err != nil {
			return err
		}
	}

	connStr, err := utils.GenerateConnectionString(cfg.DSN())
	if err != nil {
		return fmt.Errorf("invalid postgres settings: %w", err)
	}
	a.Storage, err = storage.NewPostgresStorage(ctx, connStr)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, a.Storage.Close)
	log.Info("Хранилище инициализировано", "host", cfg.Postgres.Host, "db", cfg.Postgres.DBName)

	if cfg.Redis.Enabled {
		a.Cache, err = cache.NewRedisCache(ctx, cache.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Cache.Close)
		log.Info("Кэш инициализирован")
	}

	var events services.EventPublisher
	if cfg.Kafka.Enabled {
		a.Broker, err = messaging.NewKafkaMessaging(messaging.KafkaConfig{
			Brokers:     cfg.Kafka.Brokers,
			GroupID:     cfg.Kafka.GroupID,
			ClientID:    cfg.Kafka.ClientID,
			PollTimeout: cfg.Kafka.PollTimeout,
		}, log)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, a.Broker.Close)
		a.Publisher = messaging.NewPublisher(a.Broker, messaging.Topics{
			Events:   cfg.Kafka.EventsTopic,
			Commands: cfg.Kafka.CommandsTopic,
		})
		events = a.Publisher
		log.Info("Система обмена сообщениями инициализирована")
	}

	var locker services.AccountLocker
	switch cfg.Sync.LockBackend {
	case "redis":
		locker = lock.NewRedisLocker(a.Cache, cfg.Sync.LockTTL, log)
	default:
		locker = lock.NewMemoryLocker()
	}

	client := marketplace.NewClient(marketplace.Config{
		BaseURL:        cfg.Marketplace.BaseURL,
		Integration:    cfg.Marketplace.Integration,
		Timeout:        cfg.Marketplace.Timeout,
		MaxAttempts:    cfg.Marketplace.MaxAttempts,
		InitialBackoff: cfg.Marketplace.InitialBackoff,
		MaxBackoff:     cfg.Marketplace.MaxBackoff,
		RateLimit:      cfg.Marketplace.RateLimit,
		RateBurst:      cfg.Marketplace.RateBurst,
	}, log)

	txManager := tx.NewTxManager(a.Storage.Pool(), log)
	fetcher := services.NewFetchService(services.FetchConfig{
		PageSize:    cfg.Sync.PageSize,
		Concurrency: cfg.Sync.Concurrency,
		LimitPages:  cfg.Sync.LimitPages,
	}, log)
	reconciler := services.NewReconcileService(a.Storage, a.Storage, a.Storage, txManager, log)

	a.Sync = services.NewSyncService(
		a.Storage,
		services.NewSyncGate(a.Storage),
		locker,
		fetcher,
		reconciler,
		client,
		events,
		services.SyncConfig{OrderWindow: cfg.Sync.OrderWindow, RunTimeout: cfg.Sync.RunTimeout},
		log,
	)
	a.Claims = services.NewClaimService(a.Storage, a.Storage, client, events, log)
	a.Catalog = services.NewCatalogService(a.Storage, log)

	return nil
}

// Resources ресурсы плановой синхронизации
func (a *App) Resources() []models.Resource {
	out := make([]models.Resource, 0, len(a.Config.Sync.Resources))
	for _, r := range a.Config.Sync.Resources {
		out = append(out, models.Resource(r))
	}
	return out
}

// HealthChecks проверки доступности подключенных зависимостей
func (a *App) HealthChecks() map[string]func(ctx context.Context) error {
	checks := map[string]func(ctx context.Context) error{
		"postgres": a.Storage.Ping,
	}
	if p, ok := a.Cache.(pinger); ok {
		checks["redis"] = p.Ping
	}
	return checks
}

// Close закрывает соединения в обратном порядке
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Error("Ошибка при закрытии соединения", "error", err.Error())
		}
	}
	a.closers = nil
}
