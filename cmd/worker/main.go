package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-sync/config"
	"github.com/athebyme/gomarket-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-sync/internal/app"
	"github.com/athebyme/gomarket-sync/internal/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Ошибка инициализации зависимостей", "error", err.Error())
	}
	defer application.Close()

	// при наличии брокера планировщик только ставит команды в очередь
	var queue worker.SyncRequester
	if application.Publisher != nil {
		queue = application.Publisher
	}

	w := worker.New(application.Sync, queue, worker.Config{
		Resources:   application.Resources(),
		Interval:    cfg.Sync.ScheduleInterval,
		Concurrency: cfg.Sync.Concurrency,
	}, log)

	if application.Broker != nil {
		unsubscribe, err := application.Broker.Subscribe(ctx, cfg.Kafka.CommandsTopic, w.HandleCommand)
		if err != nil {
			log.Fatal("Ошибка подписки на команды", "topic", cfg.Kafka.CommandsTopic, "error", err.Error())
		}
		defer unsubscribe()
		log.Info("Воркер слушает команды", "topic", cfg.Kafka.CommandsTopic)
	} else if cfg.Sync.ScheduleInterval <= 0 {
		log.Warn("Kafka и планировщик выключены, воркеру нечего делать")
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Ошибка сервера метрик", "error", err.Error())
			}
		}()
	}

	log.Info("Воркер запущен", "schedule_interval", cfg.Sync.ScheduleInterval.String())
	w.RunScheduler(ctx)
	<-ctx.Done()

	log.Info("Получен сигнал завершения")
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Error("Ошибка остановки сервера метрик", "error", err.Error())
		}
	}
	log.Info("Воркер остановлен")
}
