package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/athebyme/gomarket-sync/config"
	"github.com/athebyme/gomarket-sync/internal/adapters/logger"
	"github.com/athebyme/gomarket-sync/internal/api"
	"github.com/athebyme/gomarket-sync/internal/app"
	"github.com/athebyme/gomarket-sync/internal/security"
	"github.com/athebyme/gomarket-sync/pkg/auth"
)

// @title gomarket-sync API
// @version 1.0
// @description Синхронизация и сверка данных аккаунта маркетплейса
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		fmt.Printf("Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log, err := logger.NewZapLogger(cfg.LogLevel, cfg.ENV == "production")
	if err != nil {
		fmt.Printf("Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Инициализация сервиса",
		"app_name", cfg.AppName,
		"version", cfg.Version,
		"env", cfg.ENV,
	)

	application, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("Ошибка инициализации зависимостей", "error", err.Error())
	}
	defer application.Close()

	deps := api.Dependencies{
		Sync:    application.Sync,
		Claims:  application.Claims,
		Catalog: application.Catalog,
		Cache:   application.Cache,
		Health:  application.HealthChecks(),
		Logger:  log,
	}
	if application.Publisher != nil {
		deps.SyncQueue = application.Publisher
	}

	if cfg.Keycloak.Enabled {
		keycloakClient, err := auth.NewKeycloakClient(ctx, cfg.Keycloak.GetKeycloakConfig())
		if err != nil {
			log.Fatal("Ошибка инициализации Keycloak", "error", err.Error())
		}
		deps.Auth = keycloakClient
		deps.OAuth = keycloakClient
		log.Info("Аутентификация через Keycloak", "realm", cfg.Keycloak.Realm)
	} else {
		jwtManager, err := security.NewJWTManager([]byte(cfg.Security.JWTSecret), cfg.Security.JWTExpiration, cfg.Security.JWTIssuer)
		if err != nil {
			log.Fatal("Ошибка инициализации JWT", "error", err.Error())
		}
		deps.Auth = jwtManager
		log.Info("Аутентификация по локальным JWT")
	}

	router := api.SetupRouter(deps, api.Options{
		CORSAllowedOrigins: cfg.Security.CORSAllowOrigins,
		RequestTimeout:     cfg.Server.RequestTimeout,
		RateLimit:          cfg.Server.RateLimit,
		RateBurst:          cfg.Server.RateBurst,
		ReasonsCacheTTL:    cfg.Cache.ReasonsTTL,
		SwaggerEnabled:     cfg.Server.SwaggerEnabled,
	})
	log.Info("Маршрутизатор настроен")

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Сервер запущен", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info("Получен сигнал завершения, выполняется graceful shutdown")
	case err := <-errCh:
		log.Error("Ошибка запуска сервера", "error", err.Error())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Ошибка при graceful shutdown", "error", err.Error())
	}
	log.Info("HTTP сервер остановлен")
}
