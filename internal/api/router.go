package api

import (
	"context"
	"net/http"
	"time"

	_ "github.com/athebyme/gomarket-sync/docs"
	"github.com/athebyme/gomarket-sync/internal/api/handlers"
	"github.com/athebyme/gomarket-sync/internal/api/middleware"
	"github.com/athebyme/gomarket-sync/pkg/auth"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Роли пользователей API
const (
	RoleViewer = "viewer"
	RoleSeller = "seller"
	RoleAdmin  = "admin"
)

// HealthCheck проверка зависимости для /health
type HealthCheck = func(ctx context.Context) error

// Options настройки маршрутизатора
type Options struct {
	CORSAllowedOrigins []string
	RequestTimeout     time.Duration // не применяется к синхронному запуску синхронизации
	RateLimit          float64
	RateBurst          int
	ReasonsCacheTTL    time.Duration
	SwaggerEnabled     bool
}

// Dependencies сервисы, которые обслуживает API
type Dependencies struct {
	Sync      handlers.SyncRunner
	SyncQueue handlers.SyncRequester // nil, если Kafka не настроена
	Claims    handlers.ClaimDecider
	Catalog   handlers.CatalogReader
	Cache     interfaces.CachePort // nil отключает кэш причин отказа
	Auth      interfaces.AuthPort
	OAuth     handlers.OAuthFlow // nil, если вход через Keycloak выключен
	Health    map[string]HealthCheck
	Logger    interfaces.LoggerPort
}

// SetupRouter настраивает маршрутизатор
func SetupRouter(deps Dependencies, opts Options) *chi.Mux {
	r := chi.NewRouter()
	logger := deps.Logger

	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}

	// Глобальные middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recoverer(logger))
	r.Use(middleware.Metrics)
	r.Use(middleware.CORS(opts.CORSAllowedOrigins))
	r.Use(middleware.SecurityHeaders)
	if opts.RateLimit > 0 {
		r.Use(middleware.RateLimit(opts.RateLimit, opts.RateBurst))
	}

	r.Get("/health", healthHandler(deps.Health, logger))
	r.Head("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	r.Handle("/metrics", promhttp.Handler())

	if opts.SwaggerEnabled {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	if deps.OAuth != nil {
		authHandler := handlers.NewAuthHandler(deps.OAuth, logger)
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", authHandler.Login)
			r.Get("/callback", authHandler.Callback)
		})
	}

	syncHandler := handlers.NewSyncHandler(deps.Sync, deps.SyncQueue, logger)
	claimHandler := handlers.NewClaimHandler(deps.Claims, deps.Cache, opts.ReasonsCacheTTL, logger)
	catalogHandler := handlers.NewCatalogHandler(deps.Catalog, logger)

	readers := auth.RequireAnyRole(RoleViewer, RoleSeller, RoleAdmin)
	writers := auth.RequireAnyRole(RoleSeller, RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.AuthMiddleware(deps.Auth, logger))

		// Запуск синхронизации ограничен таймаутом самой синхронизации
		r.With(writers).Post("/sync/{resource}", syncHandler.RunSync)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(opts.RequestTimeout))

			r.With(writers).Get("/connection/test", syncHandler.TestConnection)
			r.With(readers).Get("/orders/{orderNumber}/history", syncHandler.OrderHistory)

			// Маршруты для возвратов
			r.Route("/claims", func(r chi.Router) {
				r.With(readers).Get("/reasons", claimHandler.RejectionReasons)
				r.With(writers).Post("/{claimId}/approve", claimHandler.Approve)
				r.With(writers).Post("/{claimId}/reject", claimHandler.Reject)
			})

			// Маршруты для товаров
			r.Route("/products", func(r chi.Router) {
				r.With(readers).Get("/", catalogHandler.ListProducts)
				r.With(readers).Get("/{externalId}", catalogHandler.GetProduct)
				r.With(writers).Put("/{externalId}/cost-price", catalogHandler.SetCostPrice)
			})
		})
	})

	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck, logger interfaces.LoggerPort) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(checks))}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnWithContext(r.Context(), "Зависимость недоступна", "dependency", name, "error", err.Error())
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}

		render.Status(r, status)
		render.JSON(w, r, resp)
	}
}
