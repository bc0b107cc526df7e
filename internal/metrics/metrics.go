// Package metrics содержит метрики Prometheus сервиса синхронизации
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gomarket_sync"

var (
	// HTTP API
	HTTPDurations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "durations_seconds",
		Help:      "Длительность HTTP запросов",
		Buckets:   prometheus.DefBuckets,
	}, []string{"path", "method", "status"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Общее количество HTTP запросов",
	}, []string{"path", "method", "status"})

	HTTPActiveRequests = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "active_requests",
		Help:      "Количество активных HTTP запросов",
	})

	// Клиент маркетплейса
	MarketplaceRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "marketplace_client",
		Name:      "requests_total",
		Help:      "Количество запросов к API маркетплейса",
	}, []string{"operation", "status_code"})

	MarketplaceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "marketplace_client",
		Name:      "request_duration_seconds",
		Help:      "Длительность запросов к API маркетплейса",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"operation"})

	MarketplaceRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "marketplace_client",
		Name:      "retries_total",
		Help:      "Количество повторных запросов к API маркетплейса",
	}, []string{"operation", "kind"})

	// Синхронизация
	SyncRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "runs_total",
		Help:      "Количество запусков синхронизации по результату",
	}, []string{"resource", "status"})

	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "duration_seconds",
		Help:      "Длительность запуска синхронизации",
		Buckets:   []float64{0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"resource"})

	SyncRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "records_total",
		Help:      "Количество записей по решению сверки",
	}, []string{"resource", "outcome"})

	SyncFailedPages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "failed_pages_total",
		Help:      "Количество страниц, не полученных после повторов",
	}, []string{"resource"})

	SyncInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "runs_in_flight",
		Help:      "Количество выполняющихся запусков синхронизации",
	})

	// Заявки на возврат
	ClaimTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "claims",
		Name:      "transitions_total",
		Help:      "Количество операций над позициями возврата",
	}, []string{"action", "status"})

	// Кэш
	CacheOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "cache",
		Name:      "operations_total",
		Help:      "Количество операций с кэшем",
	}, []string{"operation", "status"})
)
