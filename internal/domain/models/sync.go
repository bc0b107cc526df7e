package models

import "time"

// Resource тип синхронизируемых данных
type Resource string

const (
	ResourceProducts Resource = "products"
	ResourceOrders   Resource = "orders"
	ResourceClaims   Resource = "claims"
)

// Page страница ответа внешнего API
type Page[T any] struct {
	Items         []T
	Page          int
	Size          int
	TotalPages    int
	TotalElements int64
	FetchedAt     time.Time
}

// PageFailure страница, которую не удалось получить после всех повторов
type PageFailure struct {
	Page  int    `json:"page"`
	Error string `json:"error"`
}

// FetchResult результат постраничной выборки
type FetchResult[T any] struct {
	Records       []T
	FailedPages   []PageFailure
	TotalFetched  int
	TotalPages    int
	TotalElements int64
}

// RecordFailure запись, которую не удалось сохранить
type RecordFailure struct {
	ExternalID string `json:"external_id"`
	Error      string `json:"error"`
}

// ReconcileResult итог сверки пачки записей
type ReconcileResult struct {
	Created   int             `json:"created"`
	Updated   int             `json:"updated"`
	Unchanged int             `json:"unchanged"`
	Failed    int             `json:"failed"`
	Failures  []RecordFailure `json:"failures,omitempty"`
}

// Add суммирует результаты
func (r *ReconcileResult) Add(other ReconcileResult) {
	r.Created += other.Created
	r.Updated += other.Updated
	r.Unchanged += other.Unchanged
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
}

// SyncResult итог одного запуска синхронизации. Не сохраняется
type SyncResult struct {
	Resource      Resource        `json:"resource"`
	AccountID     string          `json:"account_id"`
	Created       int             `json:"created"`
	Updated       int             `json:"updated"`
	Unchanged     int             `json:"unchanged"`
	Failed        int             `json:"failed"`
	Failures      []RecordFailure `json:"failures,omitempty"`
	FailedPages   []PageFailure   `json:"failed_pages"`
	TotalObserved int             `json:"total_observed"`
	TotalPages    int             `json:"total_pages"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
}

// EntitlementDecision решение шлюза синхронизации
type EntitlementDecision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

// OrderWindow интервал дат заказов для выборки
type OrderWindow struct {
	Start time.Time
	End   time.Time
}
