// Package errors содержит типизированные ошибки платформы.
//
// Ошибка создается один раз на границе (клиент маркетплейса, сервис заявок, шлюз синхронизации)
// и дальше передается как есть: вызывающий код различает ситуации по Kind, а не по тексту.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Kind определяет категорию ошибки
type Kind string

const (
	KindAuthentication         Kind = "authentication_failure"
	KindRateLimited            Kind = "rate_limited"
	KindTimeout                Kind = "timeout"
	KindValidation             Kind = "validation_failure"
	KindInvalidStateTransition Kind = "invalid_state_transition"
	KindEntitlementDenied      Kind = "entitlement_denied"
	KindSyncInProgress         Kind = "sync_in_progress"
	KindNotFound               Kind = "not_found"
	KindUnavailable            Kind = "unavailable"
	KindInternal               Kind = "internal"
)

var (
	// ErrCacheMiss возвращается кэшем, если ключ не найден
	ErrCacheMiss = stderrors.New("cache miss")

	// ErrLockNotHeld возвращается при попытке освободить чужую блокировку
	ErrLockNotHeld = stderrors.New("lock not held")
)

// Error типизированная ошибка с категорией и HTTP-кодом
type Error struct {
	Kind       Kind
	StatusCode int    // HTTP-статус внешней системы, 0 если ответа не было
	Op         string // операция, в которой возникла ошибка
	Message    string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%s, status %d)", msg, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("%s (%s)", msg, e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable сообщает, имеет ли смысл повторять операцию
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindUnavailable:
		return true
	default:
		return false
	}
}

// New создает ошибку указанной категории
func New(kind Kind, op, message string) *Error {
	return &Error{Kind: kind, Op: op, Message: message}
}

// Newf создает ошибку с форматированным сообщением
func Newf(kind Kind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Wrap оборачивает err в ошибку указанной категории
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// FromHTTPStatus переводит HTTP-статус ответа внешней системы в типизированную ошибку
func FromHTTPStatus(op string, status int, body string) *Error {
	return &Error{
		Kind:       KindFromStatus(status),
		StatusCode: status,
		Op:         op,
		Message:    body,
	}
}

// KindFromStatus определяет категорию ошибки по HTTP-статусу
func KindFromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return KindAuthentication
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindInvalidStateTransition
	case status >= 500:
		return KindUnavailable
	default:
		return KindInternal
	}
}

// As извлекает *Error из цепочки ошибок
func As(err error) (*Error, bool) {
	var e *Error
	if stderrors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf возвращает категорию ошибки, KindInternal для нетипизированных
func KindOf(err error) Kind {
	if e, ok := As(err); ok {
		return e.Kind
	}
	return KindInternal
}

// IsKind проверяет категорию ошибки
func IsKind(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// IsRetryable сообщает, можно ли повторить операцию, завершившуюся ошибкой err
func IsRetryable(err error) bool {
	if e, ok := As(err); ok {
		return e.Retryable()
	}
	return false
}

// HTTPStatus возвращает HTTP-статус, которым ошибка отдается клиентам нашего API
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		// ключи маркетплейса отклонены; 401 остается за токеном самого клиента
		return http.StatusFailedDependency
	case KindEntitlementDenied:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidStateTransition, KindSyncInProgress:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
