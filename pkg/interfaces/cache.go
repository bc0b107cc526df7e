package interfaces

import (
	"context"
	"time"
)

// CachePort определяет интерфейс для работы с системой кэширования
// Используется для кэша справочников маркетплейса и распределенных блокировок синхронизации
type CachePort interface {
	// Get получает значение из кэша по ключу
	// Возвращает errors.ErrCacheMiss, если значение не найдено
	Get(ctx context.Context, key string) ([]byte, error)

	// GetWithTenant получает значение из кэша с учетом ID аккаунта
	GetWithTenant(ctx context.Context, key string, tenantID string) ([]byte, error)

	// Set сохраняет значение в кэше с указанным сроком действия
	// Если expiration равно 0, срок действия не устанавливается
	Set(ctx context.Context, key string, value []byte, expiration time.Duration) error

	// SetWithTenant сохраняет значение в кэше с учетом ID аккаунта
	SetWithTenant(ctx context.Context, key string, value []byte, tenantID string, expiration time.Duration) error

	// Delete удаляет значение из кэша по ключу
	Delete(ctx context.Context, key string) error

	// DeleteWithTenant удаляет значение из кэша с учетом ID аккаунта
	DeleteWithTenant(ctx context.Context, key string, tenantID string) error

	// Lock пытается получить блокировку с указанным ключом
	// Возвращает true, если блокировка получена. Блокировка снимается по истечении expiration
	Lock(ctx context.Context, key string, expiration time.Duration) (bool, error)

	// LockWithTenant пытается получить блокировку с учетом ID аккаунта
	LockWithTenant(ctx context.Context, key string, tenantID string, expiration time.Duration) (bool, error)

	// Unlock освобождает блокировку, если она принадлежит этому экземпляру
	Unlock(ctx context.Context, key string) error

	// UnlockWithTenant освобождает блокировку с учетом ID аккаунта
	UnlockWithTenant(ctx context.Context, key string, tenantID string) error

	// Close закрывает соединение с системой кэширования
	Close() error
}
