// Package lock реализует блокировку синхронизации аккаунта.
// Второй запуск для занятого аккаунта не ждет, а сразу получает KindSyncInProgress.
package lock

import (
	"context"
	"sync"
	"time"

	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
)

const lockKey = "sync"

func busyError(accountID string) error {
	return apperrors.Newf(apperrors.KindSyncInProgress, "lock account", "sync for account %s already in progress", accountID)
}

// MemoryLocker блокировка в пределах одного процесса
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemoryLocker создает блокировку в памяти
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]struct{})}
}

func (l *MemoryLocker) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, busy := l.held[accountID]; busy {
		l.mu.Unlock()
		return busyError(accountID)
	}
	l.held[accountID] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, accountID)
		l.mu.Unlock()
	}()

	return fn(ctx)
}

// RedisLocker распределенная блокировка поверх кэша.
// ttl должен превышать максимальную длительность запуска
type RedisLocker struct {
	cache  interfaces.CachePort
	ttl    time.Duration
	logger interfaces.LoggerPort
}

// NewRedisLocker создает распределенную блокировку
func NewRedisLocker(cache interfaces.CachePort, ttl time.Duration, logger interfaces.LoggerPort) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLocker{cache: cache, ttl: ttl, logger: logger}
}

func (l *RedisLocker) WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error {
	ok, err := l.cache.LockWithTenant(ctx, lockKey, accountID, l.ttl)
	if err != nil {
		return apperrors.Wrap(apperrors.KindUnavailable, "lock account", err)
	}
	if !ok {
		return busyError(accountID)
	}

	defer func() {
		// снимаем блокировку даже если контекст запроса уже отменен
		if err := l.cache.UnlockWithTenant(context.WithoutCancel(ctx), lockKey, accountID); err != nil {
			l.logger.WarnWithContext(ctx, "Не удалось снять блокировку аккаунта",
				"account_id", accountID,
				"error", err.Error(),
			)
		}
	}()

	return fn(ctx)
}
