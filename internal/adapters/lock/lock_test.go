package lock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/athebyme/gomarket-sync/internal/adapters/cache"
	"github.com/athebyme/gomarket-sync/internal/adapters/logger"
	apperrors "github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountLocker interface {
	WithAccountLock(ctx context.Context, accountID string, fn func(ctx context.Context) error) error
}

func newRedisLocker(t *testing.T) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLocker(cache.NewRedisCacheWithClient(client), time.Minute, logger.NewNopLogger()), mr
}

func lockers(t *testing.T) map[string]accountLocker {
	redisLocker, _ := newRedisLocker(t)
	return map[string]accountLocker{
		"memory": NewMemoryLocker(),
		"redis":  redisLocker,
	}
}

func TestLocker_SecondRunIsRejected(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var innerErr error
			innerCalled := false

			err := l.WithAccountLock(ctx, "acc-1", func(ctx context.Context) error {
				innerErr = l.WithAccountLock(ctx, "acc-1", func(context.Context) error {
					innerCalled = true
					return nil
				})
				return nil
			})
			require.NoError(t, err)
			assert.False(t, innerCalled)
			assert.True(t, apperrors.IsKind(innerErr, apperrors.KindSyncInProgress))
		})
	}
}

func TestLocker_DifferentAccountsRunInParallel(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			innerCalled := false

			err := l.WithAccountLock(ctx, "acc-1", func(ctx context.Context) error {
				return l.WithAccountLock(ctx, "acc-2", func(context.Context) error {
					innerCalled = true
					return nil
				})
			})
			require.NoError(t, err)
			assert.True(t, innerCalled)
		})
	}
}

func TestLocker_ReleasedAfterError(t *testing.T) {
	for name, l := range lockers(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			boom := errors.New("boom")

			err := l.WithAccountLock(ctx, "acc-1", func(context.Context) error { return boom })
			assert.ErrorIs(t, err, boom)

			err = l.WithAccountLock(ctx, "acc-1", func(context.Context) error { return nil })
			assert.NoError(t, err)
		})
	}
}

func TestRedisLocker_UsesTenantKeyWithTTL(t *testing.T) {
	l, mr := newRedisLocker(t)

	err := l.WithAccountLock(context.Background(), "acc-1", func(context.Context) error {
		assert.True(t, mr.Exists("lock:tenant:acc-1:sync"))
		assert.Equal(t, time.Minute, mr.TTL("lock:tenant:acc-1:sync"))
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists("lock:tenant:acc-1:sync"))
}

func TestRedisLocker_RedisDown(t *testing.T) {
	l, mr := newRedisLocker(t)
	mr.Close()

	called := false
	err := l.WithAccountLock(context.Background(), "acc-1", func(context.Context) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindUnavailable))
	assert.False(t, called)
}
