package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/athebyme/gomarket-sync/internal/metrics"
	"github.com/athebyme/gomarket-sync/pkg/errors"
	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// снимает блокировку, только если она все еще принадлежит нам
var unlockScript = redis.NewScript(`
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`)

// RedisConfig параметры подключения к Redis
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

type RedisCache struct {
	client *redis.Client

	// токены захваченных блокировок: ключ -> значение, записанное через SET NX
	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisCache(ctx context.Context, cfg RedisConfig) (interfaces.CachePort, error) {
	poolSize := cfg.PoolSize
	if poolSize <= 0 {
		poolSize = 10
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     poolSize,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisCacheWithClient(client), nil
}

// NewRedisCacheWithClient оборачивает уже созданный клиент
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, tokens: make(map[string]string)}
}

func (r *RedisCache) buildKey(key, tenantID string) string {
	if tenantID != "" {
		return fmt.Sprintf("tenant:%s:%s", tenantID, key)
	}
	return key
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			metrics.CacheOperations.WithLabelValues("get", "miss").Inc()
			return nil, errors.ErrCacheMiss
		}
		metrics.CacheOperations.WithLabelValues("get", "error").Inc()
		return nil, err
	}
	metrics.CacheOperations.WithLabelValues("get", "hit").Inc()
	return val, nil
}

func (r *RedisCache) GetWithTenant(ctx context.Context, key string, tenantID string) ([]byte, error) {
	return r.Get(ctx, r.buildKey(key, tenantID))
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	if err := r.client.Set(ctx, key, value, expiration).Err(); err != nil {
		metrics.CacheOperations.WithLabelValues("set", "error").Inc()
		return err
	}
	metrics.CacheOperations.WithLabelValues("set", "ok").Inc()
	return nil
}

func (r *RedisCache) SetWithTenant(ctx context.Context, key string, value []byte, tenantID string, expiration time.Duration) error {
	return r.Set(ctx, r.buildKey(key, tenantID), value, expiration)
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

func (r *RedisCache) DeleteWithTenant(ctx context.Context, key string, tenantID string) error {
	return r.Delete(ctx, r.buildKey(key, tenantID))
}

func (r *RedisCache) lockKey(key string) string {
	return "lock:" + key
}

// Lock захватывает блокировку через SET NX PX со случайным токеном
func (r *RedisCache) Lock(ctx context.Context, key string, expiration time.Duration) (bool, error) {
	lockKey := r.lockKey(key)
	token := uuid.New().String()

	ok, err := r.client.SetNX(ctx, lockKey, token, expiration).Result()
	if err != nil {
		metrics.CacheOperations.WithLabelValues("lock", "error").Inc()
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	if !ok {
		metrics.CacheOperations.WithLabelValues("lock", "busy").Inc()
		return false, nil
	}

	r.mu.Lock()
	r.tokens[lockKey] = token
	r.mu.Unlock()

	metrics.CacheOperations.WithLabelValues("lock", "ok").Inc()
	return true, nil
}

func (r *RedisCache) LockWithTenant(ctx context.Context, key string, tenantID string, expiration time.Duration) (bool, error) {
	return r.Lock(ctx, r.buildKey(key, tenantID), expiration)
}

// Unlock снимает блокировку, захваченную этим экземпляром.
// Если блокировка истекла и ее занял другой процесс, возвращает ErrLockNotHeld
func (r *RedisCache) Unlock(ctx context.Context, key string) error {
	lockKey := r.lockKey(key)

	r.mu.Lock()
	token, ok := r.tokens[lockKey]
	delete(r.tokens, lockKey)
	r.mu.Unlock()

	if !ok {
		return errors.ErrLockNotHeld
	}

	released, err := unlockScript.Run(ctx, r.client, []string{lockKey}, token).Int64()
	if err != nil {
		metrics.CacheOperations.WithLabelValues("unlock", "error").Inc()
		return fmt.Errorf("failed to release lock %s: %w", key, err)
	}
	if released == 0 {
		metrics.CacheOperations.WithLabelValues("unlock", "not_held").Inc()
		return errors.ErrLockNotHeld
	}

	metrics.CacheOperations.WithLabelValues("unlock", "ok").Inc()
	return nil
}

func (r *RedisCache) UnlockWithTenant(ctx context.Context, key string, tenantID string) error {
	return r.Unlock(ctx, r.buildKey(key, tenantID))
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
