// Package storage хранилище PostgreSQL для аккаунтов, каталога, заказов и возвратов.
// Методы чтения возвращают nil, nil, если запись не найдена.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/athebyme/gomarket-sync/pkg/interfaces"
	"github.com/athebyme/gomarket-sync/pkg/tx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStorage реализует репозитории сервисов синхронизации
type PostgresStorage struct {
	pool *pgxpool.Pool
}

var _ interfaces.StoragePort = (*PostgresStorage)(nil)

// NewPostgresStorage создает пул подключений и хранилище
func NewPostgresStorage(ctx context.Context, connectionString string) (*PostgresStorage, error) {
	pool, err := pgxpool.New(ctx, connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return NewPostgresStorageWithPool(ctx, pool)
}

// NewPostgresStorageWithPool создает хранилище поверх готового пула
func NewPostgresStorageWithPool(ctx context.Context, pool *pgxpool.Pool) (*PostgresStorage, error) {
	if pool == nil {
		return nil, errors.New("pool is nil")
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	return &PostgresStorage{pool: pool}, nil
}

// Pool возвращает пул для менеджера транзакций
func (r *PostgresStorage) Pool() *pgxpool.Pool {
	return r.pool
}

func (r *PostgresStorage) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close закрывает соединение с БД
func (r *PostgresStorage) Close() error {
	r.pool.Close()
	return nil
}

type executor interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// getExecutor возвращает транзакцию из контекста или пул
func (r *PostgresStorage) getExecutor(ctx context.Context) executor {
	if t, ok := tx.GetTxFromContext(ctx); ok {
		return t
	}
	return r.pool
}

// noRows true, если запрос ничего не нашел
func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
