package interfaces

import (
	"context"
)

// StoragePort определяет интерфейс жизненного цикла постоянного хранилища
// Транзакции управляются через tx.TxManager, репозитории берут транзакцию из контекста
type StoragePort interface {
	// Ping проверяет доступность хранилища
	Ping(ctx context.Context) error

	// Close закрывает соединение с хранилищем
	Close() error
}
