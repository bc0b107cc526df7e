package interfaces

import (
	"context"
	"time"
)

// Message представляет сообщение, полученное из брокера
type Message struct {
	ID          string            `json:"id"`
	Topic       string            `json:"topic"`
	Key         string            `json:"key"`
	Value       []byte            `json:"value"`
	Headers     map[string]string `json:"headers"`
	TenantID    string            `json:"tenant_id"` // ID аккаунта, берется из заголовка tenant_id
	PublishedAt time.Time         `json:"published_at"`
}

// MessageHandler определяет функцию обработчика сообщений
type MessageHandler func(ctx context.Context, msg *Message) error

// MessagingPort определяет интерфейс брокера сообщений
// Через него публикуются события синхронизации и заявок, а воркер получает команды
type MessagingPort interface {
	// Publish публикует сообщение в топик
	Publish(ctx context.Context, topic string, message []byte) error

	// PublishWithKey публикует сообщение с ключом партиционирования
	// Сообщения одного аккаунта публикуются с его ID в качестве ключа и сохраняют порядок
	PublishWithKey(ctx context.Context, topic, key string, message []byte) error

	// Subscribe подписывается на топик, возвращает функцию отписки
	Subscribe(ctx context.Context, topic string, handler MessageHandler) (func() error, error)

	// Close закрывает соединения с брокером
	Close() error
}
