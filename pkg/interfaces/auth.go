package interfaces

import (
	"context"
)

// Identity описывает аутентифицированного пользователя
type Identity struct {
	UserID    string
	AccountID string // аккаунт продавца, от имени которого выполняются операции
	Roles     []string
}

// HasRole проверяет наличие роли у пользователя
func (i *Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// AuthPort определяет интерфейс проверки токенов доступа к API
// Реализуется клиентом Keycloak и локальным JWT-менеджером
type AuthPort interface {
	// Authenticate проверяет токен и возвращает данные пользователя
	Authenticate(ctx context.Context, token string) (*Identity, error)
}
