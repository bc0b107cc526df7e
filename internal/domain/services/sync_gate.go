package services

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
)

// SyncGate проверяет право аккаунта на синхронизацию.
// Результат не кэшируется: подписка может измениться между вызовами
type SyncGate struct {
	accounts AccountRepository
}

// NewSyncGate создает шлюз синхронизации
func NewSyncGate(accounts AccountRepository) *SyncGate {
	return &SyncGate{accounts: accounts}
}

// CheckEntitlement разрешает синхронизацию только аккаунтам с активной подпиской
func (g *SyncGate) CheckEntitlement(ctx context.Context, accountID string) (models.EntitlementDecision, error) {
	account, err := g.accounts.GetAccount(ctx, accountID)
	if err != nil {
		return models.EntitlementDecision{}, fmt.Errorf("failed to get account: %w", err)
	}
	return Entitlement(account), nil
}

// Entitlement вычисляет решение по уже загруженному аккаунту
func Entitlement(account *models.Account) models.EntitlementDecision {
	if account == nil {
		return models.EntitlementDecision{Allowed: false, Reason: "account not found"}
	}
	if account.SubscriptionStatus != models.SubscriptionActive {
		status := string(account.SubscriptionStatus)
		if status == "" {
			status = "none"
		}
		return models.EntitlementDecision{Allowed: false, Reason: "subscription is " + status}
	}
	return models.EntitlementDecision{Allowed: true}
}
