package storage

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
)

// GetAccount получает аккаунт вместе с ключами API
func (r *PostgresStorage) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	query := `
		SELECT id, name, subscription_status, seller_id, api_key, api_secret, created_at, updated_at
		FROM marketplace.accounts
		WHERE id = $1
	`

	var a models.Account
	err := r.getExecutor(ctx).QueryRow(ctx, query, accountID).Scan(
		&a.ID, &a.Name, &a.SubscriptionStatus,
		&a.Credentials.SellerID, &a.Credentials.APIKey, &a.Credentials.APISecret,
		&a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	a.Credentials.AccountID = a.ID
	a.CreatedAt = a.CreatedAt.UTC()
	a.UpdatedAt = a.UpdatedAt.UTC()
	return &a, nil
}

// ListAccountIDsByStatus возвращает ID аккаунтов с указанным статусом подписки
func (r *PostgresStorage) ListAccountIDsByStatus(ctx context.Context, status models.SubscriptionStatus) ([]string, error) {
	query := `
		SELECT id
		FROM marketplace.accounts
		WHERE subscription_status = $1
		ORDER BY id
	`

	rows, err := r.getExecutor(ctx).Query(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan account row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return ids, nil
}
