package storage

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/jackc/pgx/v5"
)

const claimColumns = `id, account_id, external_id, order_number, claimed_at, items, created_at, updated_at`

func scanClaim(row pgx.Row) (*models.Claim, error) {
	var c models.Claim
	err := row.Scan(&c.ID, &c.AccountID, &c.ExternalID, &c.OrderNumber, &c.ClaimedAt, &c.Items, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.ClaimedAt = c.ClaimedAt.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

// GetClaim получает заявку на возврат по внешнему ID
func (r *PostgresStorage) GetClaim(ctx context.Context, accountID, externalID string) (*models.Claim, error) {
	query := `SELECT ` + claimColumns + `
		FROM marketplace.claims
		WHERE account_id = $1 AND external_id = $2
	`

	c, err := scanClaim(r.getExecutor(ctx).QueryRow(ctx, query, accountID, externalID))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get claim: %w", err)
	}
	return c, nil
}

// UpsertClaim сохраняет заявку. Позиции хранятся в jsonb
func (r *PostgresStorage) UpsertClaim(ctx context.Context, claim *models.Claim) (*models.Claim, error) {
	query := `
		INSERT INTO marketplace.claims (` + claimColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (account_id, external_id)
		DO UPDATE SET
			order_number = EXCLUDED.order_number,
			claimed_at = EXCLUDED.claimed_at,
			items = EXCLUDED.items,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + claimColumns

	items := claim.Items
	if items == nil {
		items = []models.ClaimItem{}
	}

	saved, err := scanClaim(r.getExecutor(ctx).QueryRow(ctx, query,
		claim.ID, claim.AccountID, claim.ExternalID, claim.OrderNumber, claim.ClaimedAt, items,
		claim.CreatedAt, claim.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert claim: %w", err)
	}
	return saved, nil
}
