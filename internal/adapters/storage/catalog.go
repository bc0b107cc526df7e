package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/athebyme/gomarket-sync/pkg/utils"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const catalogColumns = `
	id, account_id, external_id, barcode, stock_code, title, brand, brand_id,
	category_id, category_name, sale_price, list_price, quantity, status, cost_price,
	created_at, updated_at`

func scanCatalogItem(row pgx.Row) (*models.CatalogItem, error) {
	var (
		p    models.CatalogItem
		cost decimal.NullDecimal
	)
	err := row.Scan(
		&p.ID, &p.AccountID, &p.ExternalID, &p.Barcode, &p.StockCode, &p.Title, &p.Brand, &p.BrandID,
		&p.CategoryID, &p.CategoryName, &p.SalePrice, &p.ListPrice, &p.Quantity, &p.Status, &cost,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if cost.Valid {
		p.CostPrice = &cost.Decimal
	}
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return &p, nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}

// GetProduct получает товар по внешнему ID
func (r *PostgresStorage) GetProduct(ctx context.Context, accountID, externalID string) (*models.CatalogItem, error) {
	query := `SELECT ` + catalogColumns + `
		FROM marketplace.catalog_items
		WHERE account_id = $1 AND external_id = $2
	`

	p, err := scanCatalogItem(r.getExecutor(ctx).QueryRow(ctx, query, accountID, externalID))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// UpsertProduct сохраняет товар. При конфликте cost_price, id и created_at не меняются
func (r *PostgresStorage) UpsertProduct(ctx context.Context, item *models.CatalogItem) (*models.CatalogItem, error) {
	query := `
		INSERT INTO marketplace.catalog_items (` + catalogColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (account_id, external_id)
		DO UPDATE SET
			barcode = EXCLUDED.barcode,
			stock_code = EXCLUDED.stock_code,
			title = EXCLUDED.title,
			brand = EXCLUDED.brand,
			brand_id = EXCLUDED.brand_id,
			category_id = EXCLUDED.category_id,
			category_name = EXCLUDED.category_name,
			sale_price = EXCLUDED.sale_price,
			list_price = EXCLUDED.list_price,
			quantity = EXCLUDED.quantity,
			status = EXCLUDED.status,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + catalogColumns

	saved, err := scanCatalogItem(r.getExecutor(ctx).QueryRow(ctx, query,
		item.ID, item.AccountID, item.ExternalID, item.Barcode, item.StockCode, item.Title, item.Brand, item.BrandID,
		item.CategoryID, item.CategoryName, item.SalePrice, item.ListPrice, item.Quantity, string(item.Status),
		nullDecimal(item.CostPrice), item.CreatedAt, item.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert product: %w", err)
	}
	return saved, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// catalogWhere строит условие выборки каталога с позиционными параметрами
func catalogWhere(accountID string, f models.CatalogFilter) (string, []interface{}) {
	conds := []string{"account_id = $1"}
	args := []interface{}{accountID}

	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		args = append(args, statuses)
		conds = append(conds, fmt.Sprintf("status = ANY($%d)", len(args)))
	}

	if f.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(title ILIKE $%d OR barcode ILIKE $%d OR stock_code ILIKE $%d)", n, n, n))
	}

	if f.HasCostPrice != nil {
		if *f.HasCostPrice {
			conds = append(conds, "cost_price IS NOT NULL")
		} else {
			conds = append(conds, "cost_price IS NULL")
		}
	}

	return strings.Join(conds, " AND "), args
}

// ListProducts возвращает страницу товаров аккаунта и общее количество подходящих под фильтр
func (r *PostgresStorage) ListProducts(ctx context.Context, accountID string, filter models.CatalogFilter, page utils.Pagination) ([]models.CatalogItem, int64, error) {
	executor := r.getExecutor(ctx)
	where, args := catalogWhere(accountID, filter)

	var total int64
	if err := executor.QueryRow(ctx,
		`SELECT COUNT(*) FROM marketplace.catalog_items WHERE `+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}
	if total == 0 {
		return []models.CatalogItem{}, 0, nil
	}

	query := fmt.Sprintf(`SELECT %s
		FROM marketplace.catalog_items
		WHERE %s
		ORDER BY external_id
		LIMIT $%d OFFSET $%d
	`, catalogColumns, where, len(args)+1, len(args)+2)
	args = append(args, page.PageSize, page.Offset())

	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	items := make([]models.CatalogItem, 0, page.PageSize)
	for rows.Next() {
		p, err := scanCatalogItem(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan product row: %w", err)
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate products: %w", err)
	}
	return items, total, nil
}

// SetCostPrice задает себестоимость товара
func (r *PostgresStorage) SetCostPrice(ctx context.Context, accountID, externalID string, cost *decimal.Decimal) (bool, error) {
	tag, err := r.getExecutor(ctx).Exec(ctx, `
		UPDATE marketplace.catalog_items
		SET cost_price = $3
		WHERE account_id = $1 AND external_id = $2
	`, accountID, externalID, nullDecimal(cost))
	if err != nil {
		return false, fmt.Errorf("failed to set cost price: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
