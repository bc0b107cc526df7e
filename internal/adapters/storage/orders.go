package storage

import (
	"context"
	"fmt"

	"github.com/athebyme/gomarket-sync/internal/domain/models"
	"github.com/jackc/pgx/v5"
)

const orderColumns = `
	id, account_id, order_number, customer_id, customer_name, shipment_address, invoice_address,
	total_price, currency, status, ordered_at, lines, created_at, updated_at`

func scanOrder(row pgx.Row) (*models.Order, error) {
	var o models.Order
	err := row.Scan(
		&o.ID, &o.AccountID, &o.OrderNumber, &o.CustomerID, &o.CustomerName, &o.ShipmentAddress, &o.InvoiceAddress,
		&o.TotalPrice, &o.Currency, &o.Status, &o.OrderedAt, &o.Lines, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.OrderedAt = o.OrderedAt.UTC()
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

// GetOrder получает заказ по номеру
func (r *PostgresStorage) GetOrder(ctx context.Context, accountID, orderNumber string) (*models.Order, error) {
	query := `SELECT ` + orderColumns + `
		FROM marketplace.orders
		WHERE account_id = $1 AND order_number = $2
	`

	o, err := scanOrder(r.getExecutor(ctx).QueryRow(ctx, query, accountID, orderNumber))
	if err != nil {
		if noRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return o, nil
}

// UpsertOrder сохраняет заказ. Позиции и адреса хранятся в jsonb
func (r *PostgresStorage) UpsertOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	query := `
		INSERT INTO marketplace.orders (` + orderColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (account_id, order_number)
		DO UPDATE SET
			customer_id = EXCLUDED.customer_id,
			customer_name = EXCLUDED.customer_name,
			shipment_address = EXCLUDED.shipment_address,
			invoice_address = EXCLUDED.invoice_address,
			total_price = EXCLUDED.total_price,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			ordered_at = EXCLUDED.ordered_at,
			lines = EXCLUDED.lines,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + orderColumns

	lines := order.Lines
	if lines == nil {
		lines = []models.OrderLine{}
	}

	saved, err := scanOrder(r.getExecutor(ctx).QueryRow(ctx, query,
		order.ID, order.AccountID, order.OrderNumber, order.CustomerID, order.CustomerName,
		order.ShipmentAddress, order.InvoiceAddress, order.TotalPrice, order.Currency, string(order.Status),
		order.OrderedAt, lines, order.CreatedAt, order.UpdatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert order: %w", err)
	}
	return saved, nil
}

// AppendStatusHistory добавляет запись истории статусов
func (r *PostgresStorage) AppendStatusHistory(ctx context.Context, entry *models.OrderStatusHistoryEntry) error {
	_, err := r.getExecutor(ctx).Exec(ctx, `
		INSERT INTO marketplace.order_status_history (id, order_id, status, observed_at)
		VALUES ($1, $2, $3, $4)
	`, entry.ID, entry.OrderID, string(entry.Status), entry.ObservedAt)
	if err != nil {
		return fmt.Errorf("failed to append status history: %w", err)
	}
	return nil
}

// ListStatusHistory возвращает историю статусов по времени наблюдения
func (r *PostgresStorage) ListStatusHistory(ctx context.Context, orderID string) ([]models.OrderStatusHistoryEntry, error) {
	rows, err := r.getExecutor(ctx).Query(ctx, `
		SELECT id, order_id, status, observed_at
		FROM marketplace.order_status_history
		WHERE order_id = $1
		ORDER BY observed_at, seq
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list status history: %w", err)
	}
	defer rows.Close()

	history := []models.OrderStatusHistoryEntry{}
	for rows.Next() {
		var e models.OrderStatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan status history row: %w", err)
		}
		e.ObservedAt = e.ObservedAt.UTC()
		history = append(history, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate status history: %w", err)
	}
	return history, nil
}
