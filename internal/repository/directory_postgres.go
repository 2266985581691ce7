package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/support-desk/internal/domain"
)

type pgUserDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresUserDirectory reads user summaries from the identity provider's users table.
func NewPostgresUserDirectory(pool *pgxpool.Pool) UserDirectory {
	return &pgUserDirectory{pool: pool}
}

func (d *pgUserDirectory) FindUsers(ctx context.Context, ids []string) (map[string]domain.UserSummary, error) {
	ids = uniqueIDs(ids)
	out := make(map[string]domain.UserSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const query = `
        SELECT id::text, username, COALESCE(first_name, ''), COALESCE(last_name, ''), email
        FROM users WHERE id::text = ANY($1)`
	rows, err := d.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u domain.UserSummary
		if err := rows.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, rows.Err()
}

type pgOrderDirectory struct {
	pool *pgxpool.Pool
}

// NewPostgresOrderDirectory reads order summaries from the orders table.
func NewPostgresOrderDirectory(pool *pgxpool.Pool) OrderDirectory {
	return &pgOrderDirectory{pool: pool}
}

func (d *pgOrderDirectory) FindOrders(ctx context.Context, ids []string) (map[string]domain.OrderSummary, error) {
	ids = uniqueIDs(ids)
	out := make(map[string]domain.OrderSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const query = `
        SELECT id::text, COALESCE(order_number, ''), status, total_amount::float8, COALESCE(currency, ''), created_at
        FROM orders WHERE id::text = ANY($1)`
	rows, err := d.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var o domain.OrderSummary
		if err := rows.Scan(&o.ID, &o.OrderNumber, &o.Status, &o.TotalAmount, &o.Currency, &o.CreatedAt); err != nil {
			return nil, err
		}
		out[o.ID] = o
	}
	return out, rows.Err()
}
