package checkout

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OrderRepo struct{ DB *pgxpool.Pool }

// CreateForInvoice materializes the order exactly once per invoice:
// invoice_id is UNIQUE, so a replayed confirmation falls through to the
// existing row instead of inserting a duplicate.
func (r *OrderRepo) CreateForInvoice(ctx context.Context, inv *Invoice) (*Order, error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	orderID := uuid.NewString()
	ct, err := tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, invoice_id, status, total_cents, payment_secret)
		VALUES ($1, $2, $3, 'paid', $4, $5)
		ON CONFLICT (invoice_id) DO NOTHING`,
		orderID, inv.UserID, inv.ID, inv.TotalCents, inv.ClientSecret)
	if err != nil {
		return nil, err
	}
	if ct.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return r.GetByInvoice(ctx, inv.ID)
	}

	for _, it := range inv.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_items(order_id, product_id, quantity, price_cents)
			VALUES ($1, $2, $3, $4)`,
			orderID, it.ProductID, it.Qty, it.UnitPriceCents)
		if err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return r.Get(ctx, orderID)
}

func (r *OrderRepo) Get(ctx context.Context, id string) (*Order, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *OrderRepo) GetByInvoice(ctx context.Context, invoiceID string) (*Order, error) {
	return r.get(ctx, `WHERE invoice_id = $1`, invoiceID)
}

func (r *OrderRepo) get(ctx context.Context, where string, arg any) (*Order, error) {
	var o Order
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, invoice_id, status, total_cents, COALESCE(payment_secret, ''), created_at
		FROM orders `+where, arg).
		Scan(&o.ID, &o.UserID, &o.InvoiceID, &o.Status, &o.TotalCents, &o.PaymentSecret, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, quantity, price_cents
		FROM order_items WHERE order_id = $1 ORDER BY product_id`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ProductID, &it.Qty, &it.PriceCents); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	return &o, rows.Err()
}

func (r *OrderRepo) GetStatus(ctx context.Context, id string) (OrderStatus, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, id).Scan(&s)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrOrderNotFound
	}
	if err != nil {
		return "", err
	}
	return OrderStatus(s), nil
}
