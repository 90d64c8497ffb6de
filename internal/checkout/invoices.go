package checkout

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InvoiceRepo struct{ DB *pgxpool.Pool }

// CreateDraft persists the invoice and its line snapshots in one tx.
func (r *InvoiceRepo) CreateDraft(ctx context.Context, inv *Invoice) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO invoices(id, user_id, cart_id, currency, total_cents, status)
		VALUES ($1, $2, $3, $4, $5, 'draft')`,
		inv.ID, inv.UserID, inv.CartID, inv.Currency, inv.TotalCents)
	if err != nil {
		return err
	}
	for _, it := range inv.Items {
		_, err = tx.Exec(ctx, `
			INSERT INTO invoice_items(invoice_id, product_id, name, unit_price_cents, quantity, line_total_cents)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			inv.ID, it.ProductID, it.Name, it.UnitPriceCents, it.Qty, it.LineTotalCents)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *InvoiceRepo) Get(ctx context.Context, id string) (*Invoice, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

// GetByIntent resolves a webhook that only carries the gateway's intent id.
func (r *InvoiceRepo) GetByIntent(ctx context.Context, intentID string) (*Invoice, error) {
	return r.get(ctx, `WHERE payment_intent_id = $1`, intentID)
}

// LatestByCart returns the newest attempt for a cart, for status lookups.
func (r *InvoiceRepo) LatestByCart(ctx context.Context, cartID string) (*Invoice, error) {
	return r.get(ctx, `WHERE cart_id = $1 ORDER BY created_at DESC LIMIT 1`, cartID)
}

func (r *InvoiceRepo) get(ctx context.Context, where string, arg any) (*Invoice, error) {
	var inv Invoice
	err := r.DB.QueryRow(ctx, `
		SELECT id, user_id, cart_id, COALESCE(payment_intent_id, ''), COALESCE(client_secret, ''),
		       currency, total_cents, status, created_at, paid_at
		FROM invoices `+where, arg).
		Scan(&inv.ID, &inv.UserID, &inv.CartID, &inv.PaymentIntentID, &inv.ClientSecret,
			&inv.Currency, &inv.TotalCents, &inv.Status, &inv.CreatedAt, &inv.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvoiceNotFound
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.DB.Query(ctx, `
		SELECT product_id, name, unit_price_cents, quantity, line_total_cents
		FROM invoice_items WHERE invoice_id = $1 ORDER BY product_id`, inv.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ProductID, &it.Name, &it.UnitPriceCents, &it.Qty, &it.LineTotalCents); err != nil {
			return nil, err
		}
		inv.Items = append(inv.Items, it)
	}
	return &inv, rows.Err()
}

// AttachIntent stores the gateway references and opens the invoice.
func (r *InvoiceRepo) AttachIntent(ctx context.Context, id, intentID, clientSecret string) error {
	ct, err := r.DB.Exec(ctx, `
		UPDATE invoices SET payment_intent_id = $2, client_secret = $3, status = 'open'
		WHERE id = $1 AND status = 'draft'`, id, intentID, clientSecret)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return ErrAlreadyFinalized
	}
	return nil
}

// MarkPaid is a conditional flip; false means another path already won.
// Once paid, invoice dan line snapshots tidak pernah berubah lagi.
func (r *InvoiceRepo) MarkPaid(ctx context.Context, id string) (bool, error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE invoices SET status = 'paid', paid_at = now()
		WHERE id = $1 AND status IN ('draft', 'open')`, id)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (r *InvoiceRepo) MarkVoid(ctx context.Context, id string) error {
	_, err := r.DB.Exec(ctx, `
		UPDATE invoices SET status = 'void'
		WHERE id = $1 AND status IN ('draft', 'open')`, id)
	return err
}
