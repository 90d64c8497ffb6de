package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
)

// PG implements Ledger with single-statement conditional updates. No
// in-process locks: correctness holds across multiple server instances
// because the check and the increment are one atomic UPDATE.
type PG struct{ DB *pgxpool.Pool }

func (l *PG) TryReserve(ctx context.Context, productID string, qty int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE products
		SET reserved_stock = reserved_stock + $2, updated_at = now()
		WHERE id = $1 AND status = 'published' AND stock - reserved_stock >= $2`,
		productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 1 {
		return nil
	}

	// Zero rows: either the product is gone or the stock is short.
	var stock, reserved int
	err = l.DB.QueryRow(ctx, `
		SELECT stock, reserved_stock FROM products
		WHERE id = $1 AND status = 'published'`, productID).Scan(&stock, &reserved)
	if errors.Is(err, pgx.ErrNoRows) {
		return checkout.ErrProductNotFound
	}
	if err != nil {
		return err
	}
	return &checkout.InsufficientStockError{ProductID: productID, Requested: qty, Available: stock - reserved}
}

func (l *PG) Release(ctx context.Context, productID string, qty int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE products
		SET reserved_stock = GREATEST(reserved_stock - $2, 0), updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return checkout.ErrProductNotFound
	}
	return nil
}

func (l *PG) Commit(ctx context.Context, productID string, qty int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE products
		SET stock = stock - $2, reserved_stock = reserved_stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2 AND reserved_stock >= $2`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		// Committing more than is reserved means the ledger and the
		// reservation rows disagree. Never corrected silently.
		return checkout.Invariantf("commit %d units of product %s exceeds stock or reserved_stock", qty, productID)
	}
	return nil
}

func (l *PG) Restock(ctx context.Context, productID string, qty int) error {
	ct, err := l.DB.Exec(ctx, `
		UPDATE products SET stock = stock + $2, updated_at = now()
		WHERE id = $1`, productID, qty)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return checkout.ErrProductNotFound
	}
	return nil
}
