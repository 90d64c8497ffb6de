package reservation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
)

type PGStore struct{ DB *pgxpool.Pool }

func (s *PGStore) CreateBatch(ctx context.Context, cartID string, lines []Line, expiresAt time.Time) ([]checkout.StockReservation, error) {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	out := make([]checkout.StockReservation, 0, len(lines))
	now := time.Now().UTC()
	for _, ln := range lines {
		res := checkout.StockReservation{
			ID:        uuid.NewString(),
			CartID:    cartID,
			ProductID: ln.ProductID,
			Qty:       ln.Qty,
			Status:    checkout.ReservationReserved,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO stock_reservations(id, cart_id, product_id, quantity, status, expires_at)
			VALUES ($1, $2, $3, $4, 'reserved', $5)`,
			res.ID, res.CartID, res.ProductID, res.Qty, res.ExpiresAt)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PGStore) LinkInvoice(ctx context.Context, cartID, invoiceID string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE stock_reservations SET invoice_id = $2
		WHERE cart_id = $1 AND status = 'reserved'`, cartID, invoiceID)
	return err
}

func (s *PGStore) ActiveLines(ctx context.Context, cartID string) ([]Line, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, quantity FROM stock_reservations
		WHERE cart_id = $1 AND status = 'reserved'`, cartID)
	if err != nil {
		return nil, err
	}
	return scanLines(rows)
}

func (s *PGStore) ReleaseCart(ctx context.Context, cartID string) ([]Line, error) {
	rows, err := s.DB.Query(ctx, `
		UPDATE stock_reservations SET status = 'released'
		WHERE cart_id = $1 AND status = 'reserved'
		RETURNING product_id, quantity`, cartID)
	if err != nil {
		return nil, err
	}
	return scanLines(rows)
}

func (s *PGStore) ConvertCart(ctx context.Context, cartID, invoiceID string) ([]Line, error) {
	rows, err := s.DB.Query(ctx, `
		UPDATE stock_reservations SET status = 'converted'
		WHERE cart_id = $1 AND invoice_id = $2 AND status = 'reserved'
		RETURNING product_id, quantity`, cartID, invoiceID)
	if err != nil {
		return nil, err
	}
	return scanLines(rows)
}

func (s *PGStore) ConvertedLines(ctx context.Context, invoiceID string) ([]Line, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT product_id, quantity FROM stock_reservations
		WHERE invoice_id = $1 AND status = 'converted'`, invoiceID)
	if err != nil {
		return nil, err
	}
	return scanLines(rows)
}

func (s *PGStore) ExpiredCarts(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT DISTINCT cart_id FROM stock_reservations
		WHERE status = 'reserved' AND expires_at < $1`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanLines(rows pgx.Rows) ([]Line, error) {
	defer rows.Close()
	var out []Line
	for rows.Next() {
		var ln Line
		if err := rows.Scan(&ln.ProductID, &ln.Qty); err != nil {
			return nil, err
		}
		out = append(out, ln)
	}
	return out, rows.Err()
}
