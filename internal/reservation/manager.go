package reservation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-stock.git/internal/stock"
)

// Manager enforces the reservation state machine against the stock
// ledger. Transitions ride on the store's conditional updates, so every
// operation here is safe to call twice.
type Manager struct {
	Ledger stock.Ledger
	Store  Store
	TTL    time.Duration
}

// ReserveStock holds stock for every cart line or for none of them: a
// failing line rolls back the lines already reserved in this call.
// A cart re-entering checkout drops its previous hold first, so the new
// batch gets a fresh expiry window.
func (m *Manager) ReserveStock(ctx context.Context, cartID string, lines []Line) ([]checkout.StockReservation, error) {
	if len(lines) == 0 {
		return nil, checkout.ErrCartEmpty
	}
	for _, ln := range lines {
		if ln.Qty <= 0 {
			return nil, fmt.Errorf("invalid quantity %d for product %s", ln.Qty, ln.ProductID)
		}
	}

	if _, err := m.ReleaseReservations(ctx, cartID); err != nil {
		return nil, err
	}

	var done []Line
	for _, ln := range lines {
		if err := m.Ledger.TryReserve(ctx, ln.ProductID, ln.Qty); err != nil {
			m.rollback(ctx, done)
			return nil, err
		}
		done = append(done, ln)
	}

	expiresAt := time.Now().Add(m.TTL).UTC()
	batch, err := m.Store.CreateBatch(ctx, cartID, lines, expiresAt)
	if err != nil {
		m.rollback(ctx, done)
		return nil, err
	}
	return batch, nil
}

func (m *Manager) rollback(ctx context.Context, done []Line) {
	for _, ln := range done {
		if err := m.Ledger.Release(ctx, ln.ProductID, ln.Qty); err != nil {
			log.Printf("reserve rollback: release %s x%d: %v", ln.ProductID, ln.Qty, err)
		}
	}
}

// ConvertReservations permanently commits the stock held for the cart
// under the given invoice. An empty result means nothing was reserved:
// either a duplicate call (already converted) or an expired, swept hold —
// the caller decides which by looking at the invoice and order state.
func (m *Manager) ConvertReservations(ctx context.Context, cartID, invoiceID string) ([]Line, error) {
	lines, err := m.Store.ConvertCart(ctx, cartID, invoiceID)
	if err != nil {
		return nil, err
	}
	for _, ln := range lines {
		if err := m.Ledger.Commit(ctx, ln.ProductID, ln.Qty); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

// ReleaseReservations returns the cart's held stock to the sellable pool.
// Idempotent: rows already finalized are skipped by the conditional flip,
// so sweeper and webhook can both call this without double-releasing.
func (m *Manager) ReleaseReservations(ctx context.Context, cartID string) ([]Line, error) {
	lines, err := m.Store.ReleaseCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	for _, ln := range lines {
		if err := m.Ledger.Release(ctx, ln.ProductID, ln.Qty); err != nil {
			return nil, err
		}
	}
	return lines, nil
}

// LinkInvoice ties the active batch to a payment attempt.
func (m *Manager) LinkInvoice(ctx context.Context, cartID, invoiceID string) error {
	return m.Store.LinkInvoice(ctx, cartID, invoiceID)
}

// Converted reports lines already committed under an invoice.
func (m *Manager) Converted(ctx context.Context, invoiceID string) ([]Line, error) {
	return m.Store.ConvertedLines(ctx, invoiceID)
}

// Active reports the lines currently held for a cart.
func (m *Manager) Active(ctx context.Context, cartID string) ([]Line, error) {
	return m.Store.ActiveLines(ctx, cartID)
}
