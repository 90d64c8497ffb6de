// Package reservation manages durable, time-bounded holds on product
// stock and the reserved -> {released, converted} state machine.
package reservation

import (
	"context"
	"time"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
)

type Line struct {
	ProductID string
	Qty       int
}

// Store persists reservation rows. Both finalizers (ReleaseCart,
// ConvertCart) are conditional on status='reserved': when the sweeper and
// a webhook race, exactly one wins and the other sees zero rows.
type Store interface {
	CreateBatch(ctx context.Context, cartID string, lines []Line, expiresAt time.Time) ([]checkout.StockReservation, error)

	// LinkInvoice associates the active batch with a payment attempt.
	LinkInvoice(ctx context.Context, cartID, invoiceID string) error

	ActiveLines(ctx context.Context, cartID string) ([]Line, error)

	// ReleaseCart flips every reserved row of the cart to released and
	// returns the lines it flipped (empty when nothing was reserved).
	ReleaseCart(ctx context.Context, cartID string) ([]Line, error)

	// ConvertCart flips reserved rows to converted, guarded by both cart
	// and invoice id so a stale webhook cannot convert a newer attempt.
	ConvertCart(ctx context.Context, cartID, invoiceID string) ([]Line, error)

	// ConvertedLines reports rows already converted under an invoice,
	// used to repair a confirmation that crashed mid-flight.
	ConvertedLines(ctx context.Context, invoiceID string) ([]Line, error)

	// ExpiredCarts lists distinct carts holding reserved rows past expiry.
	ExpiredCarts(ctx context.Context, now time.Time) ([]string, error)
}
