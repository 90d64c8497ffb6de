package checkout

import (
	"errors"
	"fmt"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrCartEmpty       = errors.New("cart is empty, nothing to checkout")

	// ErrInsufficientStock is the sentinel behind InsufficientStockError.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrReservationExpired: the hold aged out and was swept; the buyer
	// must restart checkout.
	ErrReservationExpired = errors.New("reservation expired")

	// ErrAlreadyFinalized is a benign idempotency signal, bukan failure:
	// a second webhook or a racing sweeper lost the conditional update.
	ErrAlreadyFinalized = errors.New("already finalized")

	// ErrGatewayUnavailable: payment gateway unreachable or 5xx; the
	// reservation is released so stock is not held hostage.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")

	// ErrInvariant marks states that must never happen (e.g. negative
	// reserved_stock). Fatal to the operation, never silently corrected.
	ErrInvariant = errors.New("invariant violation")
)

// InsufficientStockError names the offending product so the caller can
// tell the buyer which line failed.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

func Invariantf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvariant, fmt.Sprintf(format, args...))
}
