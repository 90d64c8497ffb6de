// Package stock holds the per-product available/reserved counters: the
// single source of truth for whether a reservation can succeed.
package stock

import "context"

// Ledger mutates product stock counters. Every implementation must make
// TryReserve an atomic compare-and-increment: under concurrent checkouts
// for the last unit, at most one call may succeed.
type Ledger interface {
	// TryReserve increments reserved_stock by qty only if
	// stock - reserved_stock >= qty at the instant of the check.
	// Fails with InsufficientStockError or ErrProductNotFound.
	TryReserve(ctx context.Context, productID string, qty int) error

	// Release returns qty units to the sellable pool. Clamped at zero so a
	// double release can never drive reserved_stock negative.
	Release(ctx context.Context, productID string, qty int) error

	// Commit permanently decrements stock and reserved_stock together.
	// Called only when a reservation converts.
	Commit(ctx context.Context, productID string, qty int) error

	// Restock adds owned units (administrative operation).
	Restock(ctx context.Context, productID string, qty int) error
}
