package stock

import (
	"context"
	"sync"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
)

type counters struct {
	stock    int
	reserved int
}

// Memory is a mutex-guarded Ledger for tests and single-process dev runs.
// Production uses PG; the conditional-update semantics are identical.
type Memory struct {
	mu       sync.Mutex
	products map[string]*counters
}

func NewMemory() *Memory {
	return &Memory{products: make(map[string]*counters)}
}

// SetStock seeds a product with the given owned units and zero reserved.
func (m *Memory) SetStock(productID string, stock int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[productID] = &counters{stock: stock}
}

// StockOf returns (stock, reserved_stock) for assertions.
func (m *Memory) StockOf(productID string) (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.products[productID]
	if !ok {
		return 0, 0
	}
	return c.stock, c.reserved
}

func (m *Memory) TryReserve(_ context.Context, productID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.products[productID]
	if !ok {
		return checkout.ErrProductNotFound
	}
	if c.stock-c.reserved < qty {
		return &checkout.InsufficientStockError{ProductID: productID, Requested: qty, Available: c.stock - c.reserved}
	}
	c.reserved += qty
	return nil
}

func (m *Memory) Release(_ context.Context, productID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.products[productID]
	if !ok {
		return checkout.ErrProductNotFound
	}
	c.reserved -= qty
	if c.reserved < 0 {
		c.reserved = 0
	}
	return nil
}

func (m *Memory) Commit(_ context.Context, productID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.products[productID]
	if !ok {
		return checkout.ErrProductNotFound
	}
	if c.stock < qty || c.reserved < qty {
		return checkout.Invariantf("commit %d units of product %s exceeds stock or reserved_stock", qty, productID)
	}
	c.stock -= qty
	c.reserved -= qty
	return nil
}

func (m *Memory) Restock(_ context.Context, productID string, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.products[productID]
	if !ok {
		return checkout.ErrProductNotFound
	}
	c.stock += qty
	return nil
}
