package reservation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
)

// MemStore is an in-memory Store for tests and single-process dev runs.
type MemStore struct {
	mu   sync.Mutex
	rows []*checkout.StockReservation
}

func NewMemStore() *MemStore { return &MemStore{} }

func (s *MemStore) CreateBatch(_ context.Context, cartID string, lines []Line, expiresAt time.Time) ([]checkout.StockReservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	out := make([]checkout.StockReservation, 0, len(lines))
	for _, ln := range lines {
		res := &checkout.StockReservation{
			ID:        uuid.NewString(),
			CartID:    cartID,
			ProductID: ln.ProductID,
			Qty:       ln.Qty,
			Status:    checkout.ReservationReserved,
			ExpiresAt: expiresAt,
			CreatedAt: now,
		}
		s.rows = append(s.rows, res)
		out = append(out, *res)
	}
	return out, nil
}

func (s *MemStore) LinkInvoice(_ context.Context, cartID, invoiceID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.CartID == cartID && r.Status == checkout.ReservationReserved {
			r.InvoiceID = invoiceID
		}
	}
	return nil
}

func (s *MemStore) ActiveLines(_ context.Context, cartID string) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Line
	for _, r := range s.rows {
		if r.CartID == cartID && r.Status == checkout.ReservationReserved {
			out = append(out, Line{ProductID: r.ProductID, Qty: r.Qty})
		}
	}
	return out, nil
}

func (s *MemStore) ReleaseCart(_ context.Context, cartID string) ([]Line, error) {
	return s.finalize(cartID, "", checkout.ReservationReleased)
}

func (s *MemStore) ConvertCart(_ context.Context, cartID, invoiceID string) ([]Line, error) {
	return s.finalize(cartID, invoiceID, checkout.ReservationConverted)
}

// finalize mirrors the conditional UPDATE: only reserved rows flip.
func (s *MemStore) finalize(cartID, invoiceID string, to checkout.ReservationStatus) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Line
	for _, r := range s.rows {
		if r.CartID != cartID || !checkout.CanFinalizeReservation(r.Status, to) {
			continue
		}
		if invoiceID != "" && r.InvoiceID != invoiceID {
			continue
		}
		r.Status = to
		out = append(out, Line{ProductID: r.ProductID, Qty: r.Qty})
	}
	return out, nil
}

func (s *MemStore) ConvertedLines(_ context.Context, invoiceID string) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Line
	for _, r := range s.rows {
		if r.InvoiceID == invoiceID && r.Status == checkout.ReservationConverted {
			out = append(out, Line{ProductID: r.ProductID, Qty: r.Qty})
		}
	}
	return out, nil
}

func (s *MemStore) ExpiredCarts(_ context.Context, now time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	var out []string
	for _, r := range s.rows {
		if r.Status == checkout.ReservationReserved && r.ExpiresAt.Before(now) && !seen[r.CartID] {
			seen[r.CartID] = true
			out = append(out, r.CartID)
		}
	}
	return out, nil
}

// StatusOf reports the reservation statuses for a cart, for assertions.
func (s *MemStore) StatusOf(cartID string) []checkout.ReservationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []checkout.ReservationStatus
	for _, r := range s.rows {
		if r.CartID == cartID {
			out = append(out, r.Status)
		}
	}
	return out
}
