package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-stock.git/internal/payment"
)

// memCarts implements Carts for testing
type memCarts struct {
	lines map[string][]checkout.CartLine
}

func (c *memCarts) Lines(_ context.Context, cartID string) ([]checkout.CartLine, error) {
	return c.lines[cartID], nil
}

// memInvoices implements Invoices with the same conditional-update
// semantics as the Postgres repo.
type memInvoices struct {
	mu   sync.Mutex
	byID map[string]*checkout.Invoice
}

func newMemInvoices() *memInvoices {
	return &memInvoices{byID: map[string]*checkout.Invoice{}}
}

func (s *memInvoices) CreateDraft(_ context.Context, inv *checkout.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inv
	s.byID[inv.ID] = &cp
	return nil
}

func (s *memInvoices) Get(_ context.Context, id string) (*checkout.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return nil, checkout.ErrInvoiceNotFound
	}
	cp := *inv
	return &cp, nil
}

func (s *memInvoices) GetByIntent(_ context.Context, intentID string) (*checkout.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.byID {
		if inv.PaymentIntentID == intentID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, checkout.ErrInvoiceNotFound
}

func (s *memInvoices) AttachIntent(_ context.Context, id, intentID, clientSecret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return checkout.ErrInvoiceNotFound
	}
	if inv.Status != checkout.InvoiceDraft {
		return checkout.ErrAlreadyFinalized
	}
	inv.PaymentIntentID = intentID
	inv.ClientSecret = clientSecret
	inv.Status = checkout.InvoiceOpen
	return nil
}

func (s *memInvoices) MarkPaid(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.byID[id]
	if !ok {
		return false, checkout.ErrInvoiceNotFound
	}
	if !checkout.CanTransitionInvoice(inv.Status, checkout.InvoicePaid) {
		return false, nil
	}
	now := time.Now().UTC()
	inv.Status = checkout.InvoicePaid
	inv.PaidAt = &now
	return true, nil
}

func (s *memInvoices) MarkVoid(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.byID[id]; ok && checkout.CanTransitionInvoice(inv.Status, checkout.InvoiceVoid) {
		inv.Status = checkout.InvoiceVoid
	}
	return nil
}

func (s *memInvoices) statusOf(id string) checkout.InvoiceStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv, ok := s.byID[id]; ok {
		return inv.Status
	}
	return ""
}

func (s *memInvoices) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

// memOrders implements Orders with one order per invoice, like the
// UNIQUE(invoice_id) constraint.
type memOrders struct {
	mu        sync.Mutex
	byInvoice map[string]*checkout.Order
}

func newMemOrders() *memOrders {
	return &memOrders{byInvoice: map[string]*checkout.Order{}}
}

func (s *memOrders) CreateForInvoice(_ context.Context, inv *checkout.Invoice) (*checkout.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ord, ok := s.byInvoice[inv.ID]; ok {
		cp := *ord
		return &cp, nil
	}
	ord := &checkout.Order{
		ID:            uuid.NewString(),
		UserID:        inv.UserID,
		InvoiceID:     inv.ID,
		Status:        checkout.OrderPaid,
		TotalCents:    inv.TotalCents,
		PaymentSecret: inv.ClientSecret,
		CreatedAt:     time.Now().UTC(),
	}
	for _, it := range inv.Items {
		ord.Items = append(ord.Items, checkout.OrderItem{
			ProductID: it.ProductID, Qty: it.Qty, PriceCents: it.UnitPriceCents,
		})
	}
	s.byInvoice[inv.ID] = ord
	cp := *ord
	return &cp, nil
}

func (s *memOrders) GetByInvoice(_ context.Context, invoiceID string) (*checkout.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ord, ok := s.byInvoice[invoiceID]
	if !ok {
		return nil, checkout.ErrOrderNotFound
	}
	cp := *ord
	return &cp, nil
}

func (s *memOrders) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byInvoice)
}

// fakeGateway implements payment.Gateway
type fakeGateway struct {
	mu         sync.Mutex
	failCreate bool
	created    int
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, amountCents int64, currency string) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failCreate {
		return nil, fmt.Errorf("%w: connection refused", checkout.ErrGatewayUnavailable)
	}
	g.created++
	id := fmt.Sprintf("pi_%d", g.created)
	return &payment.Intent{ID: id, ClientSecret: id + "_secret", Status: "requires_payment_method"}, nil
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, id string) (*payment.Intent, error) {
	return &payment.Intent{ID: id, Status: "succeeded"}, nil
}

func (g *fakeGateway) CreateInvoice(_ context.Context, _, _ string, _ int64) (*payment.Invoice, error) {
	return nil, errors.New("not used in these tests")
}

func (g *fakeGateway) FinalizeInvoice(_ context.Context, _ string) (*payment.Invoice, error) {
	return nil, errors.New("not used in these tests")
}

// fakeNotifier implements notify.Notifier
type fakeNotifier struct {
	mu    sync.Mutex
	calls int
	last  *checkout.Order
}

func (n *fakeNotifier) SendConfirmation(_ context.Context, order *checkout.Order, _ *checkout.Invoice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	n.last = order
}

func (n *fakeNotifier) callCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}
