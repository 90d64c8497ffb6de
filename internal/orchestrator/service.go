// Package orchestrator drives a cart through the checkout saga:
// reserve stock -> draft invoice -> payment intent -> (webhook) ->
// convert reservation -> order -> notify. Every step after a failure
// compensates by releasing the reservation, and every confirmation path
// is idempotent on the invoice id.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-stock.git/internal/notify"
	"github.com/ariefcatur/go-checkout-stock.git/internal/payment"
	"github.com/ariefcatur/go-checkout-stock.git/internal/redisx"
	"github.com/ariefcatur/go-checkout-stock.git/internal/reservation"
)

type Carts interface {
	Lines(ctx context.Context, cartID string) ([]checkout.CartLine, error)
}

type Invoices interface {
	CreateDraft(ctx context.Context, inv *checkout.Invoice) error
	Get(ctx context.Context, id string) (*checkout.Invoice, error)
	GetByIntent(ctx context.Context, intentID string) (*checkout.Invoice, error)
	AttachIntent(ctx context.Context, id, intentID, clientSecret string) error
	MarkPaid(ctx context.Context, id string) (bool, error)
	MarkVoid(ctx context.Context, id string) error
}

type Orders interface {
	CreateForInvoice(ctx context.Context, inv *checkout.Invoice) (*checkout.Order, error)
	GetByInvoice(ctx context.Context, invoiceID string) (*checkout.Order, error)
}

type Service struct {
	Carts        Carts
	Invoices     Invoices
	Orders       Orders
	Reservations *reservation.Manager
	Gateway      payment.Gateway
	Notifier     notify.Notifier
	Redis        *redis.Client
	Currency     string
	ServiceName  string
}

// StartCheckout reserves stock for the whole cart, drafts an invoice from
// the cart's price snapshots and asks the gateway for a payment intent.
// Any failure past the reservation releases it immediately: a failed
// checkout start never leaves stock dangling.
func (s *Service) StartCheckout(ctx context.Context, userID, cartID string) (*checkout.Invoice, error) {
	lines, err := s.Carts.Lines(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("load cart %s: %w", cartID, err)
	}
	if len(lines) == 0 {
		return nil, checkout.ErrCartEmpty
	}

	rls := make([]reservation.Line, 0, len(lines))
	for _, ln := range lines {
		rls = append(rls, reservation.Line{ProductID: ln.ProductID, Qty: ln.Qty})
	}
	if _, err := s.Reservations.ReserveStock(ctx, cartID, rls); err != nil {
		return nil, err
	}

	inv := buildInvoice(userID, cartID, s.Currency, lines)
	if err := s.Invoices.CreateDraft(ctx, inv); err != nil {
		s.abort(ctx, cartID, "")
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	intent, err := s.Gateway.CreatePaymentIntent(ctx, inv.TotalCents, inv.Currency)
	if err != nil {
		s.abort(ctx, cartID, inv.ID)
		return nil, err
	}
	if err := s.Invoices.AttachIntent(ctx, inv.ID, intent.ID, intent.ClientSecret); err != nil {
		s.abort(ctx, cartID, inv.ID)
		return nil, fmt.Errorf("attach intent: %w", err)
	}
	if err := s.Reservations.LinkInvoice(ctx, cartID, inv.ID); err != nil {
		s.abort(ctx, cartID, inv.ID)
		return nil, fmt.Errorf("link reservations: %w", err)
	}

	inv.PaymentIntentID = intent.ID
	inv.ClientSecret = intent.ClientSecret
	inv.Status = checkout.InvoiceOpen

	s.cacheCheckoutStatus(ctx, cartID, inv.ID, string(checkout.InvoiceOpen))
	return inv, nil
}

func (s *Service) abort(ctx context.Context, cartID, invoiceID string) {
	if _, err := s.Reservations.ReleaseReservations(ctx, cartID); err != nil {
		log.Printf("abort checkout %s: release: %v", cartID, err)
	}
	if invoiceID != "" {
		if err := s.Invoices.MarkVoid(ctx, invoiceID); err != nil {
			log.Printf("abort checkout %s: void invoice %s: %v", cartID, invoiceID, err)
		}
	}
}

// ConfirmPayment handles the gateway's webhook. Replays are benign: the
// conditional convert, the conditional paid-flip and the unique order per
// invoice each make a second delivery converge on the same final state.
// invoiceID or intentID identifies the attempt (either may be empty).
func (s *Service) ConfirmPayment(ctx context.Context, eventID, invoiceID, intentID string, succeeded bool) (*checkout.Order, error) {
	if eventID != "" && s.Redis != nil {
		dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, eventID)
		if seen, _ := redisx.Exists(ctx, s.Redis, dkey); seen {
			// fast path saja; kebenaran tetap di conditional updates
			inv, err := s.resolveInvoice(ctx, invoiceID, intentID)
			if err == nil {
				if ord, err := s.Orders.GetByInvoice(ctx, inv.ID); err == nil {
					return ord, checkout.ErrAlreadyFinalized
				}
			}
		}
	}

	inv, err := s.resolveInvoice(ctx, invoiceID, intentID)
	if err != nil {
		return nil, err
	}

	if !succeeded {
		if _, err := s.Reservations.ReleaseReservations(ctx, inv.CartID); err != nil {
			return nil, fmt.Errorf("release after failed payment: %w", err)
		}
		if err := s.Invoices.MarkVoid(ctx, inv.ID); err != nil {
			log.Printf("void invoice %s: %v", inv.ID, err)
		}
		s.cacheCheckoutStatus(ctx, inv.CartID, inv.ID, string(checkout.InvoiceVoid))
		return nil, nil
	}

	if inv.Status == checkout.InvoiceVoid {
		// the attempt was already abandoned; stock may be resold
		return nil, checkout.ErrReservationExpired
	}

	lines, err := s.Reservations.ConvertReservations(ctx, inv.CartID, inv.ID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		// Nothing reserved under this invoice. Three possibilities:
		// a duplicate delivery (order exists), a crash between convert
		// and order creation (converted rows exist), or a hold the
		// sweeper already reclaimed (reject, stock may be resold).
		if ord, err := s.Orders.GetByInvoice(ctx, inv.ID); err == nil {
			s.markSeen(ctx, eventID)
			return ord, checkout.ErrAlreadyFinalized
		} else if !errors.Is(err, checkout.ErrOrderNotFound) {
			return nil, err
		}
		conv, err := s.Reservations.Converted(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		if len(conv) == 0 {
			return nil, checkout.ErrReservationExpired
		}
	}

	if _, err := s.Invoices.MarkPaid(ctx, inv.ID); err != nil {
		return nil, fmt.Errorf("mark invoice paid: %w", err)
	}

	ord, err := s.Orders.CreateForInvoice(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("materialize order: %w", err)
	}

	s.Notifier.SendConfirmation(ctx, ord, inv)
	s.cacheOrderStatus(ctx, ord)
	s.cacheCheckoutStatus(ctx, inv.CartID, inv.ID, string(checkout.InvoicePaid))
	s.markSeen(ctx, eventID)
	return ord, nil
}

func (s *Service) resolveInvoice(ctx context.Context, invoiceID, intentID string) (*checkout.Invoice, error) {
	switch {
	case invoiceID != "":
		return s.Invoices.Get(ctx, invoiceID)
	case intentID != "":
		return s.Invoices.GetByIntent(ctx, intentID)
	default:
		return nil, checkout.ErrInvoiceNotFound
	}
}

func (s *Service) markSeen(ctx context.Context, eventID string) {
	if eventID == "" || s.Redis == nil {
		return
	}
	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, eventID)
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
}

func (s *Service) cacheCheckoutStatus(ctx context.Context, cartID, invoiceID, status string) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyCheckoutStatus, cartID)
	b, _ := json.Marshal(map[string]string{"status": status, "invoice_id": invoiceID})
	_ = s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func (s *Service) cacheOrderStatus(ctx context.Context, ord *checkout.Order) {
	if s.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, ord.ID)
	b, _ := json.Marshal(map[string]string{"status": string(ord.Status)})
	_ = s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}

func buildInvoice(userID, cartID, currency string, lines []checkout.CartLine) *checkout.Invoice {
	inv := &checkout.Invoice{
		ID:        uuid.NewString(),
		UserID:    userID,
		CartID:    cartID,
		Currency:  currency,
		Status:    checkout.InvoiceDraft,
		CreatedAt: time.Now().UTC(),
	}
	for _, ln := range lines {
		unit := checkout.Cents(ln.UnitPrice)
		it := checkout.InvoiceItem{
			ProductID:      ln.ProductID,
			Name:           ln.Name,
			UnitPriceCents: unit,
			Qty:            ln.Qty,
			LineTotalCents: unit * int64(ln.Qty),
		}
		inv.Items = append(inv.Items, it)
		inv.TotalCents += it.LineTotalCents
	}
	return inv
}
