package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-stock.git/internal/orchestrator"
	"github.com/ariefcatur/go-checkout-stock.git/internal/redisx"
	"github.com/ariefcatur/go-checkout-stock.git/internal/stock"
)

type OrderStatuses interface {
	GetStatus(ctx context.Context, id string) (checkout.OrderStatus, error)
}

type ProductLister interface {
	ListPublished(ctx context.Context) ([]checkout.Product, error)
}

type InvoiceLookup interface {
	LatestByCart(ctx context.Context, cartID string) (*checkout.Invoice, error)
}

type CheckoutHandler struct {
	Svc      *orchestrator.Service
	Orders   OrderStatuses
	Products ProductLister
	Invoices InvoiceLookup
	Ledger   stock.Ledger
	Redis    *redis.Client
}

type StartCheckoutReq struct {
	UserID string `json:"user_id"`
	CartID string `json:"cart_id"`
}

type StartCheckoutResp struct {
	InvoiceID    string `json:"invoice_id"`
	ClientSecret string `json:"client_secret"`
	TotalCents   int64  `json:"total_cents"`
	Currency     string `json:"currency"`
}

type PaymentWebhookReq struct {
	EventID         string `json:"event_id"`
	InvoiceID       string `json:"invoice_id"`
	PaymentIntentID string `json:"payment_intent_id"`
	Succeeded       bool   `json:"succeeded"`
}

type RestockReq struct {
	Qty int `json:"qty"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.startCheckout)
	r.Post("/webhooks/payment", h.paymentWebhook)
	r.Get("/checkout/{cartID}", h.checkoutStatus)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/products", h.listProducts)
	r.Post("/products/{id}/restock", h.restock)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *CheckoutHandler) startCheckout(w http.ResponseWriter, r *http.Request) {
	var req StartCheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.UserID == "" || req.CartID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	inv, err := h.Svc.StartCheckout(ctx, req.UserID, req.CartID)
	if err != nil {
		var ise *checkout.InsufficientStockError
		switch {
		case errors.As(err, &ise):
			writeJSON(w, http.StatusConflict, map[string]any{
				"error":      "insufficient stock",
				"product_id": ise.ProductID,
				"available":  ise.Available,
			})
		case errors.Is(err, checkout.ErrCartEmpty):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty"})
		case errors.Is(err, checkout.ErrGatewayUnavailable):
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment gateway unavailable, try again"})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusCreated, StartCheckoutResp{
		InvoiceID:    inv.ID,
		ClientSecret: inv.ClientSecret,
		TotalCents:   inv.TotalCents,
		Currency:     inv.Currency,
	})
}

func (h *CheckoutHandler) paymentWebhook(w http.ResponseWriter, r *http.Request) {
	var req PaymentWebhookReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.InvoiceID == "" && req.PaymentIntentID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing invoice or intent id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	ord, err := h.Svc.ConfirmPayment(ctx, req.EventID, req.InvoiceID, req.PaymentIntentID, req.Succeeded)
	switch {
	case err == nil:
		if ord == nil {
			// failed payment acked; hold released
			writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed", "order_id": ord.ID})
	case errors.Is(err, checkout.ErrAlreadyFinalized):
		// duplicate delivery: same answer as the first one
		writeJSON(w, http.StatusOK, map[string]string{"status": "confirmed", "order_id": ord.ID})
	case errors.Is(err, checkout.ErrReservationExpired):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "reservation expired, checkout must be restarted"})
	case errors.Is(err, checkout.ErrInvoiceNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown invoice"})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}

func (h *CheckoutHandler) checkoutStatus(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartID")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyCheckoutStatus, cartID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	inv, err := h.Invoices.LatestByCart(ctx, cartID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	body := map[string]string{"status": string(inv.Status), "invoice_id": inv.ID}
	b, _ := json.Marshal(body)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	writeJSON(w, http.StatusOK, body)
}

func (h *CheckoutHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	status, err := h.Orders.GetStatus(ctx, orderID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	body := map[string]string{"status": string(status)}
	b, _ := json.Marshal(body)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	writeJSON(w, http.StatusOK, body)
}

func (h *CheckoutHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Products.ListPublished(ctx)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CheckoutHandler) restock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")
	var req RestockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Qty <= 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "qty must be > 0"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Ledger.Restock(ctx, productID, req.Qty); err != nil {
		if errors.Is(err, checkout.ErrProductNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restocked"})
}
