package checkout

import (
	"encoding/json"
	"time"
)

const (
	EventOrderConfirmed      = "OrderConfirmed"
	EventReservationReleased = "ReservationReleased"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "checkout-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya cart_id
	Payload       json.RawMessage `json:"payload"`
}

type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

type OrderConfirmedPayload struct {
	OrderID    string    `json:"order_id"`
	InvoiceID  string    `json:"invoice_id"`
	UserID     string    `json:"user_id"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	Items      []ItemQty `json:"items"`
}

type ReservationReleasedPayload struct {
	CartID string    `json:"cart_id"`
	Reason string    `json:"reason"` // EXPIRED | PAYMENT_FAILED | CHECKOUT_ABORTED
	Items  []ItemQty `json:"items,omitempty"`
}

const (
	ReleaseReasonExpired       = "EXPIRED"
	ReleaseReasonPaymentFailed = "PAYMENT_FAILED"
	ReleaseReasonAborted       = "CHECKOUT_ABORTED"
)
