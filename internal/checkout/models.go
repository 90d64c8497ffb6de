package checkout

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	Stock         int             `json:"stock"`
	ReservedStock int             `json:"reserved_stock"`
	Status        ProductStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Sellable is what shoppers see: owned minus held.
func (p Product) Sellable() int { return p.Stock - p.ReservedStock }

// CartLine is a cart row joined with its product snapshot at checkout time.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty"`
}

type StockReservation struct {
	ID        string            `json:"id"`
	CartID    string            `json:"cart_id"`
	ProductID string            `json:"product_id"`
	Qty       int               `json:"qty"`
	Status    ReservationStatus `json:"status"`
	InvoiceID string            `json:"invoice_id,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
	CreatedAt time.Time         `json:"created_at"`
}

type Invoice struct {
	ID              string        `json:"id"`
	UserID          string        `json:"user_id"`
	CartID          string        `json:"cart_id"`
	PaymentIntentID string        `json:"payment_intent_id,omitempty"`
	ClientSecret    string        `json:"client_secret,omitempty"`
	Currency        string        `json:"currency"`
	TotalCents      int64         `json:"total_cents"`
	Status          InvoiceStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	PaidAt          *time.Time    `json:"paid_at,omitempty"`
	Items           []InvoiceItem `json:"items,omitempty"`
}

// InvoiceItem snapshots name and unit price so later catalog changes
// never alter a completed purchase's record.
type InvoiceItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	Qty            int    `json:"qty"`
	LineTotalCents int64  `json:"line_total_cents"`
}

type Order struct {
	ID            string      `json:"id"`
	UserID        string      `json:"user_id"`
	InvoiceID     string      `json:"invoice_id"`
	Status        OrderStatus `json:"status"`
	TotalCents    int64       `json:"total_cents"`
	PaymentSecret string      `json:"payment_secret,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	Items         []OrderItem `json:"items,omitempty"`
}

type OrderItem struct {
	ProductID  string `json:"product_id"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"price_cents"` // priceAtPurchase, bukan harga katalog live
}

// Cents converts a catalog price to minor units for invoices and orders.
func Cents(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
