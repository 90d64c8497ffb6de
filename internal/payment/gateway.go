// Package payment wraps the external payment provider. The provider is
// untrusted: possibly slow, possibly delivering the same webhook twice.
package payment

import "context"

type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

type Invoice struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amountCents int64, currency string) (*Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (*Intent, error)
	CreateInvoice(ctx context.Context, userID, currency string, amountCents int64) (*Invoice, error)
	FinalizeInvoice(ctx context.Context, id string) (*Invoice, error)
}
