package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
)

// Client talks to the gateway's REST API with a bounded timeout. Network
// failures and 5xx map to ErrGatewayUnavailable so the orchestrator can
// release the reservation instead of holding stock hostage.
type Client struct {
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) CreatePaymentIntent(ctx context.Context, amountCents int64, currency string) (*Intent, error) {
	var out Intent
	err := c.post(ctx, "/v1/payment_intents", map[string]any{
		"amount":   amountCents,
		"currency": currency,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetPaymentIntent(ctx context.Context, id string) (*Intent, error) {
	var out Intent
	if err := c.get(ctx, "/v1/payment_intents/"+id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateInvoice(ctx context.Context, userID, currency string, amountCents int64) (*Invoice, error) {
	var out Invoice
	err := c.post(ctx, "/v1/invoices", map[string]any{
		"customer": userID,
		"currency": currency,
		"amount":   amountCents,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) FinalizeInvoice(ctx context.Context, id string) (*Invoice, error) {
	var out Invoice
	if err := c.post(ctx, "/v1/invoices/"+id+"/finalize", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", checkout.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: gateway returned %d", checkout.ErrGatewayUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("gateway rejected %s %s: %d", req.Method, req.URL.Path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
