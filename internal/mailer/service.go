// Package mailer consumes checkout.order.confirmed and sends the
// confirmation email. Delivery is at-least-once from Kafka, so every
// event is deduped by event_id before a mail goes out.
package mailer

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/smtp"
	"strings"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	kafkax "github.com/ariefcatur/go-checkout-stock.git/internal/kafka"
	"github.com/ariefcatur/go-checkout-stock.git/internal/redisx"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Service struct {
	Redis  *redis.Client
	Sender Sender
}

// HandleOrderConfirmed: dipasang sebagai handler consumer.
func (s *Service) HandleOrderConfirmed(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env checkout.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}
	if env.EventType != checkout.EventOrderConfirmed {
		return nil
	} // ignore

	// 2) dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, "mailer", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	// 3) decode payload
	p, err := kafkax.UnwrapPayload[checkout.OrderConfirmedPayload](env.Payload)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Order %s confirmed", p.OrderID)
	body := confirmationBody(p)
	return s.Sender.Send(ctx, p.UserID, subject, body)
}

func confirmationBody(p checkout.OrderConfirmedPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Thanks for your order!\n\n")
	fmt.Fprintf(&b, "Order:   %s\n", p.OrderID)
	fmt.Fprintf(&b, "Invoice: %s\n", p.InvoiceID)
	for _, it := range p.Items {
		fmt.Fprintf(&b, "  - %s x%d\n", it.ProductID, it.Qty)
	}
	fmt.Fprintf(&b, "Total:   %d.%02d %s\n", p.TotalCents/100, p.TotalCents%100, strings.ToUpper(p.Currency))
	return b.String()
}

// SMTP sends through a plain smtp relay. User ids double as the
// recipient address upstream; anything else is bounced to the log.
type SMTP struct {
	Addr string
	From string
}

func (s *SMTP) Send(_ context.Context, to, subject, body string) error {
	if !strings.Contains(to, "@") {
		log.Printf("mailer: no address for recipient %q, skip", to)
		return nil
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s", s.From, to, subject, body)
	return smtp.SendMail(s.Addr, nil, s.From, []string{to}, []byte(msg))
}

// LogSender is the dev fallback when no relay is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, to, subject, _ string) error {
	log.Printf("mail to=%s subject=%q", to, subject)
	return nil
}
