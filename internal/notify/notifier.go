// Package notify sends order confirmations. Fire-and-forget: a lost
// notification never rolls back an order.
package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	kafkax "github.com/ariefcatur/go-checkout-stock.git/internal/kafka"
)

type Notifier interface {
	SendConfirmation(ctx context.Context, order *checkout.Order, inv *checkout.Invoice)
}

// Kafka publishes checkout.order.confirmed; the mailer worker turns it
// into an email. Publish is buffered, so the orchestrator never blocks.
type Kafka struct {
	Producer    *kafkax.Producer
	ServiceName string
}

func (n *Kafka) SendConfirmation(_ context.Context, order *checkout.Order, inv *checkout.Invoice) {
	items := make([]checkout.ItemQty, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, checkout.ItemQty{ProductID: it.ProductID, Qty: it.Qty})
	}
	ev := checkout.Envelope{
		EventID:       uuid.NewString(),
		EventType:     checkout.EventOrderConfirmed,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      n.ServiceName,
		CorrelationID: inv.CartID,
		Payload: kafkax.MustMarshal(checkout.OrderConfirmedPayload{
			OrderID:    order.ID,
			InvoiceID:  inv.ID,
			UserID:     order.UserID,
			TotalCents: order.TotalCents,
			Currency:   inv.Currency,
			Items:      items,
		}),
	}
	n.Producer.Publish(checkout.PartitionKey(inv.CartID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(checkout.EventOrderConfirmed)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

// Log is the dev fallback when no broker is around.
type Log struct{}

func (Log) SendConfirmation(_ context.Context, order *checkout.Order, inv *checkout.Invoice) {
	log.Printf("order confirmed: order=%s invoice=%s user=%s total=%d %s",
		order.ID, inv.ID, order.UserID, order.TotalCents, inv.Currency)
}
