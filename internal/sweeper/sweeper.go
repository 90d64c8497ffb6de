// Package sweeper reclaims stock from expired, unconfirmed reservations.
// Stock held past expiry is conservative (we under-sell, never over-sell)
// until a tick catches up.
package sweeper

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	kafkax "github.com/ariefcatur/go-checkout-stock.git/internal/kafka"
	"github.com/ariefcatur/go-checkout-stock.git/internal/reservation"
)

type Releaser interface {
	ReleaseReservations(ctx context.Context, cartID string) ([]reservation.Line, error)
}

type ExpiryIndex interface {
	ExpiredCarts(ctx context.Context, now time.Time) ([]string, error)
}

type Sweeper struct {
	Reservations Releaser
	Index        ExpiryIndex
	Interval     time.Duration
	Producer     *kafkax.Producer // optional: checkout.reservation.released
	ServiceName  string
}

// Run ticks until ctx is cancelled. A failing tick is logged and retried
// on the next one; nothing here ever crashes the process. Overlapping
// releases (webhook vs sweeper) are resolved by the reservation store's
// conditional update, not by locking here.
func (s *Sweeper) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = 60 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("sweeper started: interval=%s", interval)
	for {
		select {
		case <-ctx.Done():
			log.Println("sweeper stopped")
			return
		case <-ticker.C:
			if n, err := s.SweepOnce(ctx); err != nil {
				log.Printf("sweep: %v", err)
			} else if n > 0 {
				log.Printf("sweep: released %d expired cart(s)", n)
			}
		}
	}
}

// SweepOnce releases every cart whose reservation aged out, one cart at a
// time so a single bad cart does not block the rest.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	carts, err := s.Index.ExpiredCarts(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	released := 0
	for _, cartID := range carts {
		lines, err := s.Reservations.ReleaseReservations(ctx, cartID)
		if err != nil {
			log.Printf("sweep cart %s: %v", cartID, err)
			continue
		}
		if len(lines) == 0 {
			continue // someone else finalized it between the query and now
		}
		released++
		s.publishReleased(cartID, lines)
	}
	return released, nil
}

func (s *Sweeper) publishReleased(cartID string, lines []reservation.Line) {
	if s.Producer == nil {
		return
	}
	items := make([]checkout.ItemQty, 0, len(lines))
	for _, ln := range lines {
		items = append(items, checkout.ItemQty{ProductID: ln.ProductID, Qty: ln.Qty})
	}
	ev := checkout.Envelope{
		EventID:       uuid.NewString(),
		EventType:     checkout.EventReservationReleased,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: cartID,
		Payload: kafkax.MustMarshal(checkout.ReservationReleasedPayload{
			CartID: cartID, Reason: checkout.ReleaseReasonExpired, Items: items,
		}),
	}
	s.Producer.Publish(checkout.PartitionKey(cartID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(checkout.EventReservationReleased)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
