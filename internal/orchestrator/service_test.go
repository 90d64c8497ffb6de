package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-checkout-stock.git/internal/checkout"
	"github.com/ariefcatur/go-checkout-stock.git/internal/reservation"
	"github.com/ariefcatur/go-checkout-stock.git/internal/stock"
)

type fixture struct {
	svc      *Service
	ledger   *stock.Memory
	store    *reservation.MemStore
	carts    *memCarts
	invoices *memInvoices
	orders   *memOrders
	gateway  *fakeGateway
	notifier *fakeNotifier
}

func newFixture(t *testing.T, ttl time.Duration) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	led := stock.NewMemory()
	st := reservation.NewMemStore()
	f := &fixture{
		ledger:   led,
		store:    st,
		carts:    &memCarts{lines: map[string][]checkout.CartLine{}},
		invoices: newMemInvoices(),
		orders:   newMemOrders(),
		gateway:  &fakeGateway{},
		notifier: &fakeNotifier{},
	}
	f.svc = &Service{
		Carts:        f.carts,
		Invoices:     f.invoices,
		Orders:       f.orders,
		Reservations: &reservation.Manager{Ledger: led, Store: st, TTL: ttl},
		Gateway:      f.gateway,
		Notifier:     f.notifier,
		Redis:        rdb,
		Currency:     "usd",
		ServiceName:  "checkout-test",
	}
	return f
}

func (f *fixture) seedProduct(id string, price string, stockUnits int) {
	f.ledger.SetStock(id, stockUnits)
}

func (f *fixture) seedCart(cartID string, lines ...checkout.CartLine) {
	f.carts.lines[cartID] = lines
}

func line(productID, name, price string, qty int) checkout.CartLine {
	return checkout.CartLine{
		ProductID: productID,
		Name:      name,
		UnitPrice: decimal.RequireFromString(price),
		Qty:       qty,
	}
}

func TestStartCheckout_ReservesAndOpensInvoice(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "19.99", 10)
	f.seedProduct("p2", "5.00", 3)
	f.seedCart("cart-1",
		line("p1", "Keyboard", "19.99", 2),
		line("p2", "Cable", "5.00", 1),
	)
	ctx := context.Background()

	inv, err := f.svc.StartCheckout(ctx, "user-1", "cart-1")
	require.NoError(t, err)

	assert.Equal(t, checkout.InvoiceOpen, inv.Status)
	assert.Equal(t, int64(2*1999+500), inv.TotalCents)
	assert.NotEmpty(t, inv.PaymentIntentID)
	assert.NotEmpty(t, inv.ClientSecret)
	require.Len(t, inv.Items, 2)
	assert.Equal(t, int64(1999), inv.Items[0].UnitPriceCents)

	_, res1 := f.ledger.StockOf("p1")
	_, res2 := f.ledger.StockOf("p2")
	assert.Equal(t, 2, res1)
	assert.Equal(t, 1, res2)

	// batch linked to the invoice for the convert guard
	active, err := f.svc.Reservations.Active(ctx, "cart-1")
	require.NoError(t, err)
	assert.Len(t, active, 2)
}

func TestStartCheckout_EmptyCart(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	_, err := f.svc.StartCheckout(context.Background(), "user-1", "nope")
	assert.ErrorIs(t, err, checkout.ErrCartEmpty)
	assert.Equal(t, 0, f.invoices.count())
}

// Two carts racing for the last unit: one checks out, the other gets a
// structured InsufficientStock naming the product, and no invoice or
// intent is ever created for it.
func TestStartCheckout_LastUnitLoserGetsInsufficientStock(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "10.00", 1)
	f.seedCart("cart-a", line("p1", "Widget", "10.00", 1))
	f.seedCart("cart-b", line("p1", "Widget", "10.00", 1))
	ctx := context.Background()

	_, err := f.svc.StartCheckout(ctx, "user-a", "cart-a")
	require.NoError(t, err)

	_, err = f.svc.StartCheckout(ctx, "user-b", "cart-b")
	require.Error(t, err)
	var ise *checkout.InsufficientStockError
	require.ErrorAs(t, err, &ise)
	assert.Equal(t, "p1", ise.ProductID)

	assert.Equal(t, 1, f.invoices.count(), "loser gets no invoice")
	assert.Equal(t, 1, f.gateway.created, "loser gets no payment intent")

	_, reserved := f.ledger.StockOf("p1")
	assert.Equal(t, 1, reserved)
}

// Two-line cart, one line short: the successful line is rolled back.
func TestStartCheckout_PartialCartRollsBack(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "10.00", 10)
	f.seedProduct("p2", "4.00", 1)
	f.seedCart("cart-1",
		line("p1", "Widget", "10.00", 2),
		line("p2", "Gadget", "4.00", 5),
	)

	_, err := f.svc.StartCheckout(context.Background(), "user-1", "cart-1")
	require.ErrorIs(t, err, checkout.ErrInsufficientStock)

	_, res1 := f.ledger.StockOf("p1")
	_, res2 := f.ledger.StockOf("p2")
	assert.Equal(t, 0, res1)
	assert.Equal(t, 0, res2)
	assert.Equal(t, 0, f.invoices.count())
}

// Gateway down at intent creation: the reservation must not dangle.
func TestStartCheckout_GatewayFailureReleasesReservation(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "10.00", 5)
	f.seedCart("cart-1", line("p1", "Widget", "10.00", 2))
	f.gateway.failCreate = true

	_, err := f.svc.StartCheckout(context.Background(), "user-1", "cart-1")
	require.ErrorIs(t, err, checkout.ErrGatewayUnavailable)

	_, reserved := f.ledger.StockOf("p1")
	assert.Equal(t, 0, reserved, "reservation released on gateway failure")
	assert.Equal(t, []checkout.ReservationStatus{checkout.ReservationReleased}, f.store.StatusOf("cart-1"))
}

func TestConfirmPayment_ConvertsAndMaterializesOrder(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "19.99", 10)
	f.seedCart("cart-1", line("p1", "Keyboard", "19.99", 2))
	ctx := context.Background()

	inv, err := f.svc.StartCheckout(ctx, "user-1", "cart-1")
	require.NoError(t, err)

	ord, err := f.svc.ConfirmPayment(ctx, "evt-1", inv.ID, "", true)
	require.NoError(t, err)
	require.NotNil(t, ord)

	assert.Equal(t, checkout.OrderPaid, ord.Status)
	assert.Equal(t, inv.TotalCents, ord.TotalCents)
	require.Len(t, ord.Items, 1)
	assert.Equal(t, int64(1999), ord.Items[0].PriceCents, "priceAtPurchase from invoice snapshot")

	stockN, reserved := f.ledger.StockOf("p1")
	assert.Equal(t, 8, stockN)
	assert.Equal(t, 0, reserved)

	assert.Equal(t, checkout.InvoicePaid, f.invoices.statusOf(inv.ID))
	assert.Equal(t, 1, f.notifier.callCount())
}

// Same webhook delivered twice: one order, one stock decrement.
func TestConfirmPayment_DuplicateWebhook(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "10.00", 5)
	f.seedCart("cart-1", line("p1", "Widget", "10.00", 1))
	ctx := context.Background()

	inv, err := f.svc.StartCheckout(ctx, "user-1", "cart-1")
	require.NoError(t, err)

	first, err := f.svc.ConfirmPayment(ctx, "evt-1", inv.ID, "", true)
	require.NoError(t, err)

	second, err := f.svc.ConfirmPayment(ctx, "evt-1", inv.ID, "", true)
	assert.ErrorIs(t, err, checkout.ErrAlreadyFinalized)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	assert.Equal(t, 1, f.orders.count())
	stockN, reserved := f.ledger.StockOf("p1")
	assert.Equal(t, 4, stockN, "stock decremented exactly once")
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 1, f.notifier.callCount())
}

// A different event id for the same invoice (gateway retry with a new
// delivery) converges the same way.
func TestConfirmPayment_ReplayWithNewEventID(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "10.00", 5)
	f.seedCart("cart-1", line("p1", "Widget", "10.00", 1))
	ctx := context.Background()

	inv, err := f.svc.StartCheckout(ctx, "user-1", "cart-1")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(ctx, "evt-1", inv.ID, "", true)
	require.NoError(t, err)
	_, err = f.svc.ConfirmPayment(ctx, "evt-2", inv.ID, "", true)
	assert.ErrorIs(t, err, checkout.ErrAlreadyFinalized)

	assert.Equal(t, 1, f.orders.count())
	stockN, _ := f.ledger.StockOf("p1")
	assert.Equal(t, 4, stockN)
}

// Reservation swept before the webhook arrives: the late confirmation is
// rejected and counters stay untouched.
func TestConfirmPayment_LateAfterSweepIsRejected(t *testing.T) {
	f := newFixture(t, -time.Minute) // born expired
	f.seedProduct("p1", "10.00", 5)
	f.seedCart("cart-1", line("p1", "Widget", "10.00", 2))
	ctx := context.Background()

	inv, err := f.svc.StartCheckout(ctx, "user-1", "cart-1")
	require.NoError(t, err)

	// the sweeper reclaims the expired hold
	_, err = f.svc.Reservations.ReleaseReservations(ctx, "cart-1")
	require.NoError(t, err)

	_, err = f.svc.ConfirmPayment(ctx, "evt-1", inv.ID, "", true)
	assert.ErrorIs(t, err, checkout.ErrReservationExpired)

	stockN, reserved := f.ledger.StockOf("p1")
	assert.Equal(t, 5, stockN, "late confirmation does not touch stock")
	assert.Equal(t, 0, reserved)
	assert.Equal(t, 0, f.orders.count())
}

// Failed payment: reservation released, invoice voided, no order.
func TestConfirmPayment_FailureReleasesHold(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "10.00", 5)
	f.seedCart("cart-1", line("p1", "Widget", "10.00", 2))
	ctx := context.Background()

	inv, err := f.svc.StartCheckout(ctx, "user-1", "cart-1")
	require.NoError(t, err)

	ord, err := f.svc.ConfirmPayment(ctx, "evt-1", inv.ID, "", false)
	require.NoError(t, err)
	assert.Nil(t, ord)

	_, reserved := f.ledger.StockOf("p1")
	assert.Equal(t, 0, reserved)
	assert.Equal(t, checkout.InvoiceVoid, f.invoices.statusOf(inv.ID))
	assert.Equal(t, 0, f.orders.count())

	// a success webhook after the void is rejected
	_, err = f.svc.ConfirmPayment(ctx, "evt-2", inv.ID, "", true)
	assert.ErrorIs(t, err, checkout.ErrReservationExpired)
}

// Crash window: stock converted but the process died before the order was
// written. The replayed confirmation must finish the job without
// committing stock twice.
func TestConfirmPayment_RepairsCrashAfterConvert(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "10.00", 5)
	f.seedCart("cart-1", line("p1", "Widget", "10.00", 2))
	ctx := context.Background()

	inv, err := f.svc.StartCheckout(ctx, "user-1", "cart-1")
	require.NoError(t, err)

	// first delivery converted the hold, then the process died
	_, err = f.svc.Reservations.ConvertReservations(ctx, "cart-1", inv.ID)
	require.NoError(t, err)

	ord, err := f.svc.ConfirmPayment(ctx, "evt-1", inv.ID, "", true)
	require.NoError(t, err)
	require.NotNil(t, ord)

	assert.Equal(t, checkout.InvoicePaid, f.invoices.statusOf(inv.ID))
	stockN, reserved := f.ledger.StockOf("p1")
	assert.Equal(t, 3, stockN, "stock committed exactly once")
	assert.Equal(t, 0, reserved)
}

// Webhook identified only by the payment intent id.
func TestConfirmPayment_ResolvesByIntent(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	f.seedProduct("p1", "10.00", 5)
	f.seedCart("cart-1", line("p1", "Widget", "10.00", 1))
	ctx := context.Background()

	inv, err := f.svc.StartCheckout(ctx, "user-1", "cart-1")
	require.NoError(t, err)
	require.NotEmpty(t, inv.PaymentIntentID)

	ord, err := f.svc.ConfirmPayment(ctx, "evt-1", "", inv.PaymentIntentID, true)
	require.NoError(t, err)
	assert.Equal(t, inv.ID, ord.InvoiceID)
}

func TestConfirmPayment_UnknownInvoice(t *testing.T) {
	f := newFixture(t, 15*time.Minute)
	_, err := f.svc.ConfirmPayment(context.Background(), "evt-1", "missing", "", true)
	assert.ErrorIs(t, err, checkout.ErrInvoiceNotFound)
}
