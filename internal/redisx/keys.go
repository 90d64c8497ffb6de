package redisx

import "time"

const (
	// Status attempt checkout per cart: checkout_status:{cart_id} -> {"status":"...","invoice_id":"..."}
	KeyCheckoutStatus = "checkout_status:%s"

	// Cache status order: order_status:{order_id} -> {"status": "..."}
	KeyOrderStatus = "order_status:%s"

	// Dedup event processing: dedup:{service}:{id} (id = webhook event_id)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
