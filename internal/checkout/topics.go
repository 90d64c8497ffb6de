package checkout

const (
	TopicOrderConfirmed      = "checkout.order.confirmed"
	TopicReservationReleased = "checkout.reservation.released"
)

// Partition key = cart_id, supaya semua event 1 attempt maintain urutan.
func PartitionKey(cartID string) []byte { return []byte(cartID) }
