package checkout

type ProductStatus string

const (
	ProductDraft     ProductStatus = "draft"
	ProductPublished ProductStatus = "published"
	ProductArchived  ProductStatus = "archived"
	ProductDeleted   ProductStatus = "deleted"
)

type ReservationStatus string

const (
	ReservationReserved  ReservationStatus = "reserved"
	ReservationReleased  ReservationStatus = "released"
	ReservationConverted ReservationStatus = "converted"
)

// reserved is the only non-terminal state; released/converted never move again.
var reservationNext = map[ReservationStatus]map[ReservationStatus]bool{
	ReservationReserved:  {ReservationReleased: true, ReservationConverted: true},
	ReservationReleased:  {},
	ReservationConverted: {},
}

func CanFinalizeReservation(from, to ReservationStatus) bool {
	return reservationNext[from][to]
}

type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceOpen  InvoiceStatus = "open"
	InvoicePaid  InvoiceStatus = "paid"
	InvoiceVoid  InvoiceStatus = "void"
)

var invoiceNext = map[InvoiceStatus]map[InvoiceStatus]bool{
	InvoiceDraft: {InvoiceOpen: true, InvoiceVoid: true},
	InvoiceOpen:  {InvoicePaid: true, InvoiceVoid: true},
	InvoicePaid:  {},
	InvoiceVoid:  {},
}

func CanTransitionInvoice(from, to InvoiceStatus) bool {
	return invoiceNext[from][to]
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderFulfilled OrderStatus = "fulfilled"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

var orderNext = map[OrderStatus]map[OrderStatus]bool{
	OrderPending:   {OrderPaid: true, OrderCancelled: true},
	OrderPaid:      {OrderFulfilled: true, OrderCancelled: true},
	OrderFulfilled: {OrderCompleted: true},
	OrderCompleted: {},
	OrderCancelled: {},
}

func CanTransitionOrder(from, to OrderStatus) bool {
	return orderNext[from][to]
}
