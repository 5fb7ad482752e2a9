package event

import "time"

// Event type constants double as the broker routing keys. Keeping them in one
// place avoids drift between publishers and queue bindings across services.
const (
	TypeTicketCreated = "ticket.created"
	TypeTicketUpdated = "ticket.updated"

	TypeOrderCreated   = "order.created"
	TypeOrderCancelled = "order.cancelled"
	TypeOrderPending   = "order.pending"
	TypeOrderFailed    = "order.failed"

	TypePaymentCreated   = "payment.created"
	TypePaymentSucceeded = "payment.succeeded"
	TypePaymentFailed    = "payment.failed"

	TypeExpirationExpired = "expiration.expired"
)

// Order status values carried on the wire.
const (
	OrderStatusCreated        = "created"
	OrderStatusPendingPayment = "pending_payment"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
	OrderStatusFailed         = "failed"
)

// Event is implemented by every message payload published on the bus.
type Event interface {
	EventType() string
}

// TicketCreated is published by the tickets service when a ticket is first
// listed. Version is always 0 on creation.
type TicketCreated struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Price   float64 `json:"price"`
	Version int     `json:"version"`
}

func (TicketCreated) EventType() string { return TypeTicketCreated }

// TicketUpdated is published on every accepted ticket mutation, including
// reservation and release. OrderID is nil while the ticket is unreserved.
type TicketUpdated struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Price   float64 `json:"price"`
	Version int     `json:"version"`
	OrderID *string `json:"orderId,omitempty"`
}

func (TicketUpdated) EventType() string { return TypeTicketUpdated }

// OrderCreated is published by the orders service after persisting a new
// order. Price is the reserved ticket's price at creation time; the payments
// service charges against it.
type OrderCreated struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticketId"`
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	Version   int       `json:"version"`
	ExpiresAt time.Time `json:"expiresAt"`
	Price     float64   `json:"price,omitempty"`
}

func (OrderCreated) EventType() string { return TypeOrderCreated }

// OrderCancelled is published when an order is cancelled, either manually or
// by expiration.
type OrderCancelled struct {
	ID       string `json:"id"`
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId"`
	Status   string `json:"status"`
	Version  int    `json:"version"`
}

func (OrderCancelled) EventType() string { return TypeOrderCancelled }

// OrderPending is published when an order moves to pending_payment. Unlike
// the other order events it keys the order by orderId.
type OrderPending struct {
	OrderID  string `json:"orderId"`
	Status   string `json:"status"`
	TicketID string `json:"ticketId"`
	Version  int    `json:"version"`
}

func (OrderPending) EventType() string { return TypeOrderPending }

// OrderFailed is published when a payment attempt for the order failed.
type OrderFailed struct {
	ID       string `json:"id"`
	TicketID string `json:"ticketId"`
	UserID   string `json:"userId"`
	Status   string `json:"status"`
	Version  int    `json:"version"`
}

func (OrderFailed) EventType() string { return TypeOrderFailed }

// PaymentCreated is published by the payments service when a charge attempt
// has been initiated for the order.
type PaymentCreated struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId,omitempty"`
}

func (PaymentCreated) EventType() string { return TypePaymentCreated }

// PaymentSucceeded is published when the charge settled.
type PaymentSucceeded struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId,omitempty"`
}

func (PaymentSucceeded) EventType() string { return TypePaymentSucceeded }

// PaymentFailed is published when the charge was declined or errored.
type PaymentFailed struct {
	OrderID string `json:"orderId"`
	Reason  string `json:"reason,omitempty"`
}

func (PaymentFailed) EventType() string { return TypePaymentFailed }

// ExpirationExpired is published by the expiration service when an order's
// reservation window has elapsed.
type ExpirationExpired struct {
	OrderID string `json:"orderId"`
}

func (ExpirationExpired) EventType() string { return TypeExpirationExpired }
