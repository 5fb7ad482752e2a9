// Package saga describes the event choreography in one place: which service
// consumes which events, and how order status moves in response. Service
// mains bind their queues from this table, so the wiring a reviewer reads
// here is the wiring that runs.
package saga

import "ticketing/internal/event"

// Service names as they appear in queue bindings.
const (
	ServiceTickets       = "tickets"
	ServiceOrders        = "orders"
	ServicePayments      = "payments"
	ServiceExpiration    = "expiration"
	ServiceNotifications = "notifications"
)

// Subscription is one durable queue a service consumes from, with the
// routing keys bound to it. One queue per producing service keeps each
// producer's events in FIFO order for the consumer.
type Subscription struct {
	Service string
	Queue   string
	Events  []string
}

var Subscriptions = []Subscription{
	{
		Service: ServiceTickets,
		Queue:   "tickets.orders",
		Events:  []string{event.TypeOrderCreated, event.TypeOrderCancelled},
	},
	{
		Service: ServiceOrders,
		Queue:   "orders.tickets",
		Events:  []string{event.TypeTicketCreated, event.TypeTicketUpdated},
	},
	{
		Service: ServiceOrders,
		Queue:   "orders.payments",
		Events:  []string{event.TypePaymentCreated, event.TypePaymentSucceeded, event.TypePaymentFailed},
	},
	{
		Service: ServiceOrders,
		Queue:   "orders.expiration",
		Events:  []string{event.TypeExpirationExpired},
	},
	{
		Service: ServicePayments,
		Queue:   "payments.orders",
		Events:  []string{event.TypeOrderCreated, event.TypeOrderCancelled, event.TypeOrderPending, event.TypeOrderFailed},
	},
	{
		Service: ServiceExpiration,
		Queue:   "expiration.orders",
		Events:  []string{event.TypeOrderCreated},
	},
	{
		Service: ServiceNotifications,
		Queue:   "notifications.saga",
		Events:  []string{event.TypeOrderCancelled, event.TypePaymentFailed},
	},
}

// QueuesFor returns the queue bindings a service consumes from.
func QueuesFor(service string) []Subscription {
	var out []Subscription
	for _, s := range Subscriptions {
		if s.Service == service {
			out = append(out, s)
		}
	}
	return out
}

// Transition is one allowed order status move in the choreography.
type Transition struct {
	On    string   // triggering event type
	From  []string // statuses the order may currently be in
	To    string
	Emits string // event published after the move, empty if none
}

// OrderTransitions is the full order status machine. An event arriving while
// the order is outside its From set is a duplicate or a stale delivery and
// the handlers treat it as a no-op.
var OrderTransitions = []Transition{
	{
		On:    event.TypePaymentCreated,
		From:  []string{event.OrderStatusCreated},
		To:    event.OrderStatusPendingPayment,
		Emits: event.TypeOrderPending,
	},
	{
		On:   event.TypePaymentSucceeded,
		From: []string{event.OrderStatusCreated, event.OrderStatusPendingPayment},
		To:   event.OrderStatusCompleted,
	},
	{
		On:    event.TypePaymentFailed,
		From:  []string{event.OrderStatusCreated, event.OrderStatusPendingPayment},
		To:    event.OrderStatusFailed,
		Emits: event.TypeOrderFailed,
	},
	{
		On:    event.TypeExpirationExpired,
		From:  []string{event.OrderStatusCreated, event.OrderStatusPendingPayment},
		To:    event.OrderStatusCancelled,
		Emits: event.TypeOrderCancelled,
	},
}

// Terminal reports whether an order status admits no further transitions.
func Terminal(status string) bool {
	switch status {
	case event.OrderStatusCompleted, event.OrderStatusCancelled, event.OrderStatusFailed:
		return true
	}
	return false
}
