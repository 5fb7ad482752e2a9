package events

import (
	"ticketing/internal/event"
	"ticketing/internal/orders/db/models"
)

// Bus is the slice of the broker client the publisher needs.
type Bus interface {
	Publish(body []byte, routingKey string) error
}

// Publisher emits the order lifecycle events this service owns.
type Publisher struct {
	bus Bus
}

func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus}
}

// OrderCreated announces a new order. The reserved ticket's price rides
// along so the payments service knows what to charge.
func (p *Publisher) OrderCreated(order *models.Order, price float64) error {
	body, err := event.Encode(event.OrderCreated{
		ID:        order.ID,
		TicketID:  order.TicketID,
		UserID:    order.UserID,
		Status:    order.Status,
		Version:   order.Version,
		ExpiresAt: order.ExpiresAt,
		Price:     price,
	})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypeOrderCreated)
}

// OrderCancelled announces a cancellation, manual or expiration-driven.
func (p *Publisher) OrderCancelled(order *models.Order) error {
	body, err := event.Encode(event.OrderCancelled{
		ID:       order.ID,
		TicketID: order.TicketID,
		UserID:   order.UserID,
		Status:   order.Status,
		Version:  order.Version,
	})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypeOrderCancelled)
}

// OrderPending announces that payment has been initiated for the order.
func (p *Publisher) OrderPending(order *models.Order) error {
	body, err := event.Encode(event.OrderPending{
		OrderID:  order.ID,
		Status:   order.Status,
		TicketID: order.TicketID,
		Version:  order.Version,
	})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypeOrderPending)
}

// OrderFailed announces that payment for the order failed.
func (p *Publisher) OrderFailed(order *models.Order) error {
	body, err := event.Encode(event.OrderFailed{
		ID:       order.ID,
		TicketID: order.TicketID,
		UserID:   order.UserID,
		Status:   order.Status,
		Version:  order.Version,
	})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypeOrderFailed)
}
