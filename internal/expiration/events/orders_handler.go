package events

import (
	"time"

	"ticketing/internal/event"
)

// ScheduleSink arms a deadline for an order.
type ScheduleSink interface {
	Schedule(orderID string, firesAt time.Time) error
}

// OrdersHandler schedules an expiration for every order created.
type OrdersHandler struct {
	scheduler ScheduleSink
}

func NewOrdersHandler(scheduler ScheduleSink) *OrdersHandler {
	return &OrdersHandler{scheduler: scheduler}
}

func (h *OrdersHandler) Handle(e event.Event) error {
	created, ok := e.(*event.OrderCreated)
	if !ok {
		return nil
	}
	return h.scheduler.Schedule(created.ID, created.ExpiresAt)
}
