package events

import (
	"fmt"
	"log"

	"ticketing/internal/db"
	"ticketing/internal/event"
)

// ExpirationHandler cancels orders whose reservation window elapsed without
// a completed payment.
type ExpirationHandler struct {
	store     OrderStore
	publisher *Publisher
}

func NewExpirationHandler(store OrderStore, publisher *Publisher) *ExpirationHandler {
	return &ExpirationHandler{store: store, publisher: publisher}
}

func (h *ExpirationHandler) Handle(e event.Event) error {
	expired, ok := e.(*event.ExpirationExpired)
	if !ok {
		return nil
	}
	return h.cancelExpired(expired)
}

func (h *ExpirationHandler) cancelExpired(e *event.ExpirationExpired) error {
	order, err := h.store.GetByID(e.OrderID)
	if err != nil {
		return fmt.Errorf("order %s: %w", e.OrderID, err)
	}

	// A payment that settled before the timer fired wins; the late firing is
	// absorbed here, never by cancelling the timer.
	if order.Status == event.OrderStatusCompleted {
		log.Printf("Order %s already completed, ignoring expiration", order.ID)
		return nil
	}
	if order.Status == event.OrderStatusCancelled || order.Status == event.OrderStatusFailed {
		return fmt.Errorf("order %s already %s: %w", order.ID, order.Status, db.ErrAlreadyExists)
	}

	updated, err := h.store.UpdateStatus(order.ID, order.Version, event.OrderStatusCancelled)
	if err != nil {
		return fmt.Errorf("order %s: %w", e.OrderID, err)
	}
	log.Printf("Order %s cancelled by expiration", updated.ID)

	return h.publisher.OrderCancelled(updated)
}
