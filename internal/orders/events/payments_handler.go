package events

import (
	"fmt"
	"log"
	"slices"

	"ticketing/internal/db"
	"ticketing/internal/event"
	"ticketing/internal/orders/db/models"
)

// OrderStore is the slice of the order repository the handlers need.
type OrderStore interface {
	GetByID(id string) (*models.Order, error)
	UpdateStatus(id string, expectedVersion int, status string) (*models.Order, error)
}

// PaymentsHandler advances orders through the payment leg of their
// lifecycle as the payments service reports progress.
type PaymentsHandler struct {
	store     OrderStore
	publisher *Publisher
}

func NewPaymentsHandler(store OrderStore, publisher *Publisher) *PaymentsHandler {
	return &PaymentsHandler{store: store, publisher: publisher}
}

func (h *PaymentsHandler) Handle(e event.Event) error {
	switch e := e.(type) {
	case *event.PaymentCreated:
		return h.markPending(e)
	case *event.PaymentSucceeded:
		return h.complete(e)
	case *event.PaymentFailed:
		return h.fail(e)
	default:
		return nil
	}
}

func (h *PaymentsHandler) markPending(e *event.PaymentCreated) error {
	order, err := transition(h.store, e.OrderID, []string{event.OrderStatusCreated}, event.OrderStatusPendingPayment)
	if err != nil {
		return err
	}
	log.Printf("Order %s set to pending_payment", order.ID)
	return h.publisher.OrderPending(order)
}

func (h *PaymentsHandler) complete(e *event.PaymentSucceeded) error {
	from := []string{event.OrderStatusCreated, event.OrderStatusPendingPayment}
	order, err := transition(h.store, e.OrderID, from, event.OrderStatusCompleted)
	if err != nil {
		return err
	}
	log.Printf("Order %s completed", order.ID)
	return nil
}

func (h *PaymentsHandler) fail(e *event.PaymentFailed) error {
	from := []string{event.OrderStatusCreated, event.OrderStatusPendingPayment}
	order, err := transition(h.store, e.OrderID, from, event.OrderStatusFailed)
	if err != nil {
		return err
	}
	log.Printf("Order %s failed: %s", order.ID, e.Reason)
	return h.publisher.OrderFailed(order)
}

// transition applies a status change if the order is in one of the allowed
// starting states. The version read here feeds the store's compare-and-swap,
// so two racing deliveries of the same logical transition cannot both land.
func transition(store OrderStore, orderID string, from []string, to string) (*models.Order, error) {
	order, err := store.GetByID(orderID)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", orderID, err)
	}

	if order.Status == to {
		return nil, fmt.Errorf("order %s already %s: %w", orderID, to, db.ErrAlreadyExists)
	}
	if !slices.Contains(from, order.Status) {
		return nil, fmt.Errorf("order %s is %s, cannot move to %s: %w", orderID, order.Status, to, db.ErrVersionConflict)
	}

	updated, err := store.UpdateStatus(order.ID, order.Version, to)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", orderID, err)
	}
	return updated, nil
}
