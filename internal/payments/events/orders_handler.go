package events

import (
	"fmt"
	"log"

	"ticketing/internal/event"
	"ticketing/internal/payments/db/models"
)

// OrderProjection is the slice of the cached-order repository the handler
// needs.
type OrderProjection interface {
	Insert(order *models.Order) error
	UpdateStatusIfVersion(id string, expectedVersion int, status string) (*models.Order, error)
}

// OrdersHandler keeps the payments service's order cache convergent with
// the orders service. Status changes are gated on the version the event
// announces, so duplicates and out-of-order deliveries fall out as store
// conflicts.
type OrdersHandler struct {
	orders OrderProjection
}

func NewOrdersHandler(orders OrderProjection) *OrdersHandler {
	return &OrdersHandler{orders: orders}
}

func (h *OrdersHandler) Handle(e event.Event) error {
	switch e := e.(type) {
	case *event.OrderCreated:
		return h.cacheOrder(e)
	case *event.OrderCancelled:
		return h.applyStatus(e.ID, e.Version, e.Status)
	case *event.OrderPending:
		return h.applyStatus(e.OrderID, e.Version, e.Status)
	case *event.OrderFailed:
		return h.applyStatus(e.ID, e.Version, e.Status)
	default:
		return nil
	}
}

func (h *OrdersHandler) cacheOrder(e *event.OrderCreated) error {
	err := h.orders.Insert(&models.Order{
		ID:      e.ID,
		UserID:  e.UserID,
		Status:  e.Status,
		Version: e.Version,
		Price:   e.Price,
	})
	if err != nil {
		return fmt.Errorf("cache order %s: %w", e.ID, err)
	}
	log.Printf("Order %s cached at version %d", e.ID, e.Version)
	return nil
}

func (h *OrdersHandler) applyStatus(orderID string, version int, status string) error {
	updated, err := h.orders.UpdateStatusIfVersion(orderID, version-1, status)
	if err != nil {
		return fmt.Errorf("apply order %s v%d: %w", orderID, version, err)
	}
	log.Printf("Order %s cache now %s at version %d", updated.ID, updated.Status, updated.Version)
	return nil
}
