package events

import (
	"fmt"
	"log"

	"ticketing/internal/db"
	"ticketing/internal/event"
	"ticketing/internal/tickets/db/models"
)

// TicketStore is the slice of the ticket repository the handler needs.
type TicketStore interface {
	GetByID(id string) (*models.Ticket, error)
	Update(ticket *models.Ticket) (*models.Ticket, error)
}

// OrdersHandler reacts to order lifecycle events: it reserves the ticket
// when an order is created and releases it when that order is cancelled.
type OrdersHandler struct {
	store     TicketStore
	publisher *Publisher
}

func NewOrdersHandler(store TicketStore, publisher *Publisher) *OrdersHandler {
	return &OrdersHandler{store: store, publisher: publisher}
}

// Handle dispatches one decoded event. Types this service does not consume
// are ignored.
func (h *OrdersHandler) Handle(e event.Event) error {
	switch e := e.(type) {
	case *event.OrderCreated:
		return h.reserveTicket(e)
	case *event.OrderCancelled:
		return h.releaseTicket(e)
	default:
		return nil
	}
}

func (h *OrdersHandler) reserveTicket(e *event.OrderCreated) error {
	ticket, err := h.store.GetByID(e.TicketID)
	if err != nil {
		return fmt.Errorf("reserve ticket %s: %w", e.TicketID, err)
	}

	if ticket.Reserved() {
		if *ticket.OrderID == e.ID {
			// Redelivery of an order we already reserved for.
			return fmt.Errorf("ticket %s already reserved by order %s: %w", ticket.ID, e.ID, db.ErrAlreadyExists)
		}
		// A ticket has at most one reserving order at a time.
		return fmt.Errorf("ticket %s held by order %s: %w", ticket.ID, *ticket.OrderID, db.ErrVersionConflict)
	}

	ticket.OrderID = &e.ID
	updated, err := h.store.Update(ticket)
	if err != nil {
		return fmt.Errorf("reserve ticket %s: %w", ticket.ID, err)
	}
	log.Printf("Ticket %s reserved for order %s", updated.ID, e.ID)

	return h.publisher.TicketUpdated(updated)
}

func (h *OrdersHandler) releaseTicket(e *event.OrderCancelled) error {
	ticket, err := h.store.GetByID(e.TicketID)
	if err != nil {
		return fmt.Errorf("release ticket %s: %w", e.TicketID, err)
	}

	// Only the reserving order may release the ticket; anything else is a
	// stale or duplicate cancellation.
	if !ticket.Reserved() || *ticket.OrderID != e.ID {
		return fmt.Errorf("ticket %s not reserved by order %s: %w", ticket.ID, e.ID, db.ErrNotFound)
	}

	ticket.OrderID = nil
	updated, err := h.store.Update(ticket)
	if err != nil {
		return fmt.Errorf("release ticket %s: %w", ticket.ID, err)
	}
	log.Printf("Ticket %s released by cancelled order %s", updated.ID, e.ID)

	return h.publisher.TicketUpdated(updated)
}
