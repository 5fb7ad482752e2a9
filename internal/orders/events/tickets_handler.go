package events

import (
	"fmt"
	"log"

	"ticketing/internal/event"
	"ticketing/internal/orders/db/models"
)

// TicketProjection is the slice of the cached-ticket repository the handler
// needs.
type TicketProjection interface {
	Insert(ticket *models.Ticket) error
	ApplyUpdate(ticket *models.Ticket) (*models.Ticket, error)
}

// TicketsHandler keeps the orders service's ticket cache convergent with
// the tickets service.
type TicketsHandler struct {
	tickets TicketProjection
}

func NewTicketsHandler(tickets TicketProjection) *TicketsHandler {
	return &TicketsHandler{tickets: tickets}
}

func (h *TicketsHandler) Handle(e event.Event) error {
	switch e := e.(type) {
	case *event.TicketCreated:
		return h.cacheTicket(e)
	case *event.TicketUpdated:
		return h.applyUpdate(e)
	default:
		return nil
	}
}

func (h *TicketsHandler) cacheTicket(e *event.TicketCreated) error {
	err := h.tickets.Insert(&models.Ticket{
		ID:      e.ID,
		Title:   e.Title,
		Price:   e.Price,
		Version: e.Version,
	})
	if err != nil {
		return fmt.Errorf("cache ticket %s: %w", e.ID, err)
	}
	log.Printf("Ticket %s cached at version %d", e.ID, e.Version)
	return nil
}

func (h *TicketsHandler) applyUpdate(e *event.TicketUpdated) error {
	updated, err := h.tickets.ApplyUpdate(&models.Ticket{
		ID:      e.ID,
		Title:   e.Title,
		Price:   e.Price,
		Version: e.Version,
		OrderID: e.OrderID,
	})
	if err != nil {
		return fmt.Errorf("apply ticket update %s v%d: %w", e.ID, e.Version, err)
	}
	log.Printf("Ticket %s cache advanced to version %d", updated.ID, updated.Version)
	return nil
}
