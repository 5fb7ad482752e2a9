package events

import (
	"ticketing/internal/event"
	"ticketing/internal/tickets/db/models"
)

// Bus is the slice of the broker client the publisher needs.
type Bus interface {
	Publish(body []byte, routingKey string) error
}

// Publisher emits the ticket lifecycle events this service owns.
type Publisher struct {
	bus Bus
}

func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus}
}

// TicketCreated announces a newly listed ticket.
func (p *Publisher) TicketCreated(ticket *models.Ticket) error {
	body, err := event.Encode(event.TicketCreated{
		ID:      ticket.ID,
		Title:   ticket.Title,
		Price:   ticket.Price,
		Version: ticket.Version,
	})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypeTicketCreated)
}

// TicketUpdated announces an accepted ticket mutation, carrying the row's
// new version so replicas can apply updates in order.
func (p *Publisher) TicketUpdated(ticket *models.Ticket) error {
	body, err := event.Encode(event.TicketUpdated{
		ID:      ticket.ID,
		Title:   ticket.Title,
		Price:   ticket.Price,
		Version: ticket.Version,
		OrderID: ticket.OrderID,
	})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypeTicketUpdated)
}
