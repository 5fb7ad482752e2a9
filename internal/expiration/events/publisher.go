package events

import "ticketing/internal/event"

// Bus is the slice of the broker client the publisher needs.
type Bus interface {
	Publish(body []byte, routingKey string) error
}

// Publisher emits expiration events.
type Publisher struct {
	bus Bus
}

func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus}
}

// OrderExpired announces that an order's payment window has elapsed.
func (p *Publisher) OrderExpired(orderID string) error {
	body, err := event.Encode(event.ExpirationExpired{OrderID: orderID})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypeExpirationExpired)
}
