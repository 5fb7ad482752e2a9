package events

import (
	"ticketing/internal/event"
)

// Bus is the slice of the broker client the publisher needs.
type Bus interface {
	Publish(body []byte, routingKey string) error
}

// Publisher emits the payment lifecycle events this service owns.
type Publisher struct {
	bus Bus
}

func NewPublisher(bus Bus) *Publisher {
	return &Publisher{bus: bus}
}

// PaymentCreated announces that a charge attempt has been initiated.
func (p *Publisher) PaymentCreated(orderID, paymentID string) error {
	body, err := event.Encode(event.PaymentCreated{OrderID: orderID, PaymentID: paymentID})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypePaymentCreated)
}

// PaymentSucceeded announces a settled charge.
func (p *Publisher) PaymentSucceeded(orderID, paymentID string) error {
	body, err := event.Encode(event.PaymentSucceeded{OrderID: orderID, PaymentID: paymentID})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypePaymentSucceeded)
}

// PaymentFailed announces a declined or errored charge.
func (p *Publisher) PaymentFailed(orderID, reason string) error {
	body, err := event.Encode(event.PaymentFailed{OrderID: orderID, Reason: reason})
	if err != nil {
		return err
	}
	return p.bus.Publish(body, event.TypePaymentFailed)
}
