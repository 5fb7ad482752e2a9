package notifications

import (
	"fmt"

	"ticketing/internal/event"
)

// Handler turns saga failure events into operations alerts. It keeps no
// state; a redelivered event just sends the alert again.
type Handler struct {
	mailer Sender
}

func NewHandler(mailer Sender) *Handler {
	return &Handler{mailer: mailer}
}

func (h *Handler) Handle(e event.Event) error {
	switch ev := e.(type) {
	case *event.OrderCancelled:
		return h.mailer.SendSagaAlert(
			fmt.Sprintf("Order %s cancelled", ev.ID),
			fmt.Sprintf("Order %s for ticket %s (user %s) was cancelled at version %d.", ev.ID, ev.TicketID, ev.UserID, ev.Version),
		)
	case *event.PaymentFailed:
		return h.mailer.SendSagaAlert(
			fmt.Sprintf("Payment failed for order %s", ev.OrderID),
			fmt.Sprintf("A charge for order %s failed: %s", ev.OrderID, ev.Reason),
		)
	default:
		return nil
	}
}
