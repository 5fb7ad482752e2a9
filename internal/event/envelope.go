package event

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownType is returned by Decode for a well-formed envelope whose type
// this binary does not recognize. Consumers ack and skip these so that new
// event types can be rolled out without breaking older services.
var ErrUnknownType = errors.New("unknown event type")

// DecodeError reports an envelope that cannot be processed: malformed JSON,
// a missing type discriminator, or a missing required field. These are never
// retried; the consumer drops the message.
type DecodeError struct {
	Type   string
	Reason string
	Cause  error
}

func (e *DecodeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("decode %s: %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("decode envelope: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// variants is the closed set of event types this codec accepts. Each entry
// names the JSON fields that must be present for the type; presence is
// checked on the raw envelope so that zero values (version 0, price 0) still
// count as supplied.
var variants = map[string]struct {
	required []string
	newEvent func() Event
}{
	TypeTicketCreated: {
		required: []string{"id", "title", "price", "version"},
		newEvent: func() Event { return &TicketCreated{} },
	},
	TypeTicketUpdated: {
		required: []string{"id", "title", "price", "version"},
		newEvent: func() Event { return &TicketUpdated{} },
	},
	TypeOrderCreated: {
		required: []string{"id", "ticketId", "userId", "status", "version", "expiresAt"},
		newEvent: func() Event { return &OrderCreated{} },
	},
	TypeOrderCancelled: {
		required: []string{"id", "ticketId", "userId", "status", "version"},
		newEvent: func() Event { return &OrderCancelled{} },
	},
	TypeOrderPending: {
		required: []string{"orderId", "status", "ticketId", "version"},
		newEvent: func() Event { return &OrderPending{} },
	},
	TypeOrderFailed: {
		required: []string{"id", "ticketId", "userId", "status", "version"},
		newEvent: func() Event { return &OrderFailed{} },
	},
	TypePaymentCreated: {
		required: []string{"orderId"},
		newEvent: func() Event { return &PaymentCreated{} },
	},
	TypePaymentSucceeded: {
		required: []string{"orderId"},
		newEvent: func() Event { return &PaymentSucceeded{} },
	},
	TypePaymentFailed: {
		required: []string{"orderId"},
		newEvent: func() Event { return &PaymentFailed{} },
	},
	TypeExpirationExpired: {
		required: []string{"orderId"},
		newEvent: func() Event { return &ExpirationExpired{} },
	},
}

// Encode serializes an event into the flat envelope format
// {"type": "...", ...payload fields}.
func Encode(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("marshal %s: %w", e.EventType(), err)
	}
	fields["type"], _ = json.Marshal(e.EventType())

	return json.Marshal(fields)
}

// Decode parses an envelope into its typed payload. It returns a *DecodeError
// for malformed envelopes and ErrUnknownType for types outside the closed set.
func Decode(body []byte) (Event, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, &DecodeError{Reason: "malformed JSON", Cause: err}
	}

	rawType, ok := fields["type"]
	if !ok {
		return nil, &DecodeError{Reason: "missing type field"}
	}
	var eventType string
	if err := json.Unmarshal(rawType, &eventType); err != nil {
		return nil, &DecodeError{Reason: "non-string type field", Cause: err}
	}

	variant, ok := variants[eventType]
	if !ok {
		return nil, ErrUnknownType
	}

	for _, field := range variant.required {
		if _, ok := fields[field]; !ok {
			return nil, &DecodeError{Type: eventType, Reason: "missing required field " + field}
		}
	}

	e := variant.newEvent()
	if err := json.Unmarshal(body, e); err != nil {
		return nil, &DecodeError{Type: eventType, Reason: "payload does not match schema", Cause: err}
	}
	return e, nil
}
