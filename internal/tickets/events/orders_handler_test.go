package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/db"
	"ticketing/internal/event"
	"ticketing/internal/tickets/db/models"
)

// memTicketStore implements the version check the real repository enforces
// in SQL.
type memTicketStore struct {
	rows map[string]models.Ticket
}

func newMemTicketStore(tickets ...models.Ticket) *memTicketStore {
	s := &memTicketStore{rows: map[string]models.Ticket{}}
	for _, t := range tickets {
		s.rows[t.ID] = t
	}
	return s
}

func (s *memTicketStore) GetByID(id string) (*models.Ticket, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := row
	return &copied, nil
}

func (s *memTicketStore) Update(ticket *models.Ticket) (*models.Ticket, error) {
	row, ok := s.rows[ticket.ID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if row.Version != ticket.Version {
		return nil, db.ErrVersionConflict
	}
	updated := *ticket
	updated.Version++
	s.rows[ticket.ID] = updated
	copied := updated
	return &copied, nil
}

// recordingBus captures everything published, decoded back into typed events.
type recordingBus struct {
	published []event.Event
}

func (b *recordingBus) Publish(body []byte, routingKey string) error {
	e, err := event.Decode(body)
	if err != nil {
		return err
	}
	b.published = append(b.published, e)
	return nil
}

func orderCreated(orderID, ticketID string) *event.OrderCreated {
	return &event.OrderCreated{
		ID:        orderID,
		TicketID:  ticketID,
		UserID:    "u1",
		Status:    event.OrderStatusCreated,
		Version:   0,
		ExpiresAt: time.Now().Add(15 * time.Minute),
	}
}

func TestReserveTicketOnOrderCreated(t *testing.T) {
	store := newMemTicketStore(models.Ticket{ID: "t1", Title: "concert", Price: 20, Version: 0})
	bus := &recordingBus{}
	handler := NewOrdersHandler(store, NewPublisher(bus))

	err := handler.Handle(orderCreated("o1", "t1"))
	require.NoError(t, err)

	ticket, _ := store.GetByID("t1")
	require.NotNil(t, ticket.OrderID)
	assert.Equal(t, "o1", *ticket.OrderID)
	assert.Equal(t, 1, ticket.Version)

	require.Len(t, bus.published, 1)
	updated := bus.published[0].(*event.TicketUpdated)
	assert.Equal(t, 1, updated.Version)
	require.NotNil(t, updated.OrderID)
	assert.Equal(t, "o1", *updated.OrderID)
}

func TestReserveIsIdempotentAcrossRedelivery(t *testing.T) {
	store := newMemTicketStore(models.Ticket{ID: "t1", Version: 0})
	bus := &recordingBus{}
	handler := NewOrdersHandler(store, NewPublisher(bus))

	require.NoError(t, handler.Handle(orderCreated("o1", "t1")))

	err := handler.Handle(orderCreated("o1", "t1"))
	assert.ErrorIs(t, err, db.ErrAlreadyExists)

	ticket, _ := store.GetByID("t1")
	assert.Equal(t, 1, ticket.Version, "duplicate delivery must not advance the version")
	assert.Len(t, bus.published, 1, "duplicate delivery must not emit a second update")
}

func TestReserveRejectsSecondOrder(t *testing.T) {
	store := newMemTicketStore(models.Ticket{ID: "t1", Version: 0})
	handler := NewOrdersHandler(store, NewPublisher(&recordingBus{}))

	require.NoError(t, handler.Handle(orderCreated("o1", "t1")))

	err := handler.Handle(orderCreated("o2", "t1"))
	assert.ErrorIs(t, err, db.ErrVersionConflict)

	ticket, _ := store.GetByID("t1")
	assert.Equal(t, "o1", *ticket.OrderID)
}

func TestReserveUnknownTicketSkips(t *testing.T) {
	handler := NewOrdersHandler(newMemTicketStore(), NewPublisher(&recordingBus{}))

	err := handler.Handle(orderCreated("o1", "missing"))
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestReleaseTicketOnOrderCancelled(t *testing.T) {
	orderID := "o1"
	store := newMemTicketStore(models.Ticket{ID: "t1", Version: 1, OrderID: &orderID})
	bus := &recordingBus{}
	handler := NewOrdersHandler(store, NewPublisher(bus))

	err := handler.Handle(&event.OrderCancelled{
		ID:       "o1",
		TicketID: "t1",
		UserID:   "u1",
		Status:   event.OrderStatusCancelled,
		Version:  1,
	})
	require.NoError(t, err)

	ticket, _ := store.GetByID("t1")
	assert.Nil(t, ticket.OrderID)
	assert.Equal(t, 2, ticket.Version)

	require.Len(t, bus.published, 1)
	assert.Nil(t, bus.published[0].(*event.TicketUpdated).OrderID)
}

func TestReleaseIgnoresMismatchedOrder(t *testing.T) {
	orderID := "o1"
	store := newMemTicketStore(models.Ticket{ID: "t1", Version: 1, OrderID: &orderID})
	bus := &recordingBus{}
	handler := NewOrdersHandler(store, NewPublisher(bus))

	err := handler.Handle(&event.OrderCancelled{
		ID:       "o2",
		TicketID: "t1",
		UserID:   "u1",
		Status:   event.OrderStatusCancelled,
		Version:  1,
	})
	assert.ErrorIs(t, err, db.ErrNotFound)

	ticket, _ := store.GetByID("t1")
	assert.Equal(t, "o1", *ticket.OrderID, "mismatched cancellation must not release the ticket")
	assert.Empty(t, bus.published)
}

func TestUnconsumedEventTypesAreIgnored(t *testing.T) {
	handler := NewOrdersHandler(newMemTicketStore(), NewPublisher(&recordingBus{}))

	err := handler.Handle(&event.PaymentSucceeded{OrderID: "o1"})
	assert.NoError(t, err)
}
