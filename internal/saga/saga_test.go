package saga_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketing/internal/db"
	"ticketing/internal/event"
	expmodels "ticketing/internal/expiration/db/models"
	expevents "ticketing/internal/expiration/events"
	"ticketing/internal/expiration/scheduler"
	"ticketing/internal/notifications"
	omodels "ticketing/internal/orders/db/models"
	oevents "ticketing/internal/orders/events"
	pmodels "ticketing/internal/payments/db/models"
	pevents "ticketing/internal/payments/events"
	"ticketing/internal/saga"
	tmodels "ticketing/internal/tickets/db/models"
	tevents "ticketing/internal/tickets/events"
)

// memBus routes published events to subscribed handlers synchronously,
// standing in for the broker. Handler errors that the consumer loop would
// ack (stale or duplicate deliveries) are absorbed the same way here.
type memBus struct {
	pending  []message
	handlers map[string][]handler
}

type message struct {
	key  string
	body []byte
}

type handler interface {
	Handle(e event.Event) error
}

func newMemBus() *memBus {
	return &memBus{handlers: map[string][]handler{}}
}

func (b *memBus) Publish(body []byte, routingKey string) error {
	b.pending = append(b.pending, message{key: routingKey, body: body})
	return nil
}

// subscribe binds a service's handler to the routing keys the choreography
// table declares for it.
func (b *memBus) subscribe(service string, h handler) {
	for _, sub := range saga.QueuesFor(service) {
		for _, key := range sub.Events {
			b.handlers[key] = append(b.handlers[key], h)
		}
	}
}

func (b *memBus) drain(t *testing.T) {
	t.Helper()
	for len(b.pending) > 0 {
		msg := b.pending[0]
		b.pending = b.pending[1:]

		e, err := event.Decode(msg.body)
		require.NoError(t, err)

		for _, h := range b.handlers[msg.key] {
			if err := h.Handle(e); err != nil && !isStale(err) {
				t.Fatalf("handler for %s: %v", msg.key, err)
			}
		}
	}
}

func isStale(err error) bool {
	return errors.Is(err, db.ErrNotFound) ||
		errors.Is(err, db.ErrVersionConflict) ||
		errors.Is(err, db.ErrAlreadyExists)
}

// In-memory stores mirroring the repositories' compare-and-swap semantics.

type memTicketStore struct {
	rows map[string]tmodels.Ticket
}

func (s *memTicketStore) GetByID(id string) (*tmodels.Ticket, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := row
	return &copied, nil
}

func (s *memTicketStore) Update(ticket *tmodels.Ticket) (*tmodels.Ticket, error) {
	row, ok := s.rows[ticket.ID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if row.Version != ticket.Version {
		return nil, db.ErrVersionConflict
	}
	row.Title = ticket.Title
	row.Price = ticket.Price
	row.OrderID = ticket.OrderID
	row.Version++
	s.rows[ticket.ID] = row
	copied := row
	return &copied, nil
}

type memOrderStore struct {
	rows map[string]omodels.Order
}

func (s *memOrderStore) GetByID(id string) (*omodels.Order, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := row
	return &copied, nil
}

func (s *memOrderStore) UpdateStatus(id string, expectedVersion int, status string) (*omodels.Order, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if row.Version != expectedVersion {
		return nil, db.ErrVersionConflict
	}
	row.Status = status
	row.Version++
	s.rows[id] = row
	copied := row
	return &copied, nil
}

type memTicketProjection struct {
	rows map[string]omodels.Ticket
}

func (s *memTicketProjection) Insert(ticket *omodels.Ticket) error {
	if _, ok := s.rows[ticket.ID]; ok {
		return db.ErrAlreadyExists
	}
	s.rows[ticket.ID] = *ticket
	return nil
}

func (s *memTicketProjection) ApplyUpdate(ticket *omodels.Ticket) (*omodels.Ticket, error) {
	row, ok := s.rows[ticket.ID]
	if !ok {
		return nil, db.ErrNotFound
	}
	if row.Version != ticket.Version-1 {
		return nil, db.ErrVersionConflict
	}
	s.rows[ticket.ID] = *ticket
	copied := *ticket
	return &copied, nil
}

type memOrderProjection struct {
	rows map[string]pmodels.Order
}

func (s *memOrderProjection) Insert(order *pmodels.Order) error {
	if _, ok := s.rows[order.ID]; ok {
		return db.ErrAlreadyExists
	}
	s.rows[order.ID] = *order
	return nil
}

func (s *memOrderProjection) UpdateStatusIfVersion(id string, expectedVersion int, status string) (*pmodels.Order, error) {
	row, ok := s.rows[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	if row.Version != expectedVersion {
		return nil, db.ErrVersionConflict
	}
	row.Status = status
	row.Version++
	s.rows[id] = row
	copied := row
	return &copied, nil
}

type memScheduleStore struct {
	rows map[string]expmodels.ScheduledExpiration
}

func (s *memScheduleStore) Insert(row *expmodels.ScheduledExpiration) error {
	if _, ok := s.rows[row.OrderID]; ok {
		return db.ErrAlreadyExists
	}
	s.rows[row.OrderID] = *row
	return nil
}

func (s *memScheduleStore) Delete(orderID string) error {
	delete(s.rows, orderID)
	return nil
}

func (s *memScheduleStore) All() ([]expmodels.ScheduledExpiration, error) {
	out := make([]expmodels.ScheduledExpiration, 0, len(s.rows))
	for _, r := range s.rows {
		out = append(out, r)
	}
	return out, nil
}

type recordingSender struct {
	subjects []string
}

func (s *recordingSender) SendSagaAlert(subject, body string) error {
	s.subjects = append(s.subjects, subject)
	return nil
}

// choreography wires every service's consumers and stores onto one bus.
type choreography struct {
	bus *memBus

	tickets          *memTicketStore
	orders           *memOrderStore
	ticketProjection *memTicketProjection
	orderProjection  *memOrderProjection
	schedules        *memScheduleStore
	alerts           *recordingSender

	ticketPublisher  *tevents.Publisher
	orderPublisher   *oevents.Publisher
	paymentPublisher *pevents.Publisher
	expPublisher     *expevents.Publisher
}

func newChoreography() *choreography {
	c := &choreography{
		bus:              newMemBus(),
		tickets:          &memTicketStore{rows: map[string]tmodels.Ticket{}},
		orders:           &memOrderStore{rows: map[string]omodels.Order{}},
		ticketProjection: &memTicketProjection{rows: map[string]omodels.Ticket{}},
		orderProjection:  &memOrderProjection{rows: map[string]pmodels.Order{}},
		schedules:        &memScheduleStore{rows: map[string]expmodels.ScheduledExpiration{}},
		alerts:           &recordingSender{},
	}

	c.ticketPublisher = tevents.NewPublisher(c.bus)
	c.orderPublisher = oevents.NewPublisher(c.bus)
	c.paymentPublisher = pevents.NewPublisher(c.bus)
	c.expPublisher = expevents.NewPublisher(c.bus)

	sched := scheduler.New(c.schedules, c.expPublisher, nil)

	c.bus.subscribe(saga.ServiceTickets, tevents.NewOrdersHandler(c.tickets, c.ticketPublisher))
	c.bus.subscribe(saga.ServiceOrders, &ordersConsumer{
		payments:   oevents.NewPaymentsHandler(c.orders, c.orderPublisher),
		expiration: oevents.NewExpirationHandler(c.orders, c.orderPublisher),
		tickets:    oevents.NewTicketsHandler(c.ticketProjection),
	})
	c.bus.subscribe(saga.ServicePayments, pevents.NewOrdersHandler(c.orderProjection))
	c.bus.subscribe(saga.ServiceExpiration, expevents.NewOrdersHandler(sched))
	c.bus.subscribe(saga.ServiceNotifications, notifications.NewHandler(c.alerts))

	return c
}

// ordersConsumer fans one delivery across the orders service's handlers the
// way its three queues would.
type ordersConsumer struct {
	payments   *oevents.PaymentsHandler
	expiration *oevents.ExpirationHandler
	tickets    *oevents.TicketsHandler
}

func (c *ordersConsumer) Handle(e event.Event) error {
	switch e.(type) {
	case *event.PaymentCreated, *event.PaymentSucceeded, *event.PaymentFailed:
		return c.payments.Handle(e)
	case *event.ExpirationExpired:
		return c.expiration.Handle(e)
	case *event.TicketCreated, *event.TicketUpdated:
		return c.tickets.Handle(e)
	default:
		return nil
	}
}

// listTicket plays the tickets service's create API: persist, then announce.
func (c *choreography) listTicket(t *testing.T, id, title string, price float64) {
	t.Helper()
	ticket := tmodels.Ticket{ID: id, Title: title, Price: price, Version: 0}
	c.tickets.rows[id] = ticket
	require.NoError(t, c.ticketPublisher.TicketCreated(&ticket))
	c.bus.drain(t)
}

// placeOrder plays the orders service's create API against the local ticket
// projection.
func (c *choreography) placeOrder(t *testing.T, orderID, ticketID, userID string, expiresAt time.Time) {
	t.Helper()
	ticket, ok := c.ticketProjection.rows[ticketID]
	require.True(t, ok, "ticket %s not in projection", ticketID)
	require.Nil(t, ticket.OrderID, "ticket %s already reserved", ticketID)

	order := omodels.Order{
		ID:        orderID,
		TicketID:  ticketID,
		UserID:    userID,
		Status:    event.OrderStatusCreated,
		Version:   0,
		ExpiresAt: expiresAt,
	}
	c.orders.rows[orderID] = order
	require.NoError(t, c.orderPublisher.OrderCreated(&order, ticket.Price))
	c.bus.drain(t)
}

func TestChoreographyCompletesOrder(t *testing.T) {
	c := newChoreography()

	c.listTicket(t, "t1", "concert", 25)
	c.placeOrder(t, "o1", "t1", "u1", time.Now().Add(15*time.Minute))

	// Order creation reserved the ticket everywhere and armed the deadline.
	reserved := c.tickets.rows["t1"]
	require.NotNil(t, reserved.OrderID)
	assert.Equal(t, "o1", *reserved.OrderID)
	assert.Equal(t, 1, reserved.Version)
	projected := c.ticketProjection.rows["t1"]
	require.NotNil(t, projected.OrderID)
	assert.Equal(t, "o1", *projected.OrderID)
	assert.Contains(t, c.schedules.rows, "o1")
	assert.Equal(t, event.OrderStatusCreated, c.orderProjection.rows["o1"].Status)

	// The payments service initiates a charge, then reports success.
	require.NoError(t, c.paymentPublisher.PaymentCreated("o1", "p1"))
	c.bus.drain(t)
	assert.Equal(t, event.OrderStatusPendingPayment, c.orders.rows["o1"].Status)
	assert.Equal(t, 1, c.orders.rows["o1"].Version)
	assert.Equal(t, event.OrderStatusPendingPayment, c.orderProjection.rows["o1"].Status)

	require.NoError(t, c.paymentPublisher.PaymentSucceeded("o1", "p1"))
	c.bus.drain(t)

	completed := c.orders.rows["o1"]
	assert.Equal(t, event.OrderStatusCompleted, completed.Status)
	assert.Equal(t, 2, completed.Version)

	// Completion is not broadcast; the ticket stays reserved and the
	// payments projection keeps its last announced status.
	assert.Equal(t, "o1", *c.tickets.rows["t1"].OrderID)
	assert.Equal(t, event.OrderStatusPendingPayment, c.orderProjection.rows["o1"].Status)
	assert.Empty(t, c.alerts.subjects)
}

func TestExpirationCancelsUnpaidOrder(t *testing.T) {
	c := newChoreography()

	c.listTicket(t, "t1", "concert", 25)
	// A deadline already in the past fires while the creation event drains.
	c.placeOrder(t, "o1", "t1", "u1", time.Now().Add(-time.Second))

	cancelled := c.orders.rows["o1"]
	assert.Equal(t, event.OrderStatusCancelled, cancelled.Status)
	assert.Equal(t, 1, cancelled.Version)

	// The cancellation propagated: ticket released, projections converged,
	// schedule row gone, operations alerted.
	assert.Nil(t, c.tickets.rows["t1"].OrderID)
	assert.Equal(t, 2, c.tickets.rows["t1"].Version)
	assert.Nil(t, c.ticketProjection.rows["t1"].OrderID)
	assert.Equal(t, event.OrderStatusCancelled, c.orderProjection.rows["o1"].Status)
	assert.NotContains(t, c.schedules.rows, "o1")
	require.Len(t, c.alerts.subjects, 1)
	assert.Contains(t, c.alerts.subjects[0], "o1")
}

func TestLateExpirationIsAbsorbedAfterCompletion(t *testing.T) {
	c := newChoreography()

	c.listTicket(t, "t1", "concert", 25)
	c.placeOrder(t, "o1", "t1", "u1", time.Now().Add(15*time.Minute))
	require.NoError(t, c.paymentPublisher.PaymentCreated("o1", "p1"))
	c.bus.drain(t)
	require.NoError(t, c.paymentPublisher.PaymentSucceeded("o1", "p1"))
	c.bus.drain(t)
	require.Equal(t, event.OrderStatusCompleted, c.orders.rows["o1"].Status)

	// The deadline timer fires after the payment settled.
	require.NoError(t, c.expPublisher.OrderExpired("o1"))
	c.bus.drain(t)

	assert.Equal(t, event.OrderStatusCompleted, c.orders.rows["o1"].Status)
	assert.Equal(t, 2, c.orders.rows["o1"].Version)
	assert.Equal(t, "o1", *c.tickets.rows["t1"].OrderID, "completed order keeps its ticket")
	assert.Empty(t, c.alerts.subjects)
}

func TestPaymentFailureFailsOrderAndAlerts(t *testing.T) {
	c := newChoreography()

	c.listTicket(t, "t1", "concert", 25)
	c.placeOrder(t, "o1", "t1", "u1", time.Now().Add(15*time.Minute))
	require.NoError(t, c.paymentPublisher.PaymentCreated("o1", "p1"))
	c.bus.drain(t)

	require.NoError(t, c.paymentPublisher.PaymentFailed("o1", "card declined"))
	c.bus.drain(t)

	failed := c.orders.rows["o1"]
	assert.Equal(t, event.OrderStatusFailed, failed.Status)
	assert.Equal(t, 2, failed.Version)
	assert.Equal(t, event.OrderStatusFailed, c.orderProjection.rows["o1"].Status)
	require.Len(t, c.alerts.subjects, 1)
	assert.Contains(t, c.alerts.subjects[0], "o1")
}

func TestDuplicateDeliveriesKeepVersionsMonotonic(t *testing.T) {
	c := newChoreography()

	c.listTicket(t, "t1", "concert", 25)
	c.placeOrder(t, "o1", "t1", "u1", time.Now().Add(15*time.Minute))

	// The broker redelivers payment.created three times.
	for i := 0; i < 3; i++ {
		require.NoError(t, c.paymentPublisher.PaymentCreated("o1", "p1"))
		c.bus.drain(t)
	}

	assert.Equal(t, event.OrderStatusPendingPayment, c.orders.rows["o1"].Status)
	assert.Equal(t, 1, c.orders.rows["o1"].Version, "duplicates must not advance the version")
	assert.Equal(t, 1, c.orderProjection.rows["o1"].Version)
	assert.Equal(t, 1, c.tickets.rows["t1"].Version)
}

func TestTransitionTableMatchesTerminalStates(t *testing.T) {
	for _, tr := range saga.OrderTransitions {
		for _, from := range tr.From {
			assert.False(t, saga.Terminal(from), "transition on %s starts from terminal state %s", tr.On, from)
		}
	}
	assert.True(t, saga.Terminal(event.OrderStatusCompleted))
	assert.True(t, saga.Terminal(event.OrderStatusCancelled))
	assert.True(t, saga.Terminal(event.OrderStatusFailed))
	assert.False(t, saga.Terminal(event.OrderStatusCreated))
	assert.False(t, saga.Terminal(event.OrderStatusPendingPayment))
}
