// Package consumer runs the per-queue message loops that drive the saga.
// Every service wires one Consumer per subscribed queue; the loop decodes
// each envelope, hands it to the service's handler, and translates the
// outcome into an acknowledgement decision.
package consumer

import (
	"context"
	"errors"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"ticketing/internal/db"
	"ticketing/internal/event"
)

// Handler applies one decoded event to the service's local state. Returning
// one of the db sentinel errors marks the message as a stale or duplicate
// delivery; any other error is treated as transient and the message is
// requeued.
type Handler interface {
	Handle(e event.Event) error
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(e event.Event) error

func (f HandlerFunc) Handle(e event.Event) error { return f(e) }

// Source is the slice of the broker client a consumer needs.
type Source interface {
	DeclareAndBindQueue(queueName string, routingKeys ...string) error
	SetQoS(prefetchCount int) error
	Consume(queueName string) (<-chan amqp.Delivery, error)
}

// Consumer is a long-lived sequential loop over one queue. Messages are
// processed one at a time (prefetch 1), which preserves the queue's FIFO
// order; loops for different queues run concurrently with no ordering
// guarantee between them.
type Consumer struct {
	source  Source
	queue   string
	keys    []string
	handler Handler
	wg      sync.WaitGroup
}

// New creates a consumer for the queue, bound to the given routing keys.
func New(source Source, queue string, handler Handler, routingKeys ...string) *Consumer {
	return &Consumer{
		source:  source,
		queue:   queue,
		keys:    routingKeys,
		handler: handler,
	}
}

// Start declares and binds the queue, then launches the message loop. The
// loop exits when ctx is cancelled or the delivery channel closes; Wait
// blocks until any in-flight message has been fully handled.
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.source.DeclareAndBindQueue(c.queue, c.keys...); err != nil {
		return err
	}
	if err := c.source.SetQoS(1); err != nil {
		return err
	}
	messages, err := c.source.Consume(c.queue)
	if err != nil {
		return err
	}

	c.wg.Add(1)
	go c.run(ctx, messages)

	log.Printf("[%s] consumer started", c.queue)
	return nil
}

// Wait blocks until the message loop has drained and returned.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) run(ctx context.Context, messages <-chan amqp.Delivery) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			log.Printf("[%s] consumer shutting down", c.queue)
			return
		case msg, ok := <-messages:
			if !ok {
				log.Printf("[%s] delivery channel closed", c.queue)
				return
			}
			c.process(msg)
		}
	}
}

// process classifies the outcome of one message:
//
//   - undecodable envelope: dropped (rejected without requeue), never retried
//   - unknown event type: acked, skipped for forward compatibility
//   - stale/duplicate (store sentinel): acked, the row already superseded it
//   - any other handler error: requeued, redelivered at least once
func (c *Consumer) process(msg amqp.Delivery) {
	e, err := event.Decode(msg.Body)
	if err != nil {
		if errors.Is(err, event.ErrUnknownType) {
			msg.Ack(false)
			return
		}
		log.Printf("[%s] dropping undecodable message: %v", c.queue, err)
		msg.Reject(false)
		return
	}

	if err := c.handler.Handle(e); err != nil {
		if isStale(err) {
			log.Printf("[%s] skipping %s: %v", c.queue, e.EventType(), err)
			msg.Ack(false)
			return
		}
		log.Printf("[%s] requeueing %s: %v", c.queue, e.EventType(), err)
		msg.Reject(true)
		return
	}

	msg.Ack(false)
}

func isStale(err error) bool {
	return errors.Is(err, db.ErrNotFound) ||
		errors.Is(err, db.ErrVersionConflict) ||
		errors.Is(err, db.ErrAlreadyExists)
}
