package broker

import (
	"context"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker wraps a RabbitMQ connection and channel bound to one topic
// exchange. Events are published with their type as the routing key; each
// consumer group declares a durable queue and binds the keys it handles.
// A single Broker is safe for concurrent Publish calls: the mutex guards
// both the reconnect path and channel use.
type Broker struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	url      string
}

// New connects to RabbitMQ and declares the topic exchange.
func New(url, exchange string) (*Broker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		log.Printf("Failed to connect to RabbitMQ: %v", err)
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("Failed to open channel: %v", err)
		conn.Close()
		return nil, err
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		log.Printf("Failed to declare exchange %s: %v", exchange, err)
		ch.Close()
		conn.Close()
		return nil, err
	}

	return &Broker{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		url:      url,
	}, nil
}

// ensureConnection redials a dropped connection. Callers hold b.mu.
func (b *Broker) ensureConnection() error {
	if b.conn == nil || b.conn.IsClosed() {
		conn, err := amqp.Dial(b.url)
		if err != nil {
			log.Printf("Failed to reconnect to RabbitMQ: %v", err)
			return err
		}
		b.conn = conn

		b.channel, err = conn.Channel()
		if err != nil {
			log.Printf("Failed to open channel on reconnect: %v", err)
			conn.Close()
			return err
		}
	}
	return nil
}

// Publish sends an already-encoded envelope with the given routing key.
// Messages are marked persistent so they survive a broker restart while
// waiting in a queue.
func (b *Broker) Publish(body []byte, routingKey string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureConnection(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := b.channel.PublishWithContext(ctx,
		b.exchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		log.Printf("Failed to publish %s message: %v", routingKey, err)
		return err
	}
	return nil
}

// DeclareAndBindQueue declares a durable queue and binds it to the exchange
// under each of the given routing keys.
func (b *Broker) DeclareAndBindQueue(queueName string, routingKeys ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureConnection(); err != nil {
		return err
	}

	if _, err := b.channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return err
	}

	for _, key := range routingKeys {
		if err := b.channel.QueueBind(queueName, key, b.exchange, false, nil); err != nil {
			return err
		}
	}
	return nil
}

// Consume starts delivering messages from the queue. Acknowledgement is
// manual: the consumer loop decides per message whether to Ack, drop
// (Reject without requeue), or requeue for redelivery.
func (b *Broker) Consume(queueName string) (<-chan amqp.Delivery, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureConnection(); err != nil {
		return nil, err
	}

	messages, err := b.channel.Consume(queueName, "", false, false, false, false, nil)
	if err != nil {
		log.Printf("Failed to start consuming from %s: %v", queueName, err)
		return nil, err
	}
	return messages, nil
}

// SetQoS limits how many unacknowledged messages the broker pushes to this
// channel at once.
func (b *Broker) SetQoS(prefetchCount int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureConnection(); err != nil {
		return err
	}
	return b.channel.Qos(prefetchCount, 0, false)
}

// Close shuts down the channel and connection.
func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.channel != nil {
		if err := b.channel.Close(); err != nil {
			log.Printf("Failed to close channel: %v", err)
			return err
		}
	}
	if b.conn != nil {
		if err := b.conn.Close(); err != nil {
			log.Printf("Failed to close connection: %v", err)
			return err
		}
	}
	return nil
}
