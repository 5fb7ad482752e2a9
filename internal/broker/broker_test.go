package broker

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newDisconnectedBroker() *Broker {
	return &Broker{
		conn:     nil,
		channel:  nil,
		exchange: "test-exchange",
		url:      "amqp://localhost:1", // nothing listening
	}
}

func TestEnsureConnectionFailsWithoutServer(t *testing.T) {
	b := newDisconnectedBroker()

	err := b.ensureConnection()
	assert.Error(t, err)
}

func TestPublishFailsWithoutConnection(t *testing.T) {
	b := newDisconnectedBroker()

	err := b.Publish([]byte(`{"type":"ticket.created"}`), "ticket.created")
	assert.Error(t, err)
}

func TestDeclareAndBindQueueFailsWithoutConnection(t *testing.T) {
	b := newDisconnectedBroker()

	err := b.DeclareAndBindQueue("test-queue", "order.created", "order.cancelled")
	assert.Error(t, err)
}

// Concurrent publishers both hit the reconnect path; the race detector
// flags any unguarded access to the shared connection state.
func TestConcurrentPublishDuringReconnectIsSerialized(t *testing.T) {
	b := newDisconnectedBroker()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := b.Publish([]byte(`{"type":"ticket.created"}`), "ticket.created")
			assert.Error(t, err)
		}()
	}
	wg.Wait()
}

func TestCloseIsNilSafe(t *testing.T) {
	b := newDisconnectedBroker()

	assert.NoError(t, b.Close())
}
