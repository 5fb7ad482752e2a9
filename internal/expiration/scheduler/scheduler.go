package scheduler

import (
	"log"
	"time"

	"ticketing/internal/expiration/db/models"
)

// ScheduleStore persists pending deadlines across restarts.
type ScheduleStore interface {
	Insert(s *models.ScheduledExpiration) error
	Delete(orderID string) error
	All() ([]models.ScheduledExpiration, error)
}

// Notifier publishes the expiration once a deadline passes.
type Notifier interface {
	OrderExpired(orderID string) error
}

// Scheduler arms one-shot timers for order deadlines. Timers are never
// cancelled; a firing for an order that already completed is absorbed by the
// orders service's terminal check.
type Scheduler struct {
	store      ScheduleStore
	events     Notifier
	logger     *log.Logger
	retryDelay time.Duration
	now        func() time.Time
	after      func(d time.Duration, f func()) // time.AfterFunc, swappable in tests
}

func New(store ScheduleStore, events Notifier, logger *log.Logger) *Scheduler {
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{
		store:      store,
		events:     events,
		logger:     logger,
		retryDelay: 30 * time.Second,
		now:        time.Now,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Schedule persists the deadline and arms a timer for it. A deadline already
// in the past fires immediately. A row that already exists means the order
// was scheduled before; the existing timer stands and this call is a no-op
// for the caller to ack.
func (s *Scheduler) Schedule(orderID string, firesAt time.Time) error {
	if err := s.store.Insert(&models.ScheduledExpiration{OrderID: orderID, FiresAt: firesAt}); err != nil {
		return err
	}
	s.arm(orderID, firesAt)
	return nil
}

// ReArm loads every persisted deadline and arms a timer against its stored
// fires_at. Called once on startup so deadlines survive restarts.
func (s *Scheduler) ReArm() error {
	rows, err := s.store.All()
	if err != nil {
		return err
	}
	for _, row := range rows {
		s.arm(row.OrderID, row.FiresAt)
	}
	if len(rows) > 0 {
		s.logger.Printf("Re-armed %d pending expiration(s)", len(rows))
	}
	return nil
}

func (s *Scheduler) arm(orderID string, firesAt time.Time) {
	delay := firesAt.Sub(s.now())
	if delay <= 0 {
		s.fire(orderID)
		return
	}
	s.after(delay, func() {
		s.fire(orderID)
	})
}

// fire publishes the expiration, then drops the schedule row. If the publish
// fails the row stays put and a retry timer takes over, so the expiration
// recovers without waiting for a restart.
func (s *Scheduler) fire(orderID string) {
	if err := s.events.OrderExpired(orderID); err != nil {
		s.logger.Printf("Failed to publish expiration for order %s, retrying in %s: %v", orderID, s.retryDelay, err)
		s.after(s.retryDelay, func() {
			s.fire(orderID)
		})
		return
	}
	if err := s.store.Delete(orderID); err != nil {
		s.logger.Printf("Failed to delete schedule row for order %s: %v", orderID, err)
	}
}
