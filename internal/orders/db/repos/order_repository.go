package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"ticketing/internal/db"
	"ticketing/internal/orders/db/models"
)

// OrderRepository handles database operations for orders.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(conn *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: conn}
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(id string) (*models.Order, error) {
	var order models.Order
	err := r.db.Get(&order, "SELECT * FROM orders WHERE id=$1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

// Insert stores a new order at version 0.
func (r *OrderRepository) Insert(order *models.Order) error {
	result, err := r.db.Exec(
		"INSERT INTO orders (id, ticket_id, user_id, status, version, expires_at) VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT (id) DO NOTHING",
		order.ID, order.TicketID, order.UserID, order.Status, order.Version, order.ExpiresAt,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return db.ErrAlreadyExists
	}
	return nil
}

// UpdateStatus moves the order to status if the stored version still matches
// expectedVersion, bumping the version by one. Concurrent or duplicate
// deliveries race here and exactly one wins; the rest observe
// db.ErrVersionConflict.
func (r *OrderRepository) UpdateStatus(id string, expectedVersion int, status string) (*models.Order, error) {
	var updated models.Order
	err := r.db.QueryRowx(
		"UPDATE orders SET status=$1, version=version+1 WHERE id=$2 AND version=$3 RETURNING *",
		status, id, expectedVersion,
	).StructScan(&updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.missReason(id)
		}
		return nil, err
	}
	return &updated, nil
}

func (r *OrderRepository) missReason(id string) error {
	var exists bool
	if err := r.db.Get(&exists, "SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)", id); err != nil {
		return err
	}
	if !exists {
		return db.ErrNotFound
	}
	return db.ErrVersionConflict
}
