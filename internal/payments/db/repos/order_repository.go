package repos

import (
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"ticketing/internal/db"
	"ticketing/internal/payments/db/models"
)

// OrderRepository maintains the payments service's read-cached copy of
// orders. Writes come exclusively from the orders consumer.
type OrderRepository struct {
	db *sqlx.DB
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(conn *sqlx.DB) *OrderRepository {
	return &OrderRepository{db: conn}
}

// GetByID retrieves a cached order by its ID.
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

// Insert caches a newly created order.
func (r *OrderRepository) Insert(order *models.Order) error {
	result, err := r.db.Exec(
		"INSERT INTO orders (id, user_id, status, version, price) VALUES ($1, $2, $3, $4, $5) ON CONFLICT (id) DO NOTHING",
		order.ID, order.UserID, order.Status, order.Version, order.Price,
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

// UpdateStatusIfVersion applies a status change announced at
// expectedVersion+1 only if the cached row sits at expectedVersion.
func (r *OrderRepository) UpdateStatusIfVersion(id string, expectedVersion int, status string) (*models.Order, error) {
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
