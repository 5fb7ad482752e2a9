package repos

import (
	"github.com/jmoiron/sqlx"

	"ticketing/internal/db"
	"ticketing/internal/expiration/db/models"
)

// ExpirationRepository handles database operations for scheduled expirations.
type ExpirationRepository struct {
	db *sqlx.DB
}

// NewExpirationRepository creates a new ExpirationRepository.
func NewExpirationRepository(conn *sqlx.DB) *ExpirationRepository {
	return &ExpirationRepository{db: conn}
}

// Insert stores a schedule row for an order.
func (r *ExpirationRepository) Insert(s *models.ScheduledExpiration) error {
	result, err := r.db.Exec(
		"INSERT INTO scheduled_expirations (order_id, fires_at) VALUES ($1, $2) ON CONFLICT (order_id) DO NOTHING",
		s.OrderID, s.FiresAt,
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

// Delete removes the schedule row once the expiration has fired.
func (r *ExpirationRepository) Delete(orderID string) error {
	_, err := r.db.Exec("DELETE FROM scheduled_expirations WHERE order_id=$1", orderID)
	return err
}

// All returns every pending schedule row.
func (r *ExpirationRepository) All() ([]models.ScheduledExpiration, error) {
	var rows []models.ScheduledExpiration
	if err := r.db.Select(&rows, "SELECT * FROM scheduled_expirations"); err != nil {
		return nil, err
	}
	return rows, nil
}
