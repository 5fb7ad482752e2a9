package repos

import (
	"github.com/jmoiron/sqlx"

	"ticketing/internal/payments/db/models"
)

// PaymentRepository handles database operations for payments.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository creates a new PaymentRepository.
func NewPaymentRepository(conn *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: conn}
}

// Insert records a charge attempt's outcome.
func (r *PaymentRepository) Insert(payment *models.Payment) error {
	_, err := r.db.Exec(
		"INSERT INTO payments (id, order_id, provider_id, status, created_at) VALUES ($1, $2, $3, $4, $5)",
		payment.ID, payment.OrderID, payment.ProviderID, payment.Status, payment.CreatedAt,
	)
	return err
}

// GetByOrderID retrieves every charge attempt made for an order.
func (r *PaymentRepository) GetByOrderID(orderID string) ([]models.Payment, error) {
	var payments []models.Payment
	err := r.db.Select(&payments, "SELECT * FROM payments WHERE order_id=$1 ORDER BY created_at", orderID)
	if err != nil {
		return nil, err
	}
	return payments, nil
}
