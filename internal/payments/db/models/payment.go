package models

import "time"

// Payment statuses.
const (
	PaymentStatusSucceeded = "succeeded"
	PaymentStatusFailed    = "failed"
)

// Payment links an order to the outcome of a charge attempt. ProviderID is
// the payment provider's reference for the charge.
type Payment struct {
	ID         string    `db:"id" json:"id"`
	OrderID    string    `db:"order_id" json:"orderId"`
	ProviderID string    `db:"provider_id" json:"providerId"`
	Status     string    `db:"status" json:"status"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}
