package models

import "time"

// Order is the row owned by the orders service. ExpiresAt is only meaningful
// while the order is still awaiting payment.
type Order struct {
	ID        string    `db:"id" json:"id"`
	TicketID  string    `db:"ticket_id" json:"ticketId"`
	UserID    string    `db:"user_id" json:"userId"`
	Status    string    `db:"status" json:"status"`
	Version   int       `db:"version" json:"version"`
	ExpiresAt time.Time `db:"expires_at" json:"expiresAt"`
}
