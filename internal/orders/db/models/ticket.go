package models

// Ticket is the orders service's read-cached copy of a ticket owned by the
// tickets service. It is mutated only by the tickets consumer, never by API
// handlers.
type Ticket struct {
	ID      string  `db:"id" json:"id"`
	Title   string  `db:"title" json:"title"`
	Price   float64 `db:"price" json:"price"`
	Version int     `db:"version" json:"version"`
	OrderID *string `db:"order_id" json:"orderId,omitempty"`
}

// Reserved reports whether some order currently holds this ticket.
func (t *Ticket) Reserved() bool {
	return t.OrderID != nil
}
