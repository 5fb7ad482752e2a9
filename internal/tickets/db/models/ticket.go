package models

// Ticket is the row owned by the tickets service. OrderID is non-nil while
// an order holds the reservation; reservation and release are the only
// mutations that touch it.
type Ticket struct {
	ID      string  `db:"id" json:"id"`
	Title   string  `db:"title" json:"title"`
	Price   float64 `db:"price" json:"price"`
	Version int     `db:"version" json:"version"`
	OrderID *string `db:"order_id" json:"orderId,omitempty"`
}

// Reserved reports whether an order currently holds this ticket.
func (t *Ticket) Reserved() bool {
	return t.OrderID != nil
}
