package models

// Order is the payments service's read-cached copy of an order owned by the
// orders service. Price is what the charge is made out for; it arrives on
// order.created and never changes afterwards.
type Order struct {
	ID      string  `db:"id" json:"id"`
	UserID  string  `db:"user_id" json:"userId"`
	Status  string  `db:"status" json:"status"`
	Version int     `db:"version" json:"version"`
	Price   float64 `db:"price" json:"price"`
}
