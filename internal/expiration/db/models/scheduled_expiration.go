package models

import "time"

// ScheduledExpiration is a pending order deadline. Rows outlive process
// restarts; the scheduler re-arms a timer for each on startup.
type ScheduledExpiration struct {
	OrderID string    `db:"order_id" json:"orderId"`
	FiresAt time.Time `db:"fires_at" json:"firesAt"`
}
