package fanout

import "time"

// CursorRow persists one subscription's delivery cursor: the Signal Log
// offset up through which the distributor has either delivered and
// received a positive receiver ack or skipped an entry the receiver's
// have_through already covers.
type CursorRow struct {
	SubscriptionID string `gorm:"primaryKey"`
	MasterID       string `gorm:"index"`
	LastOffset     string
	UpdatedAt      time.Time
}

func (CursorRow) TableName() string { return "delivery_cursors" }
