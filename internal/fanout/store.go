// Package fanout implements the Fan-out Distributor: it consumes newly
// appended signals, delivers them in per-master order to every live
// subscription fed by that master, tracks a durable per-subscription
// delivery cursor, and drives full-sync replay for a subscription that
// reports a gap.
package fanout

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNoCursor indicates no cursor row exists yet for a subscription,
// meaning delivery has never advanced past the beginning of its log.
var ErrNoCursor = errors.New("fanout: no cursor")

// CursorStore is the durable backing store for delivery cursors.
type CursorStore struct {
	db *gorm.DB
}

func NewCursorStore(db *gorm.DB) *CursorStore {
	return &CursorStore{db: db}
}

func (c *CursorStore) Migrate() error {
	return c.db.AutoMigrate(&CursorRow{})
}

// Get returns the last-delivered offset for subscriptionID, or
// ErrNoCursor if delivery has not started yet.
func (c *CursorStore) Get(ctx context.Context, subscriptionID string) (string, error) {
	var row CursorRow
	err := c.db.WithContext(ctx).First(&row, "subscription_id = ?", subscriptionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNoCursor
		}
		return "", fmt.Errorf("fanout: get cursor %s: %w", subscriptionID, err)
	}
	return row.LastOffset, nil
}

// Advance persists offset as the new delivery cursor for subscriptionID,
// called after the receiver has positively acked that offset, or for an
// entry the receiver's have_through already covers.
func (c *CursorStore) Advance(ctx context.Context, subscriptionID, masterID, offset string) error {
	row := CursorRow{SubscriptionID: subscriptionID, MasterID: masterID, LastOffset: offset}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("fanout: advance cursor %s: %w", subscriptionID, err)
	}
	return nil
}
