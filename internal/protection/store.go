package protection

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/idgen"
)

// EventRow is the persisted form of domain.ProtectionEvent.
type EventRow struct {
	ID                    string    `gorm:"primaryKey"`
	SubscriptionID        string    `gorm:"index"`
	EventTime             time.Time `gorm:"index"`
	SignalSequence        int64
	GeneratedAtMillis     int64
	ArrivalTime           time.Time
	Reason                string `gorm:"index"`
	ObservedLatencyMillis int64
	ObservedDeviation     *float64
	StateAtEvent          string
	WalletBalanceAtEvent  *float64
}

func (EventRow) TableName() string { return "protection_events" }

func rowFromEvent(e *domain.ProtectionEvent) *EventRow {
	return &EventRow{
		ID:                    e.ID,
		SubscriptionID:        e.SubscriptionID,
		EventTime:             e.EventTime,
		SignalSequence:        e.SignalSequence,
		GeneratedAtMillis:     e.GeneratedAtMillis,
		ArrivalTime:           e.ArrivalTime,
		Reason:                string(e.Reason),
		ObservedLatencyMillis: e.ObservedLatencyMillis,
		ObservedDeviation:     e.ObservedDeviation,
		StateAtEvent:          string(e.StateAtEvent),
		WalletBalanceAtEvent:  e.WalletBalanceAtEvent,
	}
}

func eventFromRow(r *EventRow) *domain.ProtectionEvent {
	return &domain.ProtectionEvent{
		ID:                    r.ID,
		SubscriptionID:        r.SubscriptionID,
		EventTime:             r.EventTime,
		SignalSequence:        r.SignalSequence,
		GeneratedAtMillis:     r.GeneratedAtMillis,
		ArrivalTime:           r.ArrivalTime,
		Reason:                domain.RejectReason(r.Reason),
		ObservedLatencyMillis: r.ObservedLatencyMillis,
		ObservedDeviation:     r.ObservedDeviation,
		StateAtEvent:          domain.SubscriptionState(r.StateAtEvent),
		WalletBalanceAtEvent:  r.WalletBalanceAtEvent,
	}
}

// Store persists and queries protection events in Postgres.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Migrate() error {
	return s.db.AutoMigrate(&EventRow{})
}

// Insert assigns e a time-sortable ID if it does not already have one
// (the Kafka wire form never carries one) and persists it.
func (s *Store) Insert(ctx context.Context, e *domain.ProtectionEvent) error {
	if e.ID == "" {
		e.ID = idgen.NewRecordID()
	}
	if err := s.db.WithContext(ctx).Create(rowFromEvent(e)).Error; err != nil {
		return fmt.Errorf("protection: insert event: %w", err)
	}
	return nil
}

// ReasonsForSubscriber is the query the Trust Loop uses to build its
// EventSource: every reason recorded for any subscription owned by a
// subscriber, within the window.
func (s *Store) ReasonsForSubscriber(ctx context.Context, subscriptionIDs []string, since time.Time) ([]domain.RejectReason, error) {
	if len(subscriptionIDs) == 0 {
		return nil, nil
	}
	var reasons []string
	err := s.db.WithContext(ctx).
		Model(&EventRow{}).
		Where("subscription_id IN ? AND event_time > ?", subscriptionIDs, since).
		Pluck("reason", &reasons).Error
	if err != nil {
		return nil, fmt.Errorf("protection: query reasons: %w", err)
	}
	out := make([]domain.RejectReason, len(reasons))
	for i, r := range reasons {
		out[i] = domain.RejectReason(r)
	}
	return out, nil
}

// LastEventTimeForSubscriber returns the most recent event time across
// every subscription a subscriber owns.
func (s *Store) LastEventTimeForSubscriber(ctx context.Context, subscriptionIDs []string) (time.Time, bool, error) {
	if len(subscriptionIDs) == 0 {
		return time.Time{}, false, nil
	}
	var latest *time.Time
	err := s.db.WithContext(ctx).
		Model(&EventRow{}).
		Where("subscription_id IN ?", subscriptionIDs).
		Select("MAX(event_time)").
		Scan(&latest).Error
	if err != nil {
		return time.Time{}, false, fmt.Errorf("protection: query last event: %w", err)
	}
	if latest == nil {
		return time.Time{}, false, nil
	}
	return *latest, true, nil
}

// OlderThan returns up to limit rows with EventTime before cutoff, for
// retention compaction to archive before deleting.
func (s *Store) OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ProtectionEvent, error) {
	var rows []EventRow
	if err := s.db.WithContext(ctx).Where("event_time < ?", cutoff).Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("protection: query old events: %w", err)
	}
	out := make([]*domain.ProtectionEvent, len(rows))
	for i := range rows {
		out[i] = eventFromRow(&rows[i])
	}
	return out, nil
}

// Recent returns the most recently recorded events across every
// subscription, newest first, for the operator dashboard's live feed.
func (s *Store) Recent(ctx context.Context, limit int) ([]*domain.ProtectionEvent, error) {
	var rows []EventRow
	err := s.db.WithContext(ctx).Order("event_time DESC").Limit(limit).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("protection: query recent events: %w", err)
	}
	out := make([]*domain.ProtectionEvent, len(rows))
	for i := range rows {
		out[i] = eventFromRow(&rows[i])
	}
	return out, nil
}

// DeleteByIDs deletes exactly the given rows, so retention only ever
// removes what it already archived rather than every row matching a
// cutoff that may have grown past one archive batch.
func (s *Store) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := s.db.WithContext(ctx).Where("id IN ?", ids).Delete(&EventRow{})
	if result.Error != nil {
		return 0, fmt.Errorf("protection: delete archived events: %w", result.Error)
	}
	return result.RowsAffected, nil
}
