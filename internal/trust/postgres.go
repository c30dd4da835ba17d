package trust

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/protection"
)

// ProtectionEventSource adapts the Protection Event Sink's store into
// the EventSource the Trust Loop needs, resolving a subscriber's
// current set of subscription IDs first since protection events are
// keyed by subscription, not subscriber.
type ProtectionEventSource struct {
	db    *gorm.DB
	store *protection.Store
}

func NewProtectionEventSource(db *gorm.DB, store *protection.Store) *ProtectionEventSource {
	return &ProtectionEventSource{db: db, store: store}
}

func (s *ProtectionEventSource) subscriptionIDs(ctx context.Context, subscriberID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Table("subscriptions").
		Where("subscriber_id = ?", subscriberID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("trust: list subscriptions for %s: %w", subscriberID, err)
	}
	return ids, nil
}

func (s *ProtectionEventSource) ReasonsSince(ctx context.Context, subscriberID string, since time.Time) ([]domain.RejectReason, error) {
	ids, err := s.subscriptionIDs(ctx, subscriberID)
	if err != nil {
		return nil, err
	}
	return s.store.ReasonsForSubscriber(ctx, ids, since)
}

func (s *ProtectionEventSource) LastEventTime(ctx context.Context, subscriberID string) (time.Time, bool, error) {
	ids, err := s.subscriptionIDs(ctx, subscriberID)
	if err != nil {
		return time.Time{}, false, err
	}
	return s.store.LastEventTimeForSubscriber(ctx, ids)
}

// ScoreRow is the persisted form of domain.TrustScore.
type ScoreRow struct {
	SubscriberID string `gorm:"primaryKey"`
	Score        int
	UpdatedAt    time.Time
}

func (ScoreRow) TableName() string { return "trust_scores" }

// PostgresScoreStore locks a subscriber's score row for the duration
// of one scoring pass, mirroring the original's SELECT ... FOR UPDATE.
type PostgresScoreStore struct {
	db *gorm.DB
}

func NewPostgresScoreStore(db *gorm.DB) *PostgresScoreStore {
	return &PostgresScoreStore{db: db}
}

func (s *PostgresScoreStore) Migrate() error {
	return s.db.AutoMigrate(&ScoreRow{})
}

func (s *PostgresScoreStore) LockAndGet(ctx context.Context, subscriberID string) (int, error) {
	var row ScoreRow
	err := s.db.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		Where("subscriber_id = ?", subscriberID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.MaxTrustScore, nil
		}
		return 0, fmt.Errorf("trust: lock score row for %s: %w", subscriberID, err)
	}
	return row.Score, nil
}

// Peek reads a subscriber's current score without taking the row
// lock LockAndGet holds for a scoring pass, for read-only callers like
// the operator dashboard that must never block the Trust Loop.
func (s *PostgresScoreStore) Peek(ctx context.Context, subscriberID string) (int, error) {
	var row ScoreRow
	err := s.db.WithContext(ctx).Where("subscriber_id = ?", subscriberID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.MaxTrustScore, nil
		}
		return 0, fmt.Errorf("trust: peek score for %s: %w", subscriberID, err)
	}
	return row.Score, nil
}

// All returns every subscriber's current score, for the operator
// dashboard's table. Subscribers with no row yet (never scored) are
// omitted rather than synthesized at the default score.
func (s *PostgresScoreStore) All(ctx context.Context) ([]domain.TrustScore, error) {
	var rows []ScoreRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("trust: list scores: %w", err)
	}
	out := make([]domain.TrustScore, len(rows))
	for i, row := range rows {
		out[i] = domain.TrustScore{SubscriberID: row.SubscriberID, Score: row.Score, UpdatedAt: row.UpdatedAt}
	}
	return out, nil
}

func (s *PostgresScoreStore) Set(ctx context.Context, subscriberID string, score int) error {
	row := ScoreRow{SubscriberID: subscriberID, Score: score, UpdatedAt: time.Now().UTC()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("trust: persist score for %s: %w", subscriberID, err)
	}
	return nil
}
