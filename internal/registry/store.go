package registry

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// ErrVersionConflict indicates a concurrent writer updated the
// subscription row between this caller's read and its write.
var ErrVersionConflict = errors.New("registry: version conflict")

// ErrNotFound indicates no row exists for the given ID.
var ErrNotFound = errors.New("registry: not found")

// Store is the Subscription Registry's durable backing store.
type Store struct {
	db *gorm.DB
}

func NewStore(c *PostgresClient) *Store {
	return &Store{db: c.DB()}
}

// Get loads a subscription by ID.
func (s *Store) Get(ctx context.Context, id string) (*domain.Subscription, error) {
	var row SubscriptionRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("registry: get subscription %s: %w", id, err)
	}
	return subscriptionFromRow(&row), nil
}

// Create inserts a brand new subscription at version 1.
func (s *Store) Create(ctx context.Context, sub *domain.Subscription) error {
	sub.Version = 1
	row := rowFromSubscription(sub)
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("registry: create subscription %s: %w", sub.ID, err)
	}
	return nil
}

// Update persists sub using optimistic locking: the write only applies
// if the stored row's version still equals sub.Version, and on success
// sub.Version is advanced to match the new stored value.
func (s *Store) Update(ctx context.Context, sub *domain.Subscription) error {
	row := rowFromSubscription(sub)
	nextVersion := sub.Version + 1

	result := s.db.WithContext(ctx).
		Model(&SubscriptionRow{}).
		Where("id = ? AND version = ?", sub.ID, sub.Version).
		Updates(map[string]interface{}{
			"subscriber_id":             row.SubscriberID,
			"master_id":                 row.MasterID,
			"state":                     row.State,
			"last_accepted_sequence":    row.LastAcceptedSequence,
			"policy_max_price_dev_pips": row.PolicyMaxPriceDevPips,
			"policy_max_ttl_millis":     row.PolicyMaxTTLMillis,
			"policy_max_lot":            row.PolicyMaxLot,
			"policy_secret_key_ref":     row.PolicySecretKeyRef,
			"policy_max_devices":        row.PolicyMaxDevices,
			"hwm":                       row.HWM,
			"version":                   nextVersion,
		})
	if result.Error != nil {
		return fmt.Errorf("registry: update subscription %s: %w", sub.ID, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrVersionConflict
	}
	sub.Version = nextVersion
	return nil
}

// ApplyEvent loads the subscription, computes its next state via the
// transition table, and writes it back under optimistic locking,
// retrying the read-modify-write once on a version conflict.
func (s *Store) ApplyEvent(ctx context.Context, id string, event domain.Event) (*domain.Subscription, error) {
	for attempt := 0; attempt < 2; attempt++ {
		sub, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		next, err := domain.Transition(sub.State, event)
		if err != nil {
			return nil, fmt.Errorf("registry: apply event %s to %s: %w", event, id, err)
		}
		sub.State = next
		if err := s.Update(ctx, sub); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt == 0 {
				continue
			}
			return nil, err
		}
		return sub, nil
	}
	return nil, ErrVersionConflict
}

// ListByMaster loads every subscription fed by masterID, the set the
// Fan-out Distributor delivers a newly appended signal to.
func (s *Store) ListByMaster(ctx context.Context, masterID string) ([]*domain.Subscription, error) {
	var rows []SubscriptionRow
	if err := s.db.WithContext(ctx).Where("master_id = ?", masterID).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("registry: list subscriptions for master %s: %w", masterID, err)
	}
	subs := make([]*domain.Subscription, 0, len(rows))
	for i := range rows {
		subs = append(subs, subscriptionFromRow(&rows[i]))
	}
	return subs, nil
}

// ListAll loads every subscription in the registry, for the operator
// dashboard's subscription table. Unbounded: operators run this against
// the same registry sizes the rest of the replication plane assumes.
func (s *Store) ListAll(ctx context.Context) ([]*domain.Subscription, error) {
	var rows []SubscriptionRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("registry: list all subscriptions: %w", err)
	}
	subs := make([]*domain.Subscription, 0, len(rows))
	for i := range rows {
		subs = append(subs, subscriptionFromRow(&rows[i]))
	}
	return subs, nil
}

// AdvanceHWM updates a subscription's ingest high-water mark, retrying
// once on a version conflict. Callers invoke this only after a signal
// for seq has already been durably appended to the log.
func (s *Store) AdvanceHWM(ctx context.Context, id string, seq int64) error {
	for attempt := 0; attempt < 2; attempt++ {
		sub, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		sub.HWM = seq
		if err := s.Update(ctx, sub); err != nil {
			if errors.Is(err, ErrVersionConflict) && attempt == 0 {
				continue
			}
			return err
		}
		return nil
	}
	return ErrVersionConflict
}

// GetCredential loads a license credential by its token hash.
func (s *Store) GetCredential(ctx context.Context, tokenHash string) (*domain.LicenseCredential, error) {
	var row LicenseCredentialRow
	if err := s.db.WithContext(ctx).First(&row, "token_hash = ?", tokenHash).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("registry: get credential: %w", err)
	}
	return credentialFromRow(&row), nil
}

// UpsertCredential inserts or replaces a license credential row. Save
// would silently no-op an insert when the row does not yet exist (gorm
// only emits an UPDATE for a struct whose primary key is already set),
// so this uses an explicit upsert instead.
func (s *Store) UpsertCredential(ctx context.Context, c *domain.LicenseCredential) error {
	row := rowFromCredential(c)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(row).Error
	if err != nil {
		return fmt.Errorf("registry: upsert credential: %w", err)
	}
	return nil
}
