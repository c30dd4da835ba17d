package trust

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/registry"
)

// RegistryPauser applies trust-driven state transitions to every
// subscription a subscriber owns, through the Subscription Registry's
// optimistic-locking ApplyEvent path.
type RegistryPauser struct {
	db    *gorm.DB
	store *registry.Store
}

func NewRegistryPauser(c *registry.PostgresClient, store *registry.Store) *RegistryPauser {
	return &RegistryPauser{db: c.DB(), store: store}
}

func (p *RegistryPauser) subscriptionIDsFor(ctx context.Context, subscriberID string) ([]string, error) {
	var ids []string
	err := p.db.WithContext(ctx).
		Model(&registry.SubscriptionRow{}).
		Where("subscriber_id = ?", subscriberID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("trust: list subscriptions for %s: %w", subscriberID, err)
	}
	return ids, nil
}

func (p *RegistryPauser) PauseAllForSubscriber(ctx context.Context, subscriberID string) error {
	return p.applyToAll(ctx, subscriberID, domain.EventTrustBelow)
}

func (p *RegistryPauser) ResumeAllForSubscriber(ctx context.Context, subscriberID string) error {
	return p.applyToAll(ctx, subscriberID, domain.EventTrustRecovered)
}

func (p *RegistryPauser) applyToAll(ctx context.Context, subscriberID string, event domain.Event) error {
	ids, err := p.subscriptionIDsFor(ctx, subscriberID)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, err := p.store.ApplyEvent(ctx, id, event); err != nil {
			if errors.Is(err, domain.ErrInvalidTransition) {
				// Subscription is in a state this event does not affect
				// (e.g. already LOCKED_NO_FUNDS); nothing to do.
				continue
			}
			return fmt.Errorf("trust: apply %s to %s: %w", event, id, err)
		}
	}
	return nil
}
