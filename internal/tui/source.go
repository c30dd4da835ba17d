package tui

import (
	"context"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// Source is the read-only data dependency the dashboard polls.
type Source interface {
	Subscriptions(ctx context.Context) ([]*domain.Subscription, error)
	TrustScores(ctx context.Context) ([]domain.TrustScore, error)
	RecentEvents(ctx context.Context, limit int) ([]*domain.ProtectionEvent, error)
}

// RegistryReader is the Subscription Registry dependency, narrowed to
// what the dashboard reads. *registry.Store satisfies this.
type RegistryReader interface {
	ListAll(ctx context.Context) ([]*domain.Subscription, error)
}

// ScoreReader is the Trust Score store dependency. *trust.PostgresScoreStore
// satisfies this.
type ScoreReader interface {
	All(ctx context.Context) ([]domain.TrustScore, error)
}

// ProtectionReader is the Protection Event Sink dependency. *protection.Store
// satisfies this.
type ProtectionReader interface {
	Recent(ctx context.Context, limit int) ([]*domain.ProtectionEvent, error)
}

// StoreSource adapts the registry, trust, and protection stores into a
// Source without the dashboard importing any of those packages' gorm
// types directly.
type StoreSource struct {
	registry   RegistryReader
	scores     ScoreReader
	protection ProtectionReader
}

func NewStoreSource(registry RegistryReader, scores ScoreReader, protection ProtectionReader) *StoreSource {
	return &StoreSource{registry: registry, scores: scores, protection: protection}
}

func (s *StoreSource) Subscriptions(ctx context.Context) ([]*domain.Subscription, error) {
	return s.registry.ListAll(ctx)
}

func (s *StoreSource) TrustScores(ctx context.Context) ([]domain.TrustScore, error) {
	return s.scores.All(ctx)
}

func (s *StoreSource) RecentEvents(ctx context.Context, limit int) ([]*domain.ProtectionEvent, error) {
	return s.protection.Recent(ctx, limit)
}
