package tui

import (
	"context"
	"testing"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

type fakeRegistryReader struct{ subs []*domain.Subscription }

func (f fakeRegistryReader) ListAll(ctx context.Context) ([]*domain.Subscription, error) {
	return f.subs, nil
}

type fakeScoreReader struct{ scores []domain.TrustScore }

func (f fakeScoreReader) All(ctx context.Context) ([]domain.TrustScore, error) {
	return f.scores, nil
}

type fakeProtectionReader struct{ events []*domain.ProtectionEvent }

func (f fakeProtectionReader) Recent(ctx context.Context, limit int) ([]*domain.ProtectionEvent, error) {
	return f.events, nil
}

func TestStoreSourceDelegatesToEachReader(t *testing.T) {
	source := NewStoreSource(
		fakeRegistryReader{subs: []*domain.Subscription{{ID: "sub-1"}}},
		fakeScoreReader{scores: []domain.TrustScore{{SubscriberID: "trader-a", Score: 77}}},
		fakeProtectionReader{events: []*domain.ProtectionEvent{{SubscriptionID: "sub-1"}}},
	)

	subs, err := source.Subscriptions(context.Background())
	if err != nil || len(subs) != 1 || subs[0].ID != "sub-1" {
		t.Errorf("Subscriptions = %+v, %v", subs, err)
	}

	scores, err := source.TrustScores(context.Background())
	if err != nil || len(scores) != 1 || scores[0].Score != 77 {
		t.Errorf("TrustScores = %+v, %v", scores, err)
	}

	events, err := source.RecentEvents(context.Background(), 10)
	if err != nil || len(events) != 1 {
		t.Errorf("RecentEvents = %+v, %v", events, err)
	}
}
