package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// EventSource supplies the inputs the loop needs to score one
// subscriber: the reasons recorded within the rolling window and the
// time of their most recent protection event, if any.
type EventSource interface {
	ReasonsSince(ctx context.Context, subscriberID string, since time.Time) ([]domain.RejectReason, error)
	LastEventTime(ctx context.Context, subscriberID string) (time.Time, bool, error)
}

// ScoreStore persists a subscriber's trust score under a per-subscriber
// lock, matching the original's SELECT ... FOR UPDATE pattern.
type ScoreStore interface {
	LockAndGet(ctx context.Context, subscriberID string) (int, error)
	Set(ctx context.Context, subscriberID string, score int) error
}

// SubscriptionPauser transitions every active subscription belonging
// to a subscriber into PAUSED_TOXIC (or out of it on recovery).
type SubscriptionPauser interface {
	PauseAllForSubscriber(ctx context.Context, subscriberID string) error
	ResumeAllForSubscriber(ctx context.Context, subscriberID string) error
}

// Loop periodically rescoring a fixed set of subscribers, the
// background-worker counterpart to the originally sketched
// trust_score_worker.
type Loop struct {
	events EventSource
	scores ScoreStore
	pauser SubscriptionPauser
	window time.Duration
}

func NewLoop(events EventSource, scores ScoreStore, pauser SubscriptionPauser, window time.Duration) *Loop {
	if window <= 0 {
		window = RollingWindowHours * time.Hour
	}
	return &Loop{events: events, scores: scores, pauser: pauser, window: window}
}

// RunOnce rescoring a single subscriber and applies any resulting
// pause/resume, returning the scoring result for observability.
func (l *Loop) RunOnce(ctx context.Context, subscriberID string, now time.Time) (Result, error) {
	previous, err := l.scores.LockAndGet(ctx, subscriberID)
	if err != nil {
		return Result{}, fmt.Errorf("trust: lock score for %s: %w", subscriberID, err)
	}

	reasons, err := l.events.ReasonsSince(ctx, subscriberID, now.Add(-l.window))
	if err != nil {
		return Result{}, fmt.Errorf("trust: load events for %s: %w", subscriberID, err)
	}

	bonus := 0
	if len(reasons) == 0 {
		last, ok, err := l.events.LastEventTime(ctx, subscriberID)
		if err != nil {
			return Result{}, fmt.Errorf("trust: load last event for %s: %w", subscriberID, err)
		}
		if ok {
			bonus = RecoveryBonus(now.Sub(last).Hours())
		}
	}

	result := Score(subscriberID, previous, reasons, bonus)

	if err := l.scores.Set(ctx, subscriberID, result.NewScore); err != nil {
		return Result{}, fmt.Errorf("trust: persist score for %s: %w", subscriberID, err)
	}

	wasPaused := previous < AutoPauseThreshold
	switch {
	case result.ShouldPause && !wasPaused:
		if err := l.pauser.PauseAllForSubscriber(ctx, subscriberID); err != nil {
			return result, fmt.Errorf("trust: pause %s: %w", subscriberID, err)
		}
	case !result.ShouldPause && wasPaused:
		if err := l.pauser.ResumeAllForSubscriber(ctx, subscriberID); err != nil {
			return result, fmt.Errorf("trust: resume %s: %w", subscriberID, err)
		}
	}

	return result, nil
}
