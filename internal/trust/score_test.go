package trust

import (
	"testing"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

func TestScoreAppliesPenalties(t *testing.T) {
	result := Score("sub-1", 100, []domain.RejectReason{domain.ReasonSequenceGap, domain.ReasonTTLExpired}, 0)
	if result.Delta != -25 {
		t.Fatalf("expected delta -25, got %d", result.Delta)
	}
	if result.NewScore != 75 {
		t.Fatalf("expected new score 75, got %d", result.NewScore)
	}
	if result.ShouldPause {
		t.Fatal("score above threshold should not pause")
	}
}

func TestScoreClampsAtZero(t *testing.T) {
	result := Score("sub-1", 20, []domain.RejectReason{domain.ReasonReplay}, 0)
	if result.NewScore != 0 {
		t.Fatalf("expected score clamped to 0, got %d", result.NewScore)
	}
	if !result.ShouldPause {
		t.Fatal("expected pause below threshold")
	}
}

func TestScoreClampsAtMax(t *testing.T) {
	result := Score("sub-1", 95, nil, 50)
	if result.NewScore != domain.MaxTrustScore {
		t.Fatalf("expected score clamped to %d, got %d", domain.MaxTrustScore, result.NewScore)
	}
}

func TestScoreAppliesRecoveryBonusOnlyWhenNoEvents(t *testing.T) {
	withEvents := Score("sub-1", 50, []domain.RejectReason{domain.ReasonPriceDeviation}, 10)
	if withEvents.Delta != -3 {
		t.Fatalf("recovery bonus must not apply when events occurred, got delta %d", withEvents.Delta)
	}

	noEvents := Score("sub-1", 50, nil, 10)
	if noEvents.Delta != 10 {
		t.Fatalf("recovery bonus must apply when no events occurred, got delta %d", noEvents.Delta)
	}
}

func TestRecoveryBonusWholeDaysOnly(t *testing.T) {
	if got := RecoveryBonus(23); got != 0 {
		t.Fatalf("expected 0 bonus under 24h, got %d", got)
	}
	if got := RecoveryBonus(48); got != 20 {
		t.Fatalf("expected 20 bonus for 2 full days, got %d", got)
	}
}
