// Package trust implements the rolling trust score that drives
// automatic pausing of toxic subscribers and their gradual recovery.
package trust

import (
	"fmt"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// Penalty is the weighted delta applied for one occurrence of a
// protection event reason, taken directly from the weighting scheme
// used to flag toxic flow. ReasonExecutionSuccess is the sole positive
// entry: every clean execution offsets the window's rejections instead
// of the score resting on penalties alone.
var Penalty = map[domain.RejectReason]int{
	domain.ReasonReplay:            -50,
	domain.ReasonDuplicate:         -30,
	domain.ReasonSequenceGap:       -20,
	domain.ReasonTTLExpired:        -5,
	domain.ReasonPriceDeviation:    -3,
	domain.ReasonInsufficientFunds: -10,
	domain.ReasonStateLocked:       -5,
	domain.ReasonInvalidSignature:  -40,
	domain.ReasonRateLimit:         -15,
	domain.ReasonExecutionSuccess:  1,
}

const (
	AutoPauseThreshold   = 50
	RecoveryPointsPerDay = 10
	RollingWindowHours   = 24
)

// Breakdown counts occurrences of each reason within the scoring
// window, used both to compute the delta and to render a
// human-readable explanation.
type Breakdown map[domain.RejectReason]int

// Result is the outcome of one scoring pass for a single subscriber.
type Result struct {
	SubscriberID   string
	PreviousScore  int
	NewScore       int
	Delta          int
	ShouldPause    bool
	EventsAnalyzed int
	Breakdown      Breakdown
	Recommendation string
}

// Score computes the new trust score for a subscriber given their
// previous score, the protection events observed inside the rolling
// window, and a recovery bonus computed separately (Score does not
// know how long it has been since the last incident; that belongs to
// the caller, which has access to event timestamps).
func Score(subscriberID string, previousScore int, events []domain.RejectReason, recoveryBonus int) Result {
	breakdown := make(Breakdown)
	delta := 0
	for _, reason := range events {
		delta += Penalty[reason]
		breakdown[reason]++
	}
	if len(events) == 0 {
		delta += recoveryBonus
	}

	newScore := domain.Clamp(previousScore + delta)
	shouldPause := newScore < AutoPauseThreshold

	return Result{
		SubscriberID:   subscriberID,
		PreviousScore:  previousScore,
		NewScore:       newScore,
		Delta:          delta,
		ShouldPause:    shouldPause,
		EventsAnalyzed: len(events),
		Breakdown:      breakdown,
		Recommendation: recommend(newScore, breakdown, shouldPause),
	}
}

func recommend(score int, breakdown Breakdown, shouldPause bool) string {
	if shouldPause {
		return fmt.Sprintf("CRITICAL: trust score %d is below the auto-pause threshold (%d); subscriber paused. Breakdown: %v", score, AutoPauseThreshold, breakdown)
	}
	if score < 70 {
		return fmt.Sprintf("WARNING: trust score %d is degraded. Breakdown: %v", score, breakdown)
	}
	if score < 90 {
		return fmt.Sprintf("NOTICE: trust score %d is acceptable but not optimal. Breakdown: %v", score, breakdown)
	}
	return fmt.Sprintf("HEALTHY: trust score %d. No action required.", score)
}

// RecoveryBonus returns the points earned for hoursSinceLastEvent
// spent incident-free, one full RecoveryPointsPerDay for every
// complete RollingWindowHours period.
func RecoveryBonus(hoursSinceLastEvent float64) int {
	days := int(hoursSinceLastEvent / RollingWindowHours)
	return days * RecoveryPointsPerDay
}
