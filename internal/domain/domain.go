// Package domain holds the core entities of the signal replication core:
// master streams, subscriptions, policies, signals, protection events and
// trust scores. Nothing in this package talks to a network or a database;
// it is the shared vocabulary every other internal package imports.
package domain

import "time"

// Side identifies the direction of a trade intent.
type Side int32

const (
	SideUnspecified Side = 0
	SideBuy         Side = 1
	SideSell        Side = 2
	SideClose       Side = 3
)

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	case SideClose:
		return "CLOSE"
	default:
		return "UNSPECIFIED"
	}
}

// SubscriptionState is one of the closed set of states a Subscription can
// be in. See spec §4.3 for the transition table.
type SubscriptionState string

const (
	StateSynced         SubscriptionState = "SYNCED"
	StateDegradedGap    SubscriptionState = "DEGRADED_GAP"
	StateLockedNoFunds  SubscriptionState = "LOCKED_NO_FUNDS"
	StatePausedToxic    SubscriptionState = "PAUSED_TOXIC"
	StateSuspendedAdmin SubscriptionState = "SUSPENDED_ADMIN"
)

// CanTrade mirrors backend/app/api/signals.py's can_trade predicate on the
// state alone: only a SYNCED subscription is eligible for delivery-side
// admission. No active flag is consulted.
func (s SubscriptionState) CanTrade() bool {
	return s == StateSynced
}

// RejectReason is the closed set of admission/ingest outcomes named in
// spec §7. Most values are rejection reasons; ReasonExecutionSuccess is
// the one exception, recorded alongside them so the Trust Loop scores a
// subscriber on the full weighted sum of their recent outcomes rather
// than penalties alone.
type RejectReason string

const (
	ReasonInvalidCredential  RejectReason = "INVALID_CREDENTIAL"
	ReasonInvalidSignature   RejectReason = "INVALID_SIGNATURE"
	ReasonReplayOrDuplicate  RejectReason = "REPLAY_OR_DUPLICATE"
	ReasonDuplicate          RejectReason = "DUPLICATE"
	ReasonReplay             RejectReason = "REPLAY"
	ReasonSequenceGap        RejectReason = "SEQUENCE_GAP"
	ReasonTTLExpired         RejectReason = "TTL_EXPIRED"
	ReasonPriceDeviation     RejectReason = "PRICE_DEVIATION"
	ReasonInsufficientFunds  RejectReason = "INSUFFICIENT_FUNDS"
	ReasonStateLocked        RejectReason = "STATE_LOCKED"
	ReasonRateLimit          RejectReason = "RATE_LIMIT"
	ReasonClockSkew          RejectReason = "CLOCK_SKEW"
	ReasonLogUnavailable     RejectReason = "LOG_UNAVAILABLE"
	ReasonTimeout            RejectReason = "TIMEOUT"
	ReasonOrderPlacementFail RejectReason = "ORDER_PLACEMENT_FAILED"
	ReasonWalletLocked       RejectReason = "WALLET_LOCKED"
	ReasonVersionConflict    RejectReason = "VERSION_CONFLICT"
	ReasonExecutionSuccess   RejectReason = "EXECUTION_SUCCESS"
)

// MasterStream owns a strictly monotonically increasing sequence space.
type MasterStream struct {
	MasterID string
}

// Policy is the per-subscription admission configuration. Immutable
// between admin updates; read under the same lock as Subscription.State.
type Policy struct {
	MaxPriceDeviationPips float64
	MaxTTLMillis          int64
	MaxLot                float64
	SecretKeyRef          string
	// MaxDevices is the per-subscription device-fingerprint cap
	// (license_management.py's MultiDeviceDetector), stored by the
	// registry. The gateway's license.Detector does not read it; it uses
	// its own construction-time cap, which defaults to 2.
	MaxDevices int
}

// Subscription is the directed relationship from subscriber to master.
type Subscription struct {
	ID                   string
	SubscriberID         string
	MasterID             string
	State                SubscriptionState
	LastAcceptedSequence int64
	Policy               Policy
	HWM                  int64
	Version              int64
}

// LicenseCredential maps an authenticated connection to exactly one
// Subscription. Only TokenHash is ever persisted; the cleartext token is
// shown to the user once, at issuance.
type LicenseCredential struct {
	TokenHash         string
	SubscriptionID    string
	IsActive          bool
	ExpiresAt         time.Time
	EAInstanceBinding string
}

// Signal is a single trade intent emitted by a master. The tuple
// (MasterID, SequenceNumber) is globally unique.
type Signal struct {
	MasterID          string
	SequenceNumber    int64
	GeneratedAtMillis int64
	ServerArrivalTime time.Time
	Symbol            string
	Side              Side
	Volume            float64
	Price             float64
	StopLoss          float64
	TakeProfit        float64
	Signature         string
	SubscriptionID    string
}

// ProtectionEvent is an append-only record of one admission outcome: a
// rejection, or (Reason == ReasonExecutionSuccess) a completed order
// placement. ID is assigned by the durable store on insert, not by the
// producer, so it stays empty on the wire between Publish and Insert.
type ProtectionEvent struct {
	ID                    string
	SubscriptionID        string
	EventTime             time.Time
	SignalSequence        int64
	GeneratedAtMillis     int64
	ArrivalTime           time.Time
	Reason                RejectReason
	ObservedLatencyMillis int64
	ObservedDeviation     *float64
	StateAtEvent          SubscriptionState
	WalletBalanceAtEvent  *float64
}

// TrustScore is a subscriber's bounded reputation, mutated exclusively
// inside the Trust Loop under a per-subscriber row lock.
type TrustScore struct {
	SubscriberID string
	Score        int
	UpdatedAt    time.Time
}

const (
	MinTrustScore = 0
	MaxTrustScore = 100
)

// Clamp bounds a raw score into [MinTrustScore, MaxTrustScore].
func Clamp(score int) int {
	if score < MinTrustScore {
		return MinTrustScore
	}
	if score > MaxTrustScore {
		return MaxTrustScore
	}
	return score
}
