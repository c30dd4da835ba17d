package domain

import "fmt"

// Event is one of the closed set of triggers that can move a Subscription
// between states, per the transition table in spec §4.3.
type Event string

const (
	EventDeliveryOK     Event = "DELIVERY_OK"
	EventReceiverGap    Event = "RECEIVER_GAP"
	EventWalletEmpty    Event = "WALLET_EMPTY"
	EventTrustBelow     Event = "TRUST_BELOW_THRESHOLD"
	EventAdminSuspend   Event = "ADMIN_SUSPEND"
	EventFundsRestored  Event = "FUNDS_RESTORED"
	EventTrustRecovered Event = "TRUST_RECOVERED"
	EventAdminResume    Event = "ADMIN_RESUME"
	EventFullSyncDone   Event = "FULL_SYNC_DONE"
)

// ErrInvalidTransition is returned when an event has no defined effect
// from the current state; callers should treat this as a no-op, not a
// fatal error, since several (state, event) pairs are intentionally
// absent from the table ("—" in spec §4.3).
var ErrInvalidTransition = fmt.Errorf("domain: no transition defined for this (state, event) pair")

// Transition applies an event to a state and returns the next state,
// following the table in spec §4.3 exactly. admin transitions always
// win and are handled by the caller taking the row lock first; here we
// only encode the table's cell contents.
func Transition(current SubscriptionState, event Event) (SubscriptionState, error) {
	switch event {
	case EventAdminSuspend:
		// Admin suspend is valid from every state.
		return StateSuspendedAdmin, nil
	case EventAdminResume:
		if current == StateSuspendedAdmin {
			return StateSynced, nil
		}
		return current, ErrInvalidTransition
	}

	switch current {
	case StateSynced:
		switch event {
		case EventDeliveryOK:
			return StateSynced, nil
		case EventReceiverGap:
			return StateDegradedGap, nil
		case EventWalletEmpty:
			return StateLockedNoFunds, nil
		case EventTrustBelow:
			return StatePausedToxic, nil
		}
	case StateDegradedGap:
		switch event {
		case EventReceiverGap:
			return StateDegradedGap, nil
		case EventTrustBelow:
			return StatePausedToxic, nil
		case EventFullSyncDone:
			return StateSynced, nil
		}
	case StateLockedNoFunds:
		switch event {
		case EventWalletEmpty:
			return StateLockedNoFunds, nil
		case EventFundsRestored:
			return StateSynced, nil
		}
	case StatePausedToxic:
		switch event {
		case EventTrustBelow:
			return StatePausedToxic, nil
		case EventTrustRecovered:
			return StateSynced, nil
		}
	case StateSuspendedAdmin:
		// Only admin events (handled above) move out of SUSPENDED_ADMIN.
	}

	return current, ErrInvalidTransition
}
