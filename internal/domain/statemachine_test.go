package domain

import "testing"

func TestTransitionTable(t *testing.T) {
	cases := []struct {
		from  SubscriptionState
		event Event
		want  SubscriptionState
		ok    bool
	}{
		{StateSynced, EventDeliveryOK, StateSynced, true},
		{StateSynced, EventReceiverGap, StateDegradedGap, true},
		{StateSynced, EventWalletEmpty, StateLockedNoFunds, true},
		{StateSynced, EventTrustBelow, StatePausedToxic, true},
		{StateSynced, EventAdminSuspend, StateSuspendedAdmin, true},
		{StateDegradedGap, EventFullSyncDone, StateSynced, true},
		{StateDegradedGap, EventWalletEmpty, StateDegradedGap, false},
		{StateLockedNoFunds, EventFundsRestored, StateSynced, true},
		{StateLockedNoFunds, EventReceiverGap, StateLockedNoFunds, false},
		{StatePausedToxic, EventTrustRecovered, StateSynced, true},
		{StateSuspendedAdmin, EventAdminResume, StateSynced, true},
		{StateSuspendedAdmin, EventFundsRestored, StateSuspendedAdmin, false},
	}

	for _, c := range cases {
		got, err := Transition(c.from, c.event)
		if c.ok && err != nil {
			t.Errorf("Transition(%s, %s) = err %v, want %s", c.from, c.event, err, c.want)
			continue
		}
		if !c.ok && err == nil {
			t.Errorf("Transition(%s, %s) = %s, want error", c.from, c.event, got)
			continue
		}
		if c.ok && got != c.want {
			t.Errorf("Transition(%s, %s) = %s, want %s", c.from, c.event, got, c.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-5) != 0 {
		t.Error("Clamp(-5) should floor at 0")
	}
	if Clamp(150) != 100 {
		t.Error("Clamp(150) should ceiling at 100")
	}
	if Clamp(42) != 42 {
		t.Error("Clamp(42) should be unchanged")
	}
}
