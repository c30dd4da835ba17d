package protection

import (
	"testing"
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

func TestEventWireRoundTrip(t *testing.T) {
	deviation := 0.0007
	balance := 1234.56
	e := &domain.ProtectionEvent{
		SubscriptionID:        "sub-1",
		EventTime:             time.UnixMilli(1700000000123).UTC(),
		SignalSequence:        99,
		GeneratedAtMillis:     1700000000000,
		ArrivalTime:           time.UnixMilli(1700000000050).UTC(),
		Reason:                domain.ReasonPriceDeviation,
		ObservedLatencyMillis: 42,
		ObservedDeviation:     &deviation,
		StateAtEvent:          domain.StateSynced,
		WalletBalanceAtEvent:  &balance,
	}

	encoded, err := encode(e)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := decode(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.SubscriptionID != e.SubscriptionID ||
		!decoded.EventTime.Equal(e.EventTime) ||
		decoded.SignalSequence != e.SignalSequence ||
		decoded.Reason != e.Reason ||
		*decoded.ObservedDeviation != *e.ObservedDeviation ||
		*decoded.WalletBalanceAtEvent != *e.WalletBalanceAtEvent {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, e)
	}
}
