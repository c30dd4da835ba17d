// Package protection implements the Protection Event Sink: a
// best-effort Kafka publish path from receivers, a durable consumer
// that persists events to Postgres, and retention compaction.
package protection

import (
	"encoding/json"
	"fmt"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// wireEvent is the Kafka payload shape. JSON is used here deliberately:
// protection events are low-volume, operator-facing records, and a
// self-describing text format makes them directly inspectable on the
// topic without a decoder, unlike the hot-path signal wire formats.
type wireEvent struct {
	SubscriptionID        string   `json:"subscription_id"`
	EventTimeMillis       int64    `json:"event_time_millis"`
	SignalSequence        int64    `json:"signal_sequence"`
	GeneratedAtMillis     int64    `json:"generated_at_millis"`
	ArrivalTimeMillis     int64    `json:"arrival_time_millis"`
	Reason                string   `json:"reason"`
	ObservedLatencyMillis int64    `json:"observed_latency_millis"`
	ObservedDeviation     *float64 `json:"observed_deviation,omitempty"`
	StateAtEvent          string   `json:"state_at_event"`
	WalletBalanceAtEvent  *float64 `json:"wallet_balance_at_event,omitempty"`
}

func encode(e *domain.ProtectionEvent) ([]byte, error) {
	w := wireEvent{
		SubscriptionID:        e.SubscriptionID,
		EventTimeMillis:       e.EventTime.UnixMilli(),
		SignalSequence:        e.SignalSequence,
		GeneratedAtMillis:     e.GeneratedAtMillis,
		ArrivalTimeMillis:     e.ArrivalTime.UnixMilli(),
		Reason:                string(e.Reason),
		ObservedLatencyMillis: e.ObservedLatencyMillis,
		ObservedDeviation:     e.ObservedDeviation,
		StateAtEvent:          string(e.StateAtEvent),
		WalletBalanceAtEvent:  e.WalletBalanceAtEvent,
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("protection: marshal event: %w", err)
	}
	return data, nil
}

func decode(data []byte) (*domain.ProtectionEvent, error) {
	var w wireEvent
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("protection: unmarshal event: %w", err)
	}
	return eventFromWire(w), nil
}

func eventFromWire(w wireEvent) *domain.ProtectionEvent {
	return &domain.ProtectionEvent{
		SubscriptionID:        w.SubscriptionID,
		EventTime:             millisToTime(w.EventTimeMillis),
		SignalSequence:        w.SignalSequence,
		GeneratedAtMillis:     w.GeneratedAtMillis,
		ArrivalTime:           millisToTime(w.ArrivalTimeMillis),
		Reason:                domain.RejectReason(w.Reason),
		ObservedLatencyMillis: w.ObservedLatencyMillis,
		ObservedDeviation:     w.ObservedDeviation,
		StateAtEvent:          domain.SubscriptionState(w.StateAtEvent),
		WalletBalanceAtEvent:  w.WalletBalanceAtEvent,
	}
}
