package wire

import (
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// SignalFromPacket maps a decoded producer-ingress packet onto the
// domain Signal, before the server arrival time is stamped.
func SignalFromPacket(masterID string, p *SignalPacket) *domain.Signal {
	return &domain.Signal{
		MasterID:          masterID,
		SequenceNumber:    p.SequenceNumber,
		GeneratedAtMillis: p.GeneratedAtMillis,
		Symbol:            p.Symbol,
		Side:              domain.Side(p.Side),
		Volume:            p.Volume,
		Price:             p.Price,
		StopLoss:          p.StopLoss,
		TakeProfit:        p.TakeProfit,
		Signature:         p.Signature,
		SubscriptionID:    p.SubscriptionID,
	}
}

// LogEnvelopeFromSignal converts a Signal (with its server arrival time
// already stamped) into its Signal Log wire form.
func LogEnvelopeFromSignal(s *domain.Signal) *LogEnvelope {
	return &LogEnvelope{
		MasterID:          s.MasterID,
		SequenceNumber:    s.SequenceNumber,
		GeneratedAtMillis: s.GeneratedAtMillis,
		ServerArrivalMs:   s.ServerArrivalTime.UnixMilli(),
		Symbol:            s.Symbol,
		Side:              int32(s.Side),
		Volume:            s.Volume,
		Price:             s.Price,
		StopLoss:          s.StopLoss,
		TakeProfit:        s.TakeProfit,
		Signature:         s.Signature,
		SubscriptionID:    s.SubscriptionID,
	}
}

// SignalFromLogEnvelope is the inverse of LogEnvelopeFromSignal.
func SignalFromLogEnvelope(e *LogEnvelope) *domain.Signal {
	return &domain.Signal{
		MasterID:          e.MasterID,
		SequenceNumber:    e.SequenceNumber,
		GeneratedAtMillis: e.GeneratedAtMillis,
		ServerArrivalTime: time.UnixMilli(e.ServerArrivalMs).UTC(),
		Symbol:            e.Symbol,
		Side:              domain.Side(e.Side),
		Volume:            e.Volume,
		Price:             e.Price,
		StopLoss:          e.StopLoss,
		TakeProfit:        e.TakeProfit,
		Signature:         e.Signature,
		SubscriptionID:    e.SubscriptionID,
	}
}

// PushSignalFromSignal converts a Signal into the receiver push envelope.
func PushSignalFromSignal(s *domain.Signal) *PushSignal {
	return &PushSignal{
		MasterID:          s.MasterID,
		SequenceNumber:    s.SequenceNumber,
		GeneratedAtMillis: s.GeneratedAtMillis,
		ServerArrivalTime: s.ServerArrivalTime,
		Symbol:            s.Symbol,
		Side:              int32(s.Side),
		Volume:            s.Volume,
		Price:             s.Price,
		StopLoss:          s.StopLoss,
		TakeProfit:        s.TakeProfit,
		Signature:         s.Signature,
		SubscriptionID:    s.SubscriptionID,
	}
}

// SignalFromPushSignal is the inverse of PushSignalFromSignal.
func SignalFromPushSignal(p *PushSignal) *domain.Signal {
	return &domain.Signal{
		MasterID:          p.MasterID,
		SequenceNumber:    p.SequenceNumber,
		GeneratedAtMillis: p.GeneratedAtMillis,
		ServerArrivalTime: p.ServerArrivalTime,
		Symbol:            p.Symbol,
		Side:              domain.Side(p.Side),
		Volume:            p.Volume,
		Price:             p.Price,
		StopLoss:          p.StopLoss,
		TakeProfit:        p.TakeProfit,
		Signature:         p.Signature,
		SubscriptionID:    p.SubscriptionID,
	}
}
