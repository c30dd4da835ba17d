package wire

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// Signal Log entries are serialized with the protobuf wire format
// directly via encoding/protowire, rather than through generated
// message types: the Signal Log's on-the-wire shape is internal to this
// system (unlike the producer-ingress contract), so there is no need for
// a .proto schema and a codegen step, but using the real wire primitives
// keeps the teacher's google.golang.org/protobuf dependency doing actual
// work instead of sitting unused.
const (
	logFieldMasterID          = protowire.Number(1)
	logFieldSequenceNumber    = protowire.Number(2)
	logFieldGeneratedAtMillis = protowire.Number(3)
	logFieldServerArrivalMs   = protowire.Number(4)
	logFieldSymbol            = protowire.Number(5)
	logFieldSide              = protowire.Number(6)
	logFieldVolume            = protowire.Number(7)
	logFieldPrice             = protowire.Number(8)
	logFieldStopLoss          = protowire.Number(9)
	logFieldTakeProfit        = protowire.Number(10)
	logFieldSignature         = protowire.Number(11)
	logFieldSubscriptionID    = protowire.Number(12)
)

// LogEnvelope is the Signal Log's persisted/transported representation
// of a Signal, including the server-stamped arrival time that the
// producer-ingress wire never carries.
type LogEnvelope struct {
	MasterID          string
	SequenceNumber    int64
	GeneratedAtMillis int64
	ServerArrivalMs   int64
	Symbol            string
	Side              int32
	Volume            float64
	Price             float64
	StopLoss          float64
	TakeProfit        float64
	Signature         string
	SubscriptionID    string
}

// EncodeLogEnvelope serializes e using raw protobuf wire primitives.
func EncodeLogEnvelope(e *LogEnvelope) []byte {
	var b []byte
	b = protowire.AppendTag(b, logFieldMasterID, protowire.BytesType)
	b = protowire.AppendString(b, e.MasterID)
	b = protowire.AppendTag(b, logFieldSequenceNumber, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.SequenceNumber))
	b = protowire.AppendTag(b, logFieldGeneratedAtMillis, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.GeneratedAtMillis))
	b = protowire.AppendTag(b, logFieldServerArrivalMs, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.ServerArrivalMs))
	b = protowire.AppendTag(b, logFieldSymbol, protowire.BytesType)
	b = protowire.AppendString(b, e.Symbol)
	b = protowire.AppendTag(b, logFieldSide, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(e.Side))
	b = protowire.AppendTag(b, logFieldVolume, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, float64bits(e.Volume))
	b = protowire.AppendTag(b, logFieldPrice, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, float64bits(e.Price))
	b = protowire.AppendTag(b, logFieldStopLoss, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, float64bits(e.StopLoss))
	b = protowire.AppendTag(b, logFieldTakeProfit, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, float64bits(e.TakeProfit))
	b = protowire.AppendTag(b, logFieldSignature, protowire.BytesType)
	b = protowire.AppendString(b, e.Signature)
	b = protowire.AppendTag(b, logFieldSubscriptionID, protowire.BytesType)
	b = protowire.AppendString(b, e.SubscriptionID)
	return b
}

// DecodeLogEnvelope is the inverse of EncodeLogEnvelope.
func DecodeLogEnvelope(b []byte) (*LogEnvelope, error) {
	e := &LogEnvelope{}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return nil, fmt.Errorf("wire: consume tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case typ == protowire.BytesType:
			s, n := protowire.ConsumeString(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: consume string field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case logFieldMasterID:
				e.MasterID = s
			case logFieldSymbol:
				e.Symbol = s
			case logFieldSignature:
				e.Signature = s
			case logFieldSubscriptionID:
				e.SubscriptionID = s
			}
		case typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: consume varint field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case logFieldSequenceNumber:
				e.SequenceNumber = int64(v)
			case logFieldGeneratedAtMillis:
				e.GeneratedAtMillis = int64(v)
			case logFieldServerArrivalMs:
				e.ServerArrivalMs = int64(v)
			case logFieldSide:
				e.Side = int32(v)
			}
		case typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return nil, fmt.Errorf("wire: consume fixed64 field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
			switch num {
			case logFieldVolume:
				e.Volume = float64frombits(v)
			case logFieldPrice:
				e.Price = float64frombits(v)
			case logFieldStopLoss:
				e.StopLoss = float64frombits(v)
			case logFieldTakeProfit:
				e.TakeProfit = float64frombits(v)
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return nil, fmt.Errorf("wire: skip unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}
