package wire

import (
	"time"

	"github.com/fxamacker/cbor/v2"
)

// PushSignal is what the Fan-out Distributor sends down the receiver
// push channel: the Signal schema plus the server-stamped arrival time
// (spec §6, "Wire — receiver push"). CBOR keeps this channel
// schema-evolvable without a codegen step, unlike the fixed producer
// ingress contract.
type PushSignal struct {
	MasterID          string    `cbor:"1,keyasint"`
	SequenceNumber    int64     `cbor:"2,keyasint"`
	GeneratedAtMillis int64     `cbor:"3,keyasint"`
	ServerArrivalTime time.Time `cbor:"4,keyasint"`
	Symbol            string    `cbor:"5,keyasint"`
	Side              int32     `cbor:"6,keyasint"`
	Volume            float64   `cbor:"7,keyasint"`
	Price             float64   `cbor:"8,keyasint"`
	StopLoss          float64   `cbor:"9,keyasint"`
	TakeProfit        float64   `cbor:"10,keyasint"`
	Signature         string    `cbor:"11,keyasint"`
	SubscriptionID    string    `cbor:"12,keyasint"`
}

// PushAck is the reverse-direction {ack, last_accepted_sequence} message.
// It reports the sequence the guard pipeline processed, not that the
// resulting order was accepted: a rejected signal still advances it,
// since a receiver-side admission rejection does not retract the
// distributor's delivery cursor.
type PushAck struct {
	LastAcceptedSequence int64 `cbor:"1,keyasint"`
}

// PushSyncRequest is the reverse-direction {sync_request, have_through}
// message that triggers full sync (spec §4.5).
type PushSyncRequest struct {
	SubscriptionID string `cbor:"1,keyasint"`
	HaveThrough    int64  `cbor:"2,keyasint"`
}

var cborMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return mode
}()

func EncodePushSignal(p *PushSignal) ([]byte, error) {
	return cborMode.Marshal(p)
}

func DecodePushSignal(data []byte) (*PushSignal, error) {
	var p PushSignal
	if err := cbor.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func EncodePushAck(a *PushAck) ([]byte, error) {
	return cborMode.Marshal(a)
}

func DecodePushAck(data []byte) (*PushAck, error) {
	var a PushAck
	if err := cbor.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func EncodeSyncRequest(s *PushSyncRequest) ([]byte, error) {
	return cborMode.Marshal(s)
}

func DecodeSyncRequest(data []byte) (*PushSyncRequest, error) {
	var s PushSyncRequest
	if err := cbor.Unmarshal(data, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
