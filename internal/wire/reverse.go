package wire

import "fmt"

// ReverseKind tags which of the two receiver-to-distributor messages a
// push-channel frame carries; PushAck and PushSyncRequest both encode
// as small integer-keyed CBOR maps, so a one-byte prefix disambiguates
// them without growing either schema.
type ReverseKind byte

const (
	ReverseKindAck         ReverseKind = 1
	ReverseKindSyncRequest ReverseKind = 2
)

func EncodeReverseAck(a *PushAck) ([]byte, error) {
	body, err := EncodePushAck(a)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(ReverseKindAck)}, body...), nil
}

func EncodeReverseSyncRequest(s *PushSyncRequest) ([]byte, error) {
	body, err := EncodeSyncRequest(s)
	if err != nil {
		return nil, err
	}
	return append([]byte{byte(ReverseKindSyncRequest)}, body...), nil
}

// DecodeReverse splits a reverse-channel frame into its kind and
// remaining CBOR body.
func DecodeReverse(frame []byte) (ReverseKind, []byte, error) {
	if len(frame) < 1 {
		return 0, nil, fmt.Errorf("wire: empty reverse frame")
	}
	return ReverseKind(frame[0]), frame[1:], nil
}
