package wire

import (
	"bytes"
	"testing"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

func TestFrameRoundTrip(t *testing.T) {
	p := &SignalPacket{
		SubscriptionID:    "sub-1",
		SequenceNumber:    42,
		GeneratedAtMillis: 1700000000000,
		Symbol:            "EURUSD",
		Side:              1,
		Volume:            1.5,
		Price:             1.10000,
		StopLoss:          1.09500,
		TakeProfit:        1.10500,
		Signature:         "deadbeef",
	}
	encoded := EncodeSignalPacket(p)

	var buf bytes.Buffer
	if err := WriteFrame(&buf, encoded); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	decoded, err := DecodeSignalPacket(got)
	if err != nil {
		t.Fatalf("DecodeSignalPacket: %v", err)
	}
	if *decoded != *p {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, p)
	}
}

func TestReadFrameTooLarge(t *testing.T) {
	var buf bytes.Buffer
	oversized := make([]byte, MaxFrameSize+1)
	if err := WriteFrame(&buf, oversized[:4]); err != nil {
		t.Fatal(err)
	}
	// Tamper the length prefix to claim an oversized body.
	raw := buf.Bytes()
	raw[0], raw[1], raw[2], raw[3] = 0xFF, 0xFF, 0xFF, 0xFF
	if _, err := ReadFrame(bytes.NewReader(raw)); err != ErrFrameTooLarge {
		t.Fatalf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestCanonicalPayloadDeterministic(t *testing.T) {
	s := &domain.Signal{
		SubscriptionID:    "sub-1",
		SequenceNumber:    1,
		GeneratedAtMillis: 1700000000000,
		Symbol:            "EURUSD",
		Side:              domain.SideBuy,
		Volume:            1.5,
		Price:             1.1,
		StopLoss:          1.095,
		TakeProfit:        1.105,
	}
	a := CanonicalPayload(s)
	b := CanonicalPayload(s)
	if !bytes.Equal(a, b) {
		t.Fatal("canonical payload must be deterministic")
	}
	want := "sub-1|1|1700000000000|EURUSD|1|1.50000|1.10000|1.09500|1.10500"
	if string(a) != want {
		t.Errorf("canonical payload = %q, want %q", a, want)
	}
}

func TestLogEnvelopeRoundTrip(t *testing.T) {
	s := &domain.Signal{
		MasterID:          "master-1",
		SequenceNumber:    7,
		GeneratedAtMillis: 123456,
		Symbol:            "GBPUSD",
		Side:              domain.SideSell,
		Volume:            2,
		Price:             1.25,
		StopLoss:          1.26,
		TakeProfit:        1.24,
		Signature:         "abc123",
		SubscriptionID:    "sub-9",
	}
	s.ServerArrivalTime = s.ServerArrivalTime.UTC()

	env := LogEnvelopeFromSignal(s)
	encoded := EncodeLogEnvelope(env)
	decoded, err := DecodeLogEnvelope(encoded)
	if err != nil {
		t.Fatalf("DecodeLogEnvelope: %v", err)
	}
	if *decoded != *env {
		t.Errorf("log envelope round trip mismatch: got %+v, want %+v", decoded, env)
	}
}

func TestAckRoundTrip(t *testing.T) {
	a := Ack{SequenceNumber: 42, Accepted: false, Reason: "TTL_EXPIRED"}
	decoded, err := DecodeAck(EncodeAck(a))
	if err != nil {
		t.Fatalf("DecodeAck: %v", err)
	}
	if decoded != a {
		t.Errorf("ack round trip mismatch: got %+v, want %+v", decoded, a)
	}
}

func TestHandshakeRoundTrip(t *testing.T) {
	h := Handshake{Token: "raw-token", EAInstanceID: "ea-7", MT5Account: 12345}
	decoded, err := DecodeHandshake(EncodeHandshake(h))
	if err != nil {
		t.Fatalf("DecodeHandshake: %v", err)
	}
	if decoded != h {
		t.Errorf("handshake round trip mismatch: got %+v, want %+v", decoded, h)
	}

	ack := HandshakeAck{Accepted: true, Reason: ""}
	decodedAck, err := DecodeHandshakeAck(EncodeHandshakeAck(ack))
	if err != nil {
		t.Fatalf("DecodeHandshakeAck: %v", err)
	}
	if decodedAck != ack {
		t.Errorf("handshake ack round trip mismatch: got %+v, want %+v", decodedAck, ack)
	}
}

func TestReverseMessageRoundTrip(t *testing.T) {
	ackFrame, err := EncodeReverseAck(&PushAck{LastAcceptedSequence: 9})
	if err != nil {
		t.Fatalf("EncodeReverseAck: %v", err)
	}
	kind, body, err := DecodeReverse(ackFrame)
	if err != nil {
		t.Fatalf("DecodeReverse: %v", err)
	}
	if kind != ReverseKindAck {
		t.Fatalf("kind = %v, want ReverseKindAck", kind)
	}
	ack, err := DecodePushAck(body)
	if err != nil {
		t.Fatalf("DecodePushAck: %v", err)
	}
	if ack.LastAcceptedSequence != 9 {
		t.Errorf("LastAcceptedSequence = %d, want 9", ack.LastAcceptedSequence)
	}

	syncFrame, err := EncodeReverseSyncRequest(&PushSyncRequest{SubscriptionID: "sub-1", HaveThrough: 5})
	if err != nil {
		t.Fatalf("EncodeReverseSyncRequest: %v", err)
	}
	kind, body, err = DecodeReverse(syncFrame)
	if err != nil {
		t.Fatalf("DecodeReverse: %v", err)
	}
	if kind != ReverseKindSyncRequest {
		t.Fatalf("kind = %v, want ReverseKindSyncRequest", kind)
	}
	sync, err := DecodeSyncRequest(body)
	if err != nil {
		t.Fatalf("DecodeSyncRequest: %v", err)
	}
	if sync.SubscriptionID != "sub-1" || sync.HaveThrough != 5 {
		t.Errorf("sync = %+v, want {sub-1 5}", sync)
	}
}

func TestPushSignalRoundTrip(t *testing.T) {
	s := &domain.Signal{
		MasterID:          "master-2",
		SequenceNumber:    3,
		GeneratedAtMillis: 99,
		Symbol:            "USDJPY",
		Side:              domain.SideClose,
		Volume:            0.1,
		Price:             150.123,
		Signature:         "sig",
		SubscriptionID:    "sub-3",
	}
	push := PushSignalFromSignal(s)
	encoded, err := EncodePushSignal(push)
	if err != nil {
		t.Fatalf("EncodePushSignal: %v", err)
	}
	decoded, err := DecodePushSignal(encoded)
	if err != nil {
		t.Fatalf("DecodePushSignal: %v", err)
	}
	if decoded.Symbol != push.Symbol || decoded.SequenceNumber != push.SequenceNumber {
		t.Errorf("push signal round trip mismatch: got %+v, want %+v", decoded, push)
	}
}
