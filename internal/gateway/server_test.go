package gateway

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/JMS-tesoy/EASync/internal/wire"
)

func TestHandleConnEndToEnd(t *testing.T) {
	gw, _, appender, secret := testGateway(t)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	gw.Clock = func() time.Time { return now }

	serverSide, clientSide := net.Pipe()
	done := make(chan error, 1)
	go func() { done <- gw.HandleConn(context.Background(), serverSide) }()

	if err := wire.WriteFrame(clientSide, wire.EncodeHandshake(wire.Handshake{Token: "raw-token", EAInstanceID: "ea-1", MT5Account: 1})); err != nil {
		t.Fatalf("write handshake: %v", err)
	}
	hsAckBody, err := wire.ReadFrame(clientSide)
	if err != nil {
		t.Fatalf("read handshake ack: %v", err)
	}
	hsAck, err := wire.DecodeHandshakeAck(hsAckBody)
	if err != nil {
		t.Fatalf("decode handshake ack: %v", err)
	}
	if !hsAck.Accepted {
		t.Fatalf("handshake rejected: %s", hsAck.Reason)
	}

	pkt := signedPacket(secret, 11, now.UnixMilli())
	if err := wire.WriteFrame(clientSide, wire.EncodeSignalPacket(pkt)); err != nil {
		t.Fatalf("write packet: %v", err)
	}
	ackBody, err := wire.ReadFrame(clientSide)
	if err != nil {
		t.Fatalf("read ack: %v", err)
	}
	ack, err := wire.DecodeAck(ackBody)
	if err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if !ack.Accepted {
		t.Fatalf("packet rejected: %s", ack.Reason)
	}
	if len(appender.appended) != 1 {
		t.Fatalf("appended %d signals, want 1", len(appender.appended))
	}

	clientSide.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleConn did not return after client closed")
	}
}
