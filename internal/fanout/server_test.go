package fanout

import (
	"context"
	"net"
	"testing"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/signallog"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

func TestServerHandleConnRegistersSession(t *testing.T) {
	log := signallog.NewMemoryLog()
	if _, err := log.Append(context.Background(), &domain.Signal{MasterID: "master-1", SequenceNumber: 1, Symbol: "EURUSD"}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	sub := &domain.Subscription{ID: "sub-1", MasterID: "master-1", State: domain.StateSynced}
	registry := newFakeRegistry(sub)
	d := NewDistributor(log, newFakeCursors(), registry, false)
	defer d.Close()

	srv := NewServer("", d, registry)

	client, server := net.Pipe()
	defer client.Close()

	req, err := wire.EncodeSyncRequest(&wire.PushSyncRequest{SubscriptionID: "sub-1", HaveThrough: 0})
	if err != nil {
		t.Fatalf("EncodeSyncRequest: %v", err)
	}
	go func() {
		_ = wire.WriteFrame(client, req)
	}()

	if err := srv.handleConn(context.Background(), server); err != nil {
		t.Fatalf("handleConn: %v", err)
	}

	body, err := wire.ReadFrame(client)
	if err != nil {
		t.Fatalf("expected a pushed signal frame, got: %v", err)
	}
	if _, err := wire.DecodePushSignal(body); err != nil {
		t.Fatalf("DecodePushSignal: %v", err)
	}
}

func TestServerCloseWithoutListenIsNotAnError(t *testing.T) {
	d := NewDistributor(signallog.NewMemoryLog(), newFakeCursors(), newFakeRegistry(), false)
	srv := NewServer("127.0.0.1:0", d, newFakeRegistry())
	if err := srv.Close(); err != nil {
		t.Fatalf("Close on an unopened server: %v", err)
	}
}

func TestServeWithoutListenReturnsErrNotListening(t *testing.T) {
	d := NewDistributor(signallog.NewMemoryLog(), newFakeCursors(), newFakeRegistry(), false)
	srv := NewServer("127.0.0.1:0", d, newFakeRegistry())
	if err := srv.Serve(context.Background()); err != ErrNotListening {
		t.Fatalf("Serve = %v, want ErrNotListening", err)
	}
}
