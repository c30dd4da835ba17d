package fanout

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

func testSignal(seq int64) *domain.Signal {
	return &domain.Signal{
		MasterID:       "master-1",
		SequenceNumber: seq,
		Symbol:         "EURUSD",
		Side:           domain.SideBuy,
		Volume:         1,
		Price:          1.1,
	}
}

func TestSessionPushAcked(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sess := newSession("sub-1", "master-1", server)

	go func() {
		body, err := wire.ReadFrame(client)
		if err != nil {
			return
		}
		pushed, err := wire.DecodePushSignal(body)
		if err != nil {
			return
		}
		frame, err := wire.EncodeReverseAck(&wire.PushAck{LastAcceptedSequence: pushed.SequenceNumber})
		if err != nil {
			return
		}
		_ = wire.WriteFrame(client, frame)
	}()

	acked, syncReq, err := sess.push(context.Background(), testSignal(5))
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if syncReq != nil {
		t.Fatalf("unexpected sync request %+v", syncReq)
	}
	if !acked {
		t.Fatal("expected acked=true")
	}
}

// A guard rejection still acks the pushed sequence (spec: rejection
// does not retract the cursor), so push must treat it the same as an
// accepted order.
func TestSessionPushAckedOnRejection(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sess := newSession("sub-1", "master-1", server)

	go func() {
		body, err := wire.ReadFrame(client)
		if err != nil {
			return
		}
		pushed, err := wire.DecodePushSignal(body)
		if err != nil {
			return
		}
		// Simulates a rejected signal: the guard's own committed
		// sequence never moved, but the ack still reports the pushed
		// sequence as processed.
		frame, err := wire.EncodeReverseAck(&wire.PushAck{LastAcceptedSequence: pushed.SequenceNumber})
		if err != nil {
			return
		}
		_ = wire.WriteFrame(client, frame)
	}()

	acked, syncReq, err := sess.push(context.Background(), testSignal(5))
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if syncReq != nil {
		t.Fatalf("unexpected sync request %+v", syncReq)
	}
	if !acked {
		t.Fatal("expected acked=true for a rejection-shaped ack")
	}
}

func TestSessionPushReturnsSyncRequest(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sess := newSession("sub-1", "master-1", server)

	go func() {
		if _, err := wire.ReadFrame(client); err != nil {
			return
		}
		frame, err := wire.EncodeReverseSyncRequest(&wire.PushSyncRequest{SubscriptionID: "sub-1", HaveThrough: 3})
		if err != nil {
			return
		}
		_ = wire.WriteFrame(client, frame)
	}()

	acked, syncReq, err := sess.push(context.Background(), testSignal(5))
	if err != nil {
		t.Fatalf("push: %v", err)
	}
	if acked {
		t.Fatal("expected acked=false when receiver requests a resync")
	}
	if syncReq == nil || syncReq.HaveThrough != 3 {
		t.Fatalf("syncReq = %+v, want HaveThrough=3", syncReq)
	}
}

func TestSessionPushTimesOutWithoutReply(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	sess := newSession("sub-1", "master-1", server)

	go func() {
		_, _ = wire.ReadFrame(client)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	if _, _, err := sess.push(ctx, testSignal(5)); err == nil {
		t.Fatal("expected an error when the receiver never replies")
	}
}
