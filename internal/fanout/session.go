package fanout

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

// ackTimeout bounds how long the distributor waits for a receiver to
// acknowledge one pushed signal before treating the channel as stalled
// and tearing it down; the receiver reconnecting resumes from its own
// advertised last_accepted_sequence (spec §4.4).
const ackTimeout = 30 * time.Second

// session wraps one live receiver connection. It is owned by exactly
// one goroutine (its replay loop), so no locking is needed on conn
// access itself.
type session struct {
	subscriptionID string
	masterID       string
	conn           net.Conn
}

func newSession(subscriptionID, masterID string, conn net.Conn) *session {
	return &session{subscriptionID: subscriptionID, masterID: masterID, conn: conn}
}

// push sends one signal down the channel and blocks until the receiver
// acks it, requests a resync, or the ack deadline passes.
func (s *session) push(ctx context.Context, sig *domain.Signal) (acked bool, syncRequest *wire.PushSyncRequest, err error) {
	encoded, err := wire.EncodePushSignal(wire.PushSignalFromSignal(sig))
	if err != nil {
		return false, nil, fmt.Errorf("fanout: encode push signal: %w", err)
	}
	if err := wire.WriteFrame(s.conn, encoded); err != nil {
		return false, nil, fmt.Errorf("fanout: write push signal: %w", err)
	}

	deadline := time.Now().Add(ackTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	if err := s.conn.SetReadDeadline(deadline); err != nil {
		return false, nil, fmt.Errorf("fanout: set read deadline: %w", err)
	}

	body, err := wire.ReadFrame(s.conn)
	if err != nil {
		return false, nil, fmt.Errorf("fanout: read reverse frame: %w", err)
	}
	kind, payload, err := wire.DecodeReverse(body)
	if err != nil {
		return false, nil, fmt.Errorf("fanout: decode reverse frame: %w", err)
	}

	switch kind {
	case wire.ReverseKindAck:
		ack, err := wire.DecodePushAck(payload)
		if err != nil {
			return false, nil, fmt.Errorf("fanout: decode push ack: %w", err)
		}
		return ack.LastAcceptedSequence >= sig.SequenceNumber, nil, nil
	case wire.ReverseKindSyncRequest:
		req, err := wire.DecodeSyncRequest(payload)
		if err != nil {
			return false, nil, fmt.Errorf("fanout: decode sync request: %w", err)
		}
		return false, req, nil
	default:
		return false, nil, fmt.Errorf("fanout: unknown reverse frame kind %d", kind)
	}
}

func (s *session) close() error {
	return s.conn.Close()
}
