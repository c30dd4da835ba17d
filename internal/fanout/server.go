package fanout

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/JMS-tesoy/EASync/internal/routine"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

var (
	ErrNilServer    = errors.New("fanout: nil server")
	ErrNotListening = errors.New("fanout: not listening")
)

// Server accepts receiver push-channel connections: each one opens by
// sending a PushSyncRequest carrying {subscription_id, have_through},
// which doubles as both the initial handshake and any later mid-stream
// resync request on the same wire shape. The handshake itself runs
// under a short-lived accept-stage task so it can be cancelled along
// with everything else on shutdown; once RegisterSession succeeds, the
// connection's lifetime is owned by the distributor's own task for
// that subscription.
type Server struct {
	addr        string
	distributor *Distributor
	registry    RegistryLookup
	manager     *routine.Manager
	ln          net.Listener
}

func NewServer(addr string, distributor *Distributor, registry RegistryLookup) *Server {
	return &Server{addr: addr, distributor: distributor, registry: registry}
}

func (s *Server) Listen() error {
	if s == nil {
		return ErrNilServer
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("fanout: listen %s: %w", s.addr, err)
	}
	s.ln = ln
	s.manager = routine.NewManager(context.Background())
	return nil
}

func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return ErrNilServer
	}
	if s.ln == nil {
		return ErrNotListening
	}
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return fmt.Errorf("fanout: accept: %w", err)
			}
		}

		connID := uuid.New().String()
		taskErr := s.manager.RunTask(&routine.Task{
			ID: connID,
			Handler: func(taskCtx context.Context) error {
				return s.handleConn(taskCtx, conn)
			},
		})
		if taskErr != nil {
			_ = conn.Close()
		}
	}
}

func (s *Server) Close() error {
	if s == nil {
		return ErrNilServer
	}
	s.distributor.Close()
	if s.manager != nil {
		s.manager.ShutdownAll()
	}
	if s.ln == nil {
		return nil
	}
	err := s.ln.Close()
	s.ln = nil
	return err
}

// handleConn reads the opening sync request and hands the connection
// off to the distributor. It closes conn itself on every failure path;
// on success, ownership of conn passes to the registered session, which
// closes it when that session ends.
func (s *Server) handleConn(ctx context.Context, conn net.Conn) error {
	body, err := wire.ReadFrame(conn)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("fanout: read sync request: %w", err)
	}
	req, err := wire.DecodeSyncRequest(body)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("fanout: decode sync request: %w", err)
	}

	sub, err := s.registry.Get(ctx, req.SubscriptionID)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("fanout: look up subscription %s: %w", req.SubscriptionID, err)
	}

	if err := s.distributor.RegisterSession(sub, conn, req.HaveThrough); err != nil {
		_ = conn.Close()
		return fmt.Errorf("fanout: register session: %w", err)
	}
	return nil
}
