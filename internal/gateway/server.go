package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/google/uuid"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/routine"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

var (
	ErrNilServer    = errors.New("gateway: nil server")
	ErrNotListening = errors.New("gateway: not listening")
)

// Server accepts producer TCP connections and dispatches each to its
// own handler task under a shared Manager, so every connection can be
// cancelled individually or all at once on shutdown.
type Server struct {
	addr    string
	gateway *Gateway
	manager *routine.Manager
	ln      net.Listener
}

func NewServer(addr string, gw *Gateway) *Server {
	return &Server{addr: addr, gateway: gw}
}

// Listen opens the TCP socket. Serve must be called afterward to
// actually accept connections.
func (s *Server) Listen() error {
	if s == nil {
		return ErrNilServer
	}
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("gateway: listen %s: %w", s.addr, err)
	}
	s.ln = ln
	s.manager = routine.NewManager(context.Background())
	return nil
}

// Serve accepts connections until ctx is cancelled or the listener is
// closed. Each connection runs under its own task ID so Close can wait
// for every handler to unwind.
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
				return fmt.Errorf("gateway: accept: %w", err)
			}
		}

		connID := uuid.New().String()
		taskErr := s.manager.RunTask(&routine.Task{
			ID: connID,
			Handler: func(taskCtx context.Context) error {
				return s.gateway.HandleConn(taskCtx, conn)
			},
			OnDone: func(string) { _ = conn.Close() },
		})
		if taskErr != nil {
			_ = conn.Close()
		}
	}
}

// Close stops accepting new connections and waits for every in-flight
// handler to finish.
func (s *Server) Close() error {
	if s == nil {
		return ErrNilServer
	}
	var err error
	if s.ln != nil {
		err = s.ln.Close()
		s.ln = nil
	}
	if s.manager != nil {
		s.manager.ShutdownAll()
	}
	return err
}

// HandleConn drives one producer connection end to end: handshake, then
// a loop of frame decode → admission pipeline → ack, until the peer
// disconnects or sends a malformed frame (a connection-level protocol
// violation per spec §4.1, which closes the connection without trying
// to resync).
func (g *Gateway) HandleConn(ctx context.Context, conn net.Conn) error {
	defer conn.Close()

	remoteIP, _, _ := net.SplitHostPort(conn.RemoteAddr().String())

	hsBody, err := wire.ReadFrame(conn)
	if err != nil {
		return fmt.Errorf("gateway: read handshake: %w", err)
	}
	hs, err := wire.DecodeHandshake(hsBody)
	if err != nil {
		return fmt.Errorf("gateway: decode handshake: %w", err)
	}

	cs, reason, err := g.Handshake(ctx, hs, remoteIP)
	if err != nil {
		return fmt.Errorf("gateway: handshake: %w", err)
	}
	if cs == nil {
		_ = wire.WriteFrame(conn, wire.EncodeHandshakeAck(wire.HandshakeAck{Accepted: false, Reason: string(reason)}))
		return nil
	}
	if err := wire.WriteFrame(conn, wire.EncodeHandshakeAck(wire.HandshakeAck{Accepted: true})); err != nil {
		return fmt.Errorf("gateway: write handshake ack: %w", err)
	}

	limiter := g.Limiters.New()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		body, err := wire.ReadFrame(conn)
		if err != nil {
			return fmt.Errorf("gateway: read frame: %w", err)
		}
		pkt, err := wire.DecodeSignalPacket(body)
		if err != nil {
			return fmt.Errorf("gateway: decode signal packet: %w", err)
		}

		var ack wire.Ack
		if !limiter.Allow() {
			ack = wire.Ack{SequenceNumber: pkt.SequenceNumber, Accepted: false, Reason: string(domain.ReasonRateLimit)}
		} else {
			ack, err = g.Admit(ctx, cs, pkt)
			if err != nil {
				if g.OnWarning != nil {
					g.OnWarning(err)
				}
				if ack == (wire.Ack{}) {
					ack = wire.Ack{SequenceNumber: pkt.SequenceNumber, Accepted: false, Reason: string(domain.ReasonTimeout)}
				}
			}
		}

		if err := wire.WriteFrame(conn, wire.EncodeAck(ack)); err != nil {
			return fmt.Errorf("gateway: write ack: %w", err)
		}
	}
}
