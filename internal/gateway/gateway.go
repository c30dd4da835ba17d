// Package gateway implements the Ingest Gateway: the hot-path producer
// front door that authenticates a master connection once at handshake
// and then validates every subsequent signal packet against that
// connection's bound subscription before committing it to the Signal
// Log, per spec §4.1.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/license"
	"github.com/JMS-tesoy/EASync/internal/obs"
	"github.com/JMS-tesoy/EASync/internal/signing"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

// SubscriptionLookup is the subset of the registry the gateway needs:
// resolving a hashed token to its bound subscription, and loading that
// subscription's current policy and high-water mark. *registry.Store
// satisfies this directly.
type SubscriptionLookup interface {
	Get(ctx context.Context, id string) (*domain.Subscription, error)
	GetCredential(ctx context.Context, tokenHash string) (*domain.LicenseCredential, error)
}

// HWMAdvancer persists the gateway's per-subscription high-water mark
// after a successful append, so a restarted gateway can reseed
// monotonicity checks without replaying the whole log.
// *registry.Store satisfies this directly.
type HWMAdvancer interface {
	AdvanceHWM(ctx context.Context, subscriptionID string, seq int64) error
}

// DeviceChecker enforces the multi-device cap at handshake time.
// *license.Detector satisfies this directly.
type DeviceChecker interface {
	Check(ctx context.Context, tokenHash string, fp license.DeviceFingerprint, now time.Time) error
}

// Appender commits an accepted Signal to the Signal Log. *LogClientPool
// satisfies this, bounding concurrent in-flight appends.
type Appender interface {
	Append(ctx context.Context, s *domain.Signal) (string, error)
}

// Clock abstracts wall-clock reads so tests can control server time.
type Clock func() time.Time

// Notifier tells the fan-out plane a signal just landed in the Signal
// Log, so a receiver session idling on the distributor side wakes
// immediately instead of waiting out its poll interval.
// *fanout.NotificationPublisher satisfies this directly.
type Notifier interface {
	Publish(ctx context.Context, s *domain.Signal) error
}

// Gateway holds every collaborator the per-packet admission pipeline
// needs. One Gateway serves every producer connection in a process.
type Gateway struct {
	Lookup          SubscriptionLookup
	HWM             HWMAdvancer
	Devices         DeviceChecker
	Secrets         SecretResolver
	Log             Appender
	Limiters        *RateLimiterFactory
	Clock           Clock
	ClockSkewBudget time.Duration

	// Notifier is called after a successful append. A nil Notifier
	// just means delivery falls back to the distributor's idle poll.
	Notifier Notifier

	// Metrics records admission outcomes and ingest latency. A nil
	// Metrics is a valid no-op (every Metrics method tolerates it).
	Metrics *obs.Metrics

	// OnWarning reports non-fatal anomalies (e.g. a lagging HWM write)
	// that do not change the packet's accept/reject outcome. Nil is a
	// valid no-op.
	OnWarning func(err error)
}

// New constructs a Gateway with the given collaborators, defaulting
// the clock to time.Now and the skew budget to the spec's 60s example.
func New(lookup SubscriptionLookup, hwm HWMAdvancer, devices DeviceChecker, secrets SecretResolver, log Appender, limiters *RateLimiterFactory) *Gateway {
	return &Gateway{
		Lookup:          lookup,
		HWM:             hwm,
		Devices:         devices,
		Secrets:         secrets,
		Log:             log,
		Limiters:        limiters,
		Clock:           time.Now,
		ClockSkewBudget: 60 * time.Second,
	}
}

// connState is the per-connection identity established at handshake
// and held for the lifetime of the connection; it is owned by a single
// goroutine (one per connection) so it needs no internal locking.
type connState struct {
	tokenHash      string
	subscriptionID string
	masterID       string
	secret         []byte
	last           int64
}

// Handshake authenticates a new connection: resolves the token,
// enforces the device cap, and loads the subscription's current
// high-water mark and secret. It returns the reason code to send back
// in a HandshakeAck when authentication fails.
func (g *Gateway) Handshake(ctx context.Context, h wire.Handshake, remoteIP string) (*connState, domain.RejectReason, error) {
	tokenHash := license.HashToken(h.Token)

	cred, err := g.Lookup.GetCredential(ctx, tokenHash)
	if err != nil {
		return nil, domain.ReasonInvalidCredential, nil
	}
	if !cred.IsActive || (!cred.ExpiresAt.IsZero() && g.Clock().After(cred.ExpiresAt)) {
		return nil, domain.ReasonInvalidCredential, nil
	}

	fp := license.DeviceFingerprint{IPAddress: remoteIP, EAInstanceID: h.EAInstanceID, MT5Account: h.MT5Account}
	if err := g.Devices.Check(ctx, tokenHash, fp, g.Clock()); err != nil {
		if errors.Is(err, license.ErrTooManyDevices) {
			return nil, domain.ReasonInvalidCredential, nil
		}
		return nil, "", fmt.Errorf("gateway: device check: %w", err)
	}

	sub, err := g.Lookup.Get(ctx, cred.SubscriptionID)
	if err != nil {
		return nil, domain.ReasonInvalidCredential, nil
	}

	secret, err := g.Secrets.Secret(ctx, sub.Policy.SecretKeyRef)
	if err != nil {
		return nil, "", fmt.Errorf("gateway: resolve secret: %w", err)
	}

	return &connState{
		tokenHash:      tokenHash,
		subscriptionID: sub.ID,
		masterID:       sub.MasterID,
		secret:         secret,
		last:           sub.HWM,
	}, "", nil
}

// Admit runs the per-packet pipeline (spec §4.1 steps 2-7; credential
// resolution already happened at handshake) and returns the Ack to
// send back to the producer. A non-nil error indicates an internal
// failure unrelated to the packet's own validity (e.g. a lookup
// timeout); those should also surface as a rejected ack upstream.
func (g *Gateway) Admit(ctx context.Context, cs *connState, pkt *wire.SignalPacket) (wire.Ack, error) {
	if pkt.SubscriptionID != cs.subscriptionID {
		g.Metrics.ObserveAdmission(false, domain.ReasonInvalidCredential)
		return reject(pkt.SequenceNumber, domain.ReasonInvalidCredential), nil
	}

	sig := &domain.Signal{
		MasterID:          cs.masterID,
		SubscriptionID:    pkt.SubscriptionID,
		SequenceNumber:    pkt.SequenceNumber,
		GeneratedAtMillis: pkt.GeneratedAtMillis,
		Symbol:            pkt.Symbol,
		Side:              domain.Side(pkt.Side),
		Volume:            pkt.Volume,
		Price:             pkt.Price,
		StopLoss:          pkt.StopLoss,
		TakeProfit:        pkt.TakeProfit,
		Signature:         pkt.Signature,
	}

	ok, err := signing.Verify(cs.secret, wire.CanonicalPayload(sig), pkt.Signature)
	if err != nil {
		return wire.Ack{}, fmt.Errorf("gateway: verify signature: %w", err)
	}
	if !ok {
		g.Metrics.ObserveAdmission(false, domain.ReasonInvalidSignature)
		return reject(pkt.SequenceNumber, domain.ReasonInvalidSignature), nil
	}

	if pkt.SequenceNumber <= cs.last {
		g.Metrics.ObserveAdmission(false, domain.ReasonReplayOrDuplicate)
		return reject(pkt.SequenceNumber, domain.ReasonReplayOrDuplicate), nil
	}

	now := g.Clock()
	ageMillis := now.UnixMilli() - pkt.GeneratedAtMillis
	budgetMillis := g.ClockSkewBudget.Milliseconds()
	if ageMillis > budgetMillis || ageMillis < -budgetMillis {
		g.Metrics.ObserveAdmission(false, domain.ReasonClockSkew)
		return reject(pkt.SequenceNumber, domain.ReasonClockSkew), nil
	}

	sig.ServerArrivalTime = now

	if _, err := g.Log.Append(ctx, sig); err != nil {
		g.Metrics.ObserveAdmission(false, domain.ReasonLogUnavailable)
		return reject(pkt.SequenceNumber, domain.ReasonLogUnavailable), nil
	}

	cs.last = pkt.SequenceNumber
	if err := g.HWM.AdvanceHWM(ctx, cs.subscriptionID, pkt.SequenceNumber); err != nil && g.OnWarning != nil {
		// The append already committed; a lagging HWM only affects
		// crash-recovery reseed, not correctness of this packet.
		g.OnWarning(fmt.Errorf("gateway: advance hwm: %w", err))
	}

	if g.Notifier != nil {
		if err := g.Notifier.Publish(ctx, sig); err != nil && g.OnWarning != nil {
			g.OnWarning(fmt.Errorf("gateway: publish notification: %w", err))
		}
	}

	g.Metrics.ObserveAdmission(true, "")
	g.Metrics.ObserveIngestLatency(now.Sub(time.UnixMilli(pkt.GeneratedAtMillis)))

	return wire.Ack{SequenceNumber: pkt.SequenceNumber, Accepted: true}, nil
}

func reject(seq int64, reason domain.RejectReason) wire.Ack {
	return wire.Ack{SequenceNumber: seq, Accepted: false, Reason: string(reason)}
}
