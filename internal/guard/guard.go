// Package guard implements the ExecutionGuard: the in-process,
// fail-closed admission pipeline that runs colocated with a single
// subscriber's terminal, inside a process the operator does not fully
// trust. It is the receiver-side mirror of internal/gateway's admission
// pipeline, enforcing a fixed six-guard order before ever calling out to
// the host's order-placement capability.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/numbers"
	"github.com/JMS-tesoy/EASync/internal/quote"
	"github.com/JMS-tesoy/EASync/internal/signing"
	"github.com/JMS-tesoy/EASync/internal/wallet"
	"github.com/JMS-tesoy/EASync/internal/wire"
)

// HostTerminal is the terminal-platform order-placement primitive the
// guard's host process provides; placing orders is explicitly out of
// scope, so this is the seam a real integration plugs into.
type HostTerminal interface {
	PlaceOrder(ctx context.Context, sig *domain.Signal) error
}

// Sink is the best-effort protection-event publish path. A failed
// publish never blocks or changes the admission decision that produced
// the event; the caller only logs it. *protection.Publisher satisfies
// this directly.
type Sink interface {
	Publish(ctx context.Context, e *domain.ProtectionEvent) error
}

// Clock returns the receiver-local time used for TTL and event
// timestamps.
type Clock func() time.Time

// Decision is the outcome of one Admit call.
type Decision struct {
	Accepted bool
	Reason   domain.RejectReason
	// FullSyncHaveThrough is set when Reason is SEQUENCE_GAP: the caller
	// should send a PushSyncRequest carrying this value over the
	// distributor's push channel to trigger full sync.
	FullSyncHaveThrough *int64
}

// Guard is the admission pipeline for exactly one subscription. It is
// owned by the single goroutine driving that subscription's push
// channel, so its fields need no internal locking.
type Guard struct {
	SubscriptionID string
	SubscriberID   string
	MasterID       string
	Secret         []byte
	Policy         domain.Policy

	Sequences *SequenceStore
	Quotes    quote.Source
	Wallet    wallet.Oracle
	Terminal  HostTerminal
	Sink      Sink
	Clock     Clock

	// FailClosed is the fund guard's behavior when the wallet oracle is
	// unavailable: true treats the subscriber as out of funds, false
	// treats them as funded. spec §9 leaves this a configuration choice
	// rather than a hard rule.
	FailClosed bool

	state domain.SubscriptionState
	last  int64
}

// New constructs a Guard and loads its persisted last_accepted_sequence.
// The local state starts SYNCED; a cold start with no prior sequence is
// indistinguishable from a receiver that has simply never fallen behind.
func New(subscriptionID, subscriberID, masterID string, secret []byte, policy domain.Policy, sequences *SequenceStore, quotes quote.Source, walletOracle wallet.Oracle, terminal HostTerminal, sink Sink, walletFailClosed bool) (*Guard, error) {
	g := &Guard{
		SubscriptionID: subscriptionID,
		SubscriberID:   subscriberID,
		MasterID:       masterID,
		Secret:         secret,
		Policy:         policy,
		Sequences:      sequences,
		Quotes:         quotes,
		Wallet:         walletOracle,
		Terminal:       terminal,
		Sink:           sink,
		Clock:          time.Now,
		FailClosed:     walletFailClosed,
		state:          domain.StateSynced,
	}
	last, err := sequences.Load(context.Background(), subscriptionID)
	if err != nil {
		return nil, err
	}
	g.last = last
	return g, nil
}

// State reports the guard's current local state, for the push-channel
// loop to decide whether to keep requesting full sync.
func (g *Guard) State() domain.SubscriptionState { return g.state }

// LastAccepted reports the current receiver-side high-water mark.
func (g *Guard) LastAccepted() int64 { return g.last }

// Admit runs the full six-guard pipeline for sig.
func (g *Guard) Admit(ctx context.Context, sig *domain.Signal) (Decision, error) {
	return g.admit(ctx, sig, false)
}

// AdmitFullSync runs the pipeline for a signal delivered during gap
// recovery, bypassing only the state guard (spec: "a dedicated entry
// point that bypasses only this guard while still advancing the
// sequence one at a time").
func (g *Guard) AdmitFullSync(ctx context.Context, sig *domain.Signal) (Decision, error) {
	return g.admit(ctx, sig, true)
}

func (g *Guard) admit(ctx context.Context, sig *domain.Signal, fullSync bool) (Decision, error) {
	n := sig.SequenceNumber
	now := g.Clock()

	// 1. Sequence guard.
	if n <= g.last {
		reason := domain.ReasonReplay
		if n == g.last {
			reason = domain.ReasonDuplicate
		}
		return g.reject(ctx, sig, now, reason, nil, nil), nil
	}
	if n > g.last+1 {
		g.transition(domain.EventReceiverGap)
		haveThrough := g.last
		dec := g.reject(ctx, sig, now, domain.ReasonSequenceGap, nil, nil)
		dec.FullSyncHaveThrough = &haveThrough
		return dec, nil
	}

	// 2. State guard (bypassed during full sync).
	if !fullSync && g.state != domain.StateSynced {
		return g.reject(ctx, sig, now, domain.ReasonStateLocked, nil, nil), nil
	}

	// 3. TTL guard.
	ageMs := now.UnixMilli() - sig.GeneratedAtMillis
	if ageMs > g.Policy.MaxTTLMillis {
		return g.reject(ctx, sig, now, domain.ReasonTTLExpired, nil, nil), nil
	}

	// 4. Price-deviation guard. A BUY crosses the spread at ask, a SELL
	// at bid.
	bid, ask, err := g.Quotes.Quote(ctx, sig.Symbol)
	if err != nil {
		// No quote is uncertainty; fail closed.
		return g.reject(ctx, sig, now, domain.ReasonPriceDeviation, nil, nil), nil
	}
	current := ask
	if sig.Side == domain.SideSell {
		current = bid
	}
	deviation := numbers.DeviationPips(sig.Symbol, sig.Price, current)
	if deviation > g.Policy.MaxPriceDeviationPips {
		return g.reject(ctx, sig, now, domain.ReasonPriceDeviation, &deviation, nil), nil
	}

	// 5. Fund guard.
	requiredUSD := sig.Volume * sig.Price
	sufficient, err := wallet.Decide(ctx, g.Wallet, g.SubscriberID, requiredUSD, g.FailClosed)
	if err != nil {
		return Decision{}, fmt.Errorf("guard: decide fund guard: %w", err)
	}
	if !sufficient {
		var balancePtr *float64
		if balance, balErr := g.Wallet.Balance(ctx, g.SubscriberID); balErr == nil {
			balancePtr = &balance
		}
		g.transition(domain.EventWalletEmpty)
		return g.reject(ctx, sig, now, domain.ReasonInsufficientFunds, nil, balancePtr), nil
	}

	// 6. Signature guard.
	ok, err := signing.Verify(g.Secret, wire.CanonicalPayload(sig), sig.Signature)
	if err != nil {
		return Decision{}, fmt.Errorf("guard: verify signature: %w", err)
	}
	if !ok {
		return g.reject(ctx, sig, now, domain.ReasonInvalidSignature, nil, nil), nil
	}

	return g.place(ctx, sig, n)
}

// place runs the commit protocol: persist n before calling out to the
// host terminal, then commit or roll back depending on the result.
func (g *Guard) place(ctx context.Context, sig *domain.Signal, n int64) (Decision, error) {
	previous := g.last
	if err := g.Sequences.Set(ctx, g.SubscriptionID, n); err != nil {
		return Decision{}, fmt.Errorf("guard: persist sequence before placing order: %w", err)
	}

	if err := g.Terminal.PlaceOrder(ctx, sig); err != nil {
		if rollbackErr := g.Sequences.Set(ctx, g.SubscriptionID, previous); rollbackErr != nil {
			return Decision{}, fmt.Errorf("guard: roll back sequence after failed order placement: %w", rollbackErr)
		}
		// Execution failures are not protection events: the signal was
		// legitimate, the terminal just could not execute it.
		return Decision{Accepted: false, Reason: domain.ReasonOrderPlacementFail}, nil
	}

	g.last = n
	g.recordSuccess(ctx, sig, g.Clock())
	return Decision{Accepted: true}, nil
}

// recordSuccess publishes a best-effort ReasonExecutionSuccess event so
// the Trust Loop can weigh clean executions against a subscriber's
// rejections instead of scoring on penalties alone.
func (g *Guard) recordSuccess(ctx context.Context, sig *domain.Signal, now time.Time) {
	if g.Sink == nil {
		return
	}
	evt := &domain.ProtectionEvent{
		SubscriptionID:        g.SubscriptionID,
		EventTime:             now,
		SignalSequence:        sig.SequenceNumber,
		GeneratedAtMillis:     sig.GeneratedAtMillis,
		ArrivalTime:           sig.ServerArrivalTime,
		Reason:                domain.ReasonExecutionSuccess,
		ObservedLatencyMillis: now.UnixMilli() - sig.GeneratedAtMillis,
		StateAtEvent:          g.state,
	}
	if err := g.Sink.Publish(ctx, evt); err != nil {
		_ = err
	}
}

// reject records a ProtectionEvent best-effort and returns a rejection
// Decision. Rejections never advance last_accepted_sequence.
func (g *Guard) reject(ctx context.Context, sig *domain.Signal, now time.Time, reason domain.RejectReason, deviation, walletBalance *float64) Decision {
	evt := &domain.ProtectionEvent{
		SubscriptionID:        g.SubscriptionID,
		EventTime:             now,
		SignalSequence:        sig.SequenceNumber,
		GeneratedAtMillis:     sig.GeneratedAtMillis,
		ArrivalTime:           sig.ServerArrivalTime,
		Reason:                reason,
		ObservedLatencyMillis: now.UnixMilli() - sig.GeneratedAtMillis,
		ObservedDeviation:     deviation,
		StateAtEvent:          g.state,
		WalletBalanceAtEvent:  walletBalance,
	}
	if g.Sink != nil {
		if err := g.Sink.Publish(ctx, evt); err != nil {
			// Best-effort: a lost protection event degrades trust-scoring
			// fidelity, never the admission decision already made.
			_ = err
		}
	}
	return Decision{Accepted: false, Reason: reason}
}

func (g *Guard) transition(event domain.Event) {
	next, err := domain.Transition(g.state, event)
	if err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
		return
	}
	if err == nil {
		g.state = next
	}
}
