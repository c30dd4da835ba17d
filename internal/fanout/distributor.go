package fanout

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/routine"
	"github.com/JMS-tesoy/EASync/internal/signallog"
)

const (
	fanoutBatchSize = 64
	fanoutIdlePoll  = 2 * time.Second
)

// RegistryLookup is the subset of the Subscription Registry the
// distributor needs: reading a subscription's current state and
// policy, listing every subscription fed by a master, and driving the
// DEGRADED_GAP/SYNCED transitions around full sync. *registry.Store
// satisfies this directly.
type RegistryLookup interface {
	Get(ctx context.Context, id string) (*domain.Subscription, error)
	ListByMaster(ctx context.Context, masterID string) ([]*domain.Subscription, error)
	ApplyEvent(ctx context.Context, id string, event domain.Event) (*domain.Subscription, error)
}

// Cursors is the delivery-cursor dependency the distributor needs.
// *CursorStore satisfies this directly.
type Cursors interface {
	Get(ctx context.Context, subscriptionID string) (string, error)
	Advance(ctx context.Context, subscriptionID, masterID, offset string) error
}

// Distributor delivers every accepted signal to the live receiver
// sessions of the matching master, in strict per-master order, per
// spec §4.4.
type Distributor struct {
	Log               signallog.Log
	Cursors           Cursors
	Registry          RegistryLookup
	SuppressNonSynced bool

	manager      *routine.Manager
	broadcasters *broadcasterRegistry
}

func NewDistributor(log signallog.Log, cursors Cursors, registry RegistryLookup, suppressNonSynced bool) *Distributor {
	return &Distributor{
		Log:               log,
		Cursors:           cursors,
		Registry:          registry,
		SuppressNonSynced: suppressNonSynced,
		manager:           routine.NewManager(context.Background()),
		broadcasters:      newBroadcasterRegistry(),
	}
}

// RegisterSession starts delivering to a newly connected receiver.
// haveThrough is the sequence number the receiver advertises at
// connect; any prior session for the same subscription is torn down
// first, since a receiver only ever holds one live channel.
func (d *Distributor) RegisterSession(sub *domain.Subscription, conn net.Conn, haveThrough int64) error {
	_ = d.manager.Shutdown(sub.ID)

	sess := newSession(sub.ID, sub.MasterID, conn)
	return d.manager.RunTask(&routine.Task{
		ID: sub.ID,
		Handler: func(taskCtx context.Context) error {
			return d.runSession(taskCtx, sub, sess, haveThrough)
		},
		OnDone: func(string) { _ = sess.close() },
	})
}

// HandleSignal wakes any session currently idling for masterID, called
// from the Kafka notification consumer right after a gateway append.
func (d *Distributor) HandleSignal(ctx context.Context, masterID string) error {
	d.broadcasters.notify(masterID)
	return nil
}

// Close tears down every live session.
func (d *Distributor) Close() {
	d.manager.ShutdownAll()
}

func (d *Distributor) runSession(ctx context.Context, sub *domain.Subscription, sess *session, haveThrough int64) error {
	degraded := sub.State == domain.StateDegradedGap

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		cursor, err := d.Cursors.Get(ctx, sub.ID)
		if err != nil {
			if !errors.Is(err, ErrNoCursor) {
				return err
			}
			cursor = ""
		}

		entries, err := d.Log.ReadFrom(ctx, sub.MasterID, cursor, fanoutBatchSize)
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			if degraded {
				if _, err := d.Registry.ApplyEvent(ctx, sub.ID, domain.EventFullSyncDone); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
					return err
				}
				degraded = false
			}
			select {
			case <-ctx.Done():
				return nil
			case <-d.broadcasters.get(sub.MasterID).wait():
			case <-time.After(fanoutIdlePoll):
			}
			continue
		}

		resync, err := d.deliverBatch(ctx, sub, sess, entries, &haveThrough)
		if err != nil {
			return err
		}
		if resync {
			degraded = true
		}
	}
}

// deliverBatch pushes entries in order, stopping early (without error)
// if the receiver mid-batch requests a resync to an earlier point.
func (d *Distributor) deliverBatch(ctx context.Context, sub *domain.Subscription, sess *session, entries []signallog.Entry, haveThrough *int64) (resync bool, err error) {
	for _, e := range entries {
		if e.Signal.SequenceNumber <= *haveThrough {
			if err := d.Cursors.Advance(ctx, sub.ID, sub.MasterID, e.Offset); err != nil {
				return false, err
			}
			continue
		}

		if d.SuppressNonSynced {
			current, err := d.Registry.Get(ctx, sub.ID)
			if err == nil && !current.State.CanTrade() && current.State != domain.StateDegradedGap {
				return false, nil
			}
		}

		acked, syncReq, err := sess.push(ctx, e.Signal)
		if err != nil {
			return false, err
		}
		if syncReq != nil {
			*haveThrough = syncReq.HaveThrough
			if _, err := d.Registry.ApplyEvent(ctx, sub.ID, domain.EventReceiverGap); err != nil && !errors.Is(err, domain.ErrInvalidTransition) {
				return false, err
			}
			return true, nil
		}
		if !acked {
			return false, fmt.Errorf("fanout: receiver did not ack sequence %d for %s", e.Signal.SequenceNumber, sub.ID)
		}
		if err := d.Cursors.Advance(ctx, sub.ID, sub.MasterID, e.Offset); err != nil {
			return false, err
		}
	}
	return false, nil
}
