package gateway

import (
	"context"
	"fmt"

	"github.com/JMS-tesoy/EASync/internal/domain"
	"github.com/JMS-tesoy/EASync/internal/signallog"
)

// ErrPoolExhausted is returned when every pooled log client is already
// borrowed. The caller must fail the packet with LOG_UNAVAILABLE rather
// than block (spec §5: bounded pool, never blocks indefinitely).
var ErrPoolExhausted = fmt.Errorf("gateway: log client pool exhausted")

// LogClientPool bounds the number of concurrent in-flight appends to
// the Signal Log a single gateway process will issue, so one slow
// downstream does not let an unbounded number of goroutines pile up
// behind it (spec §4.1: "the gateway holds a pool of downstream log
// clients; a request borrows one only for the append").
type LogClientPool struct {
	log signallog.Log
	sem chan struct{}
}

func NewLogClientPool(log signallog.Log, size int) *LogClientPool {
	if size <= 0 {
		size = 64
	}
	return &LogClientPool{log: log, sem: make(chan struct{}, size)}
}

// Append borrows a slot, appends s, and returns the slot immediately.
func (p *LogClientPool) Append(ctx context.Context, s *domain.Signal) (string, error) {
	select {
	case p.sem <- struct{}{}:
	default:
		return "", ErrPoolExhausted
	}
	defer func() { <-p.sem }()
	return p.log.Append(ctx, s)
}
