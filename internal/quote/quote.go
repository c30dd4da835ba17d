// Package quote supplies the current market bid/ask the ExecutionGuard
// compares a signal's price against for its deviation check.
package quote

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Source resolves the current bid/ask for a symbol. The guard's
// price-deviation check compares a BUY signal's price against ask and
// a SELL signal's price against bid, per the side the order crosses
// the spread on.
type Source interface {
	Quote(ctx context.Context, symbol string) (bid, ask float64, err error)
}

// ErrUnknownSymbol indicates no quote is available for the requested
// symbol.
var ErrUnknownSymbol = fmt.Errorf("quote: unknown symbol")

// MemorySource is a settable, in-process Source, used by the guard
// simulator and by tests in place of a live price feed.
type MemorySource struct {
	mu   sync.RWMutex
	bids map[string]float64
	asks map[string]float64
	asOf map[string]time.Time
}

func NewMemorySource() *MemorySource {
	return &MemorySource{bids: make(map[string]float64), asks: make(map[string]float64), asOf: make(map[string]time.Time)}
}

// Set installs a symmetric bid/ask around mid, for callers (and most
// tests) that only care about a single reference price.
func (m *MemorySource) Set(symbol string, mid float64, at time.Time) {
	m.SetQuote(symbol, mid, mid, at)
}

// SetQuote installs an explicit bid/ask pair for symbol.
func (m *MemorySource) SetQuote(symbol string, bid, ask float64, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bids[symbol] = bid
	m.asks[symbol] = ask
	m.asOf[symbol] = at
}

func (m *MemorySource) Quote(ctx context.Context, symbol string) (bid, ask float64, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bids[symbol]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrUnknownSymbol, symbol)
	}
	return b, m.asks[symbol], nil
}
