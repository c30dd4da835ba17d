// Package wallet resolves a subscriber's current funds so the
// ExecutionGuard's fund guard can decide whether a signal's required
// margin is covered.
package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrUnavailable indicates the oracle could not be reached. Callers
// decide fail-open vs fail-closed behavior; this package never guesses.
var ErrUnavailable = errors.New("wallet: oracle unavailable")

// Oracle resolves a subscriber's balance as of now.
type Oracle interface {
	Balance(ctx context.Context, subscriberID string) (float64, error)
}

// CachedOracle wraps an Oracle with a short-lived cache and
// request de-duplication: concurrent fund-guard checks for the same
// subscriber during a burst of signals collapse into one upstream
// call via singleflight, and the result is reused for ttl afterward.
type CachedOracle struct {
	upstream Oracle
	ttl      time.Duration
	group    singleflight.Group

	mu    chan struct{}
	cache map[string]cachedBalance
}

type cachedBalance struct {
	balance float64
	at      time.Time
}

func NewCachedOracle(upstream Oracle, ttl time.Duration) *CachedOracle {
	if ttl <= 0 {
		ttl = 2 * time.Second
	}
	return &CachedOracle{
		upstream: upstream,
		ttl:      ttl,
		mu:       make(chan struct{}, 1),
		cache:    make(map[string]cachedBalance),
	}
}

func (c *CachedOracle) lock()   { c.mu <- struct{}{} }
func (c *CachedOracle) unlock() { <-c.mu }

func (c *CachedOracle) Balance(ctx context.Context, subscriberID string) (float64, error) {
	c.lock()
	if cached, ok := c.cache[subscriberID]; ok && time.Since(cached.at) < c.ttl {
		c.unlock()
		return cached.balance, nil
	}
	c.unlock()

	v, err, _ := c.group.Do(subscriberID, func() (interface{}, error) {
		balance, err := c.upstream.Balance(ctx, subscriberID)
		if err != nil {
			return 0.0, fmt.Errorf("wallet: fetch balance for %s: %w", subscriberID, err)
		}
		c.lock()
		c.cache[subscriberID] = cachedBalance{balance: balance, at: time.Now()}
		c.unlock()
		return balance, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}
