package wallet

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type countingOracle struct {
	calls   int32
	balance float64
}

func (o *countingOracle) Balance(ctx context.Context, subscriberID string) (float64, error) {
	atomic.AddInt32(&o.calls, 1)
	return o.balance, nil
}

func TestCachedOracleDedupesWithinTTL(t *testing.T) {
	upstream := &countingOracle{balance: 500}
	cached := NewCachedOracle(upstream, time.Minute)

	for i := 0; i < 5; i++ {
		balance, err := cached.Balance(context.Background(), "sub-1")
		if err != nil {
			t.Fatalf("Balance: %v", err)
		}
		if balance != 500 {
			t.Fatalf("expected balance 500, got %v", balance)
		}
	}

	if atomic.LoadInt32(&upstream.calls) != 1 {
		t.Fatalf("expected exactly 1 upstream call, got %d", upstream.calls)
	}
}

func TestCachedOracleRefetchesAfterTTL(t *testing.T) {
	upstream := &countingOracle{balance: 100}
	cached := NewCachedOracle(upstream, time.Millisecond)

	if _, err := cached.Balance(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Balance: %v", err)
	}
	time.Sleep(5 * time.Millisecond)
	if _, err := cached.Balance(context.Background(), "sub-1"); err != nil {
		t.Fatalf("Balance: %v", err)
	}

	if atomic.LoadInt32(&upstream.calls) != 2 {
		t.Fatalf("expected 2 upstream calls after TTL expiry, got %d", upstream.calls)
	}
}

type failingOracle struct{}

func (failingOracle) Balance(ctx context.Context, subscriberID string) (float64, error) {
	return 0, ErrUnavailable
}

func TestDecideFailClosed(t *testing.T) {
	sufficient, err := Decide(context.Background(), failingOracle{}, "sub-1", 100, true)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if sufficient {
		t.Fatal("expected fail-closed to treat unavailable oracle as insufficient funds")
	}
}

func TestDecideFailOpen(t *testing.T) {
	sufficient, err := Decide(context.Background(), failingOracle{}, "sub-1", 100, false)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if !sufficient {
		t.Fatal("expected fail-open to treat unavailable oracle as sufficient funds")
	}
}
