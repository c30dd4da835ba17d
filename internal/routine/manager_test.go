package routine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunAndShutdown(t *testing.T) {
	m := NewManager(context.Background())
	started := make(chan struct{})
	done := make(chan struct{})

	err := m.RunTask(&Task{
		ID: "t1",
		Handler: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return nil
		},
		OnDone: func(id string) { close(done) },
	})
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("task did not start")
	}

	if err := m.Shutdown("t1"); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not finish after shutdown")
	}
}

func TestRunDuplicateIDRejected(t *testing.T) {
	m := NewManager(context.Background())
	block := make(chan struct{})
	defer close(block)

	if err := m.Run("dup", func(ctx context.Context) error { <-block; return nil }); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if err := m.Run("dup", func(ctx context.Context) error { return nil }); !errors.Is(err, ErrRoutineExists) {
		t.Fatalf("expected ErrRoutineExists, got %v", err)
	}
}

func TestShutdownUnknownID(t *testing.T) {
	m := NewManager(context.Background())
	if err := m.Shutdown("missing"); !errors.Is(err, ErrRoutineNotFound) {
		t.Fatalf("expected ErrRoutineNotFound, got %v", err)
	}
}
