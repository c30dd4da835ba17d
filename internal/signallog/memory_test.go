package signallog

import (
	"context"
	"testing"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

func TestMemoryLogAppendAndReadFrom(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	for i := int64(1); i <= 5; i++ {
		if _, err := log.Append(ctx, &domain.Signal{MasterID: "m1", SequenceNumber: i}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	all, err := log.ReadFrom(ctx, "m1", "", 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(all))
	}

	fromThird, err := log.ReadFrom(ctx, "m1", all[1].Offset, 0)
	if err != nil {
		t.Fatalf("ReadFrom after offset: %v", err)
	}
	if len(fromThird) != 3 {
		t.Fatalf("expected 3 remaining entries, got %d", len(fromThird))
	}
	if fromThird[0].Signal.SequenceNumber != 3 {
		t.Fatalf("expected replay to resume at sequence 3, got %d", fromThird[0].Signal.SequenceNumber)
	}
}

func TestMemoryLogTrim(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	var offsets []string
	for i := int64(1); i <= 4; i++ {
		off, _ := log.Append(ctx, &domain.Signal{MasterID: "m1", SequenceNumber: i})
		offsets = append(offsets, off)
	}

	if err := log.Trim(ctx, "m1", offsets[2]); err != nil {
		t.Fatalf("Trim: %v", err)
	}

	remaining, err := log.ReadFrom(ctx, "m1", "", 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if len(remaining) != 2 {
		t.Fatalf("expected 2 entries retained after trim, got %d", len(remaining))
	}
	if remaining[0].Signal.SequenceNumber != 3 {
		t.Fatalf("expected retained entries to start at sequence 3, got %d", remaining[0].Signal.SequenceNumber)
	}
}

func TestMemoryLogPerMasterIsolation(t *testing.T) {
	ctx := context.Background()
	log := NewMemoryLog()

	log.Append(ctx, &domain.Signal{MasterID: "a", SequenceNumber: 1})
	log.Append(ctx, &domain.Signal{MasterID: "b", SequenceNumber: 1})

	aEntries, _ := log.ReadFrom(ctx, "a", "", 0)
	bEntries, _ := log.ReadFrom(ctx, "b", "", 0)
	if len(aEntries) != 1 || len(bEntries) != 1 {
		t.Fatalf("expected isolated streams per master, got a=%d b=%d", len(aEntries), len(bEntries))
	}
}
