package protection

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

type fakeEventStore struct {
	events  []*domain.ProtectionEvent
	deleted []string
}

func (f *fakeEventStore) OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ProtectionEvent, error) {
	var out []*domain.ProtectionEvent
	for _, e := range f.events {
		if e.EventTime.Before(cutoff) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (f *fakeEventStore) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	toDelete := make(map[string]bool, len(ids))
	for _, id := range ids {
		toDelete[id] = true
	}
	f.deleted = append(f.deleted, ids...)
	var kept []*domain.ProtectionEvent
	for _, e := range f.events {
		if !toDelete[e.ID] {
			kept = append(kept, e)
		}
	}
	n := int64(len(f.events) - len(kept))
	f.events = kept
	return n, nil
}

func agedEvent(id string, age time.Duration, now time.Time) *domain.ProtectionEvent {
	return &domain.ProtectionEvent{ID: id, EventTime: now.Add(-age)}
}

// A backlog larger than one batch must not lose the events past the
// archived window: Run should only delete what it actually wrote to
// dst, leaving the rest for the next call.
func TestRetentionRunNeverDeletesUnarchivedBacklog(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeEventStore{}
	for i := 0; i < 5; i++ {
		store.events = append(store.events, agedEvent(string(rune('a'+i)), 200*24*time.Hour, now))
	}

	retention := NewRetention(store, 90*24*time.Hour, 2)

	n, err := retention.Run(context.Background(), now, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Fatalf("archived %d events, want 2 (batch-limited)", n)
	}
	if len(store.events) != 3 {
		t.Fatalf("%d events remain, want 3 (only the archived batch deleted)", len(store.events))
	}

	n, err = retention.Run(context.Background(), now, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 2 {
		t.Fatalf("archived %d events on second pass, want 2", n)
	}
	if len(store.events) != 1 {
		t.Fatalf("%d events remain after two passes, want 1", len(store.events))
	}

	n, err = retention.Run(context.Background(), now, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 1 {
		t.Fatalf("archived %d events on third pass, want 1", n)
	}
	if len(store.events) != 0 {
		t.Fatalf("%d events remain, want 0", len(store.events))
	}
}

func TestRetentionRunLeavesEventsWithinMaxAgeAlone(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []*domain.ProtectionEvent{
		agedEvent("fresh", time.Hour, now),
	}}

	retention := NewRetention(store, 90*24*time.Hour, 10)
	n, err := retention.Run(context.Background(), now, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if n != 0 {
		t.Errorf("archived %d events, want 0 (nothing past the cutoff)", n)
	}
	if len(store.events) != 1 {
		t.Errorf("%d events remain, want 1 (untouched)", len(store.events))
	}
}

func TestRetentionRunWritesValidZstdArchive(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeEventStore{events: []*domain.ProtectionEvent{
		agedEvent("old-1", 200*24*time.Hour, now),
	}}

	var buf bytes.Buffer
	retention := NewRetention(store, 90*24*time.Hour, 10)
	if _, err := retention.Run(context.Background(), now, &buf); err != nil {
		t.Fatalf("Run: %v", err)
	}

	dec, err := zstd.NewReader(&buf)
	if err != nil {
		t.Fatalf("zstd.NewReader: %v", err)
	}
	defer dec.Close()
	decoded, err := io.ReadAll(dec)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(decoded) == 0 {
		t.Fatal("archive was empty")
	}
}
