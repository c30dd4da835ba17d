package license

import (
	"context"
	"sync"
	"time"
)

// MemoryTracker is an in-process DeviceTracker used by tests.
type MemoryTracker struct {
	mu   sync.Mutex
	seen map[string]map[string]*SeenFingerprint
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{seen: make(map[string]map[string]*SeenFingerprint)}
}

func (t *MemoryTracker) KnownFingerprints(ctx context.Context, tokenHash string) ([]SeenFingerprint, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]SeenFingerprint, 0, len(t.seen[tokenHash]))
	for _, v := range t.seen[tokenHash] {
		out = append(out, *v)
	}
	return out, nil
}

func (t *MemoryTracker) RecordFingerprint(ctx context.Context, tokenHash string, fp DeviceFingerprint, seenAt time.Time) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen[tokenHash] == nil {
		t.seen[tokenHash] = make(map[string]*SeenFingerprint)
	}
	key := fp.key()
	if existing, ok := t.seen[tokenHash][key]; ok {
		existing.LastSeen = seenAt
		return nil
	}
	t.seen[tokenHash][key] = &SeenFingerprint{Fingerprint: fp, FirstSeen: seenAt, LastSeen: seenAt}
	return nil
}
