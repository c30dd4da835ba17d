package signallog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// MemoryLog is an in-process Log used by tests, where a real Redis
// stream would only add latency without exercising anything the test
// cares about.
type MemoryLog struct {
	mu      sync.Mutex
	entries map[string][]Entry
	next    map[string]int64
}

func NewMemoryLog() *MemoryLog {
	return &MemoryLog{
		entries: make(map[string][]Entry),
		next:    make(map[string]int64),
	}
}

func offsetFor(seq int64) string {
	return fmt.Sprintf("%020d-0", seq)
}

func (l *MemoryLog) Append(ctx context.Context, s *domain.Signal) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := l.next[s.MasterID]
	l.next[s.MasterID] = n + 1
	offset := offsetFor(n)

	cp := *s
	l.entries[s.MasterID] = append(l.entries[s.MasterID], Entry{Offset: offset, Signal: &cp})
	return offset, nil
}

func (l *MemoryLog) ReadFrom(ctx context.Context, masterID string, afterOffset string, limit int64) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	all := l.entries[masterID]
	start := 0
	if afterOffset != "" {
		idx := sort.Search(len(all), func(i int) bool { return all[i].Offset > afterOffset })
		start = idx
	}

	end := len(all)
	if limit > 0 && start+int(limit) < end {
		end = start + int(limit)
	}
	if start >= end {
		return nil, nil
	}

	out := make([]Entry, end-start)
	copy(out, all[start:end])
	return out, nil
}

func (l *MemoryLog) Trim(ctx context.Context, masterID string, keepAfterOffset string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	all := l.entries[masterID]
	idx := sort.Search(len(all), func(i int) bool { return all[i].Offset >= keepAfterOffset })
	l.entries[masterID] = append([]Entry{}, all[idx:]...)
	return nil
}

func (l *MemoryLog) Close() error { return nil }
