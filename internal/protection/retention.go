package protection

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/JMS-tesoy/EASync/internal/domain"
)

// eventStore is the subset of *Store retention needs, narrowed so
// tests can exercise the archive/delete batching logic without a
// running Postgres.
type eventStore interface {
	OlderThan(ctx context.Context, cutoff time.Time, limit int) ([]*domain.ProtectionEvent, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// Retention archives protection events older than a cutoff to a
// zstd-compressed newline-delimited JSON stream before deleting them
// from Postgres, so operators keep a cold copy without paying the
// storage cost of an indefinitely growing hot table.
type Retention struct {
	store  eventStore
	batch  int
	maxAge time.Duration
}

func NewRetention(store eventStore, maxAge time.Duration, batch int) *Retention {
	if batch <= 0 {
		batch = 1000
	}
	return &Retention{store: store, batch: batch, maxAge: maxAge}
}

// Run archives and deletes one batch of events older than now-maxAge,
// writing the archive to dst. It returns the number of events
// processed; callers loop until it returns 0. Only the rows actually
// written to dst are deleted, so a backlog larger than one batch never
// loses events past the archived window.
func (r *Retention) Run(ctx context.Context, now time.Time, dst io.Writer) (int, error) {
	cutoff := now.Add(-r.maxAge)

	events, err := r.store.OlderThan(ctx, cutoff, r.batch)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	enc, err := zstd.NewWriter(dst)
	if err != nil {
		return 0, fmt.Errorf("protection: open zstd writer: %w", err)
	}

	ids := make([]string, 0, len(events))
	encoder := json.NewEncoder(enc)
	for _, e := range events {
		if err := encoder.Encode(e); err != nil {
			_ = enc.Close()
			return 0, fmt.Errorf("protection: archive event: %w", err)
		}
		ids = append(ids, e.ID)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("protection: close zstd writer: %w", err)
	}

	if _, err := r.store.DeleteByIDs(ctx, ids); err != nil {
		return 0, err
	}
	return len(events), nil
}
