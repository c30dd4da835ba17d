package guard

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS last_accepted_sequence (
	subscription_id TEXT PRIMARY KEY,
	sequence_number INTEGER NOT NULL
);`

// SequenceStore persists the receiver-side last_accepted_sequence on
// local disk, the crash-safety anchor the sequence guard depends on: on
// restart, the value loaded here equals either the last successfully
// placed order's sequence or, at worst, one strictly less.
type SequenceStore struct {
	db *sql.DB
}

// NewSequenceStore opens (creating if necessary) a sqlite database at
// path. An empty path opens an in-process, non-persisted database, used
// by tests and by guardsim runs that don't care about surviving restart.
func NewSequenceStore(path string) (*SequenceStore, error) {
	if path == "" {
		path = ":memory:"
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("guard: open sequence store: %w", err)
	}
	// sqlite serializes writers regardless; a single connection also
	// keeps an in-memory database from silently splitting into one
	// fresh instance per pooled connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("guard: migrate sequence store: %w", err)
	}
	return &SequenceStore{db: db}, nil
}

// Load returns the persisted sequence for subscriptionID, or 0 if none
// has ever been recorded.
func (s *SequenceStore) Load(ctx context.Context, subscriptionID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT sequence_number FROM last_accepted_sequence WHERE subscription_id = ?`,
		subscriptionID,
	).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("guard: load sequence for %s: %w", subscriptionID, err)
	}
	return seq, nil
}

// Set persists seq as the durable last_accepted_sequence for
// subscriptionID. The guard calls this once before placing an order and
// again, with the previous value, if placement fails — the same
// operation serves both the commit and the rollback.
func (s *SequenceStore) Set(ctx context.Context, subscriptionID string, seq int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO last_accepted_sequence (subscription_id, sequence_number) VALUES (?, ?)
		 ON CONFLICT(subscription_id) DO UPDATE SET sequence_number = excluded.sequence_number`,
		subscriptionID, seq,
	)
	if err != nil {
		return fmt.Errorf("guard: persist sequence for %s: %w", subscriptionID, err)
	}
	return nil
}

func (s *SequenceStore) Close() error {
	return s.db.Close()
}
