package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// sequencer stamps every stored row with a store-wide sequence number so
// a response can be ordered against the lifecycle event that followed it.
// The number is taken and the row written in one transaction: an insert
// that fails rolls the counter back with it.
type sequencer struct {
	mu sync.Mutex
	db *sql.DB
}

// insertFunc builds the statement for a row stamped with seq.
type insertFunc func(seq int64) (query string, args []any)

// insert runs build's statement under the next sequence number.
func (s *sequencer) insert(ctx context.Context, build insertFunc) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var seq int64
	err = tx.QueryRowContext(ctx,
		`UPDATE global_sequence SET next_val = next_val + 1 WHERE id = 1 RETURNING next_val - 1`,
	).Scan(&seq)
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}

	query, args := build(seq)
	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	return tx.Commit()
}
