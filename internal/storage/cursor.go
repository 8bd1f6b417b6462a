package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// Cursor returns the persisted resume position for the named processor.
// The boolean is false when no position has been recorded yet.
func (s *Store) Cursor(ctx context.Context, name string) (uint64, bool, error) {
	var height int64
	err := s.pool.QueryRow(ctx, `
		SELECT height FROM processor_cursors WHERE name = $1
	`, name).Scan(&height)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return uint64(height), true, nil
}

func advanceCursor(ctx context.Context, tx pgx.Tx, name string, height uint64) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO processor_cursors (name, height) VALUES ($1, $2)
		ON CONFLICT (name) DO UPDATE SET height = $2, updated_at = now()
	`, name, int64(height))
	return err
}
