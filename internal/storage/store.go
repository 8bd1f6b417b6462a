// Package storage is the persistence layer shared by the API, the two event
// processors and the sender. It performs no retries: infrastructure errors
// propagate to the caller, whose poll/fetch cycle is the retry policy.
package storage

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrQuotaExceeded  = errors.New("subscription quota exceeded")
	ErrDeviceNotFound = errors.New("device not found")
)

type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}
}

func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

// cleanupSubscriber removes the subscriber row once it owns neither devices
// nor subscriptions. Called inside every transaction that deletes either.
func cleanupSubscriber(ctx context.Context, tx pgx.Tx, address string) error {
	_, err := tx.Exec(ctx, `
		DELETE FROM subscribers s
		WHERE s.address = $1
		  AND NOT EXISTS (SELECT 1 FROM devices d WHERE d.subscriber_address = s.address)
		  AND NOT EXISTS (SELECT 1 FROM subscriptions sub WHERE sub.subscriber_address = s.address)
	`, address)
	return err
}

func ensureSubscriber(ctx context.Context, tx pgx.Tx, address string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO subscribers (address) VALUES ($1)
		ON CONFLICT (address) DO NOTHING
	`, address)
	return err
}
