// Command migrate applies the database schema. It is idempotent: every
// statement in the schema uses IF NOT EXISTS, so running it against an
// up-to-date database is a no-op.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wavesplatform/push-notifications/internal/storage"
	"github.com/wavesplatform/push-notifications/libs/config"
	"github.com/wavesplatform/push-notifications/libs/logging"
)

func main() {
	cfg, err := config.Load(os.Getenv("PUSH_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	logger := logging.NewLogger(cfg.LogLevel, "migrate", cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DB.URL())
	if err != nil {
		logger.Error("db connection failed", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if _, err := pool.Exec(ctx, storage.Schema); err != nil {
		logger.Error("schema apply failed", "error", err)
		os.Exit(1)
	}
	logger.Info("schema applied")
}
