package gateway

import (
	"context"
	"log/slog"
)

// Dry logs notifications instead of delivering them.
type Dry struct {
	logger *slog.Logger
}

func NewDry(logger *slog.Logger) *Dry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dry{logger: logger}
}

func (d *Dry) Send(_ context.Context, n Notification) error {
	d.logger.Info("dry-run notification",
		"token", n.DeviceToken,
		"title", n.Title,
		"body", n.Body,
		"collapse_key", n.CollapseKey,
	)
	return nil
}

func (d *Dry) Close() error { return nil }
