// Package gateway delivers prepared notifications to devices. The production
// implementation talks to FCM; the dry-run one only logs, for running the
// sender against a real queue without reaching devices.
package gateway

import (
	"context"
	"errors"
)

// ErrPermanent wraps delivery failures that retrying cannot fix, such as an
// unregistered device token. The sender gives up on the message immediately
// instead of walking the backoff schedule.
var ErrPermanent = errors.New("permanent delivery failure")

type Notification struct {
	DeviceToken string
	Title       string
	Body        string
	CollapseKey string
	Data        map[string]string
}

type Gateway interface {
	Send(ctx context.Context, n Notification) error
	Close() error
}

// Permanent reports whether the delivery error is not worth retrying.
func Permanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}
