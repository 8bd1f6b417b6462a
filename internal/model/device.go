package model

import (
	"errors"
	"fmt"
)

const (
	MinUTCOffsetSeconds = -12 * 3600
	MaxUTCOffsetSeconds = 14 * 3600
)

var ErrInvalidUTCOffset = errors.New("utc offset out of range")

// Device is a push delivery target owned by a subscriber. FcmUID is the
// gateway device token.
type Device struct {
	UID              int32
	Address          Address
	FcmUID           string
	Language         string
	UTCOffsetSeconds int
}

func ValidateUTCOffset(seconds int) error {
	if seconds < MinUTCOffsetSeconds || seconds > MaxUTCOffsetSeconds {
		return fmt.Errorf("%w: %d not in [%d, %d]",
			ErrInvalidUTCOffset, seconds, MinUTCOffsetSeconds, MaxUTCOffsetSeconds)
	}
	return nil
}
