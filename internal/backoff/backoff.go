// Package backoff computes retry delays for message delivery. The schedule
// is a pure function of the attempt count so the sender's I/O loop stays
// trivially testable.
package backoff

import (
	"math"
	"time"
)

// Exponential returns the delay to wait after the given number of completed
// send attempts: initial * multiplier^(attempts-1), so the first retry waits
// exactly the initial interval.
func Exponential(initial time.Duration, multiplier float64, attempts int) time.Duration {
	if attempts <= 1 {
		return initial
	}
	factor := math.Pow(multiplier, float64(attempts-1))
	return time.Duration(float64(initial) * factor)
}
