// Package stream abstracts the ordered, partitioned event log the order
// processor consumes. Entries are fetched in batches and acknowledged only
// after the derived messages are durably persisted; unacknowledged entries
// are redelivered after a crash, which downstream tolerates through the
// collapse-key dedup contract.
package stream

import "context"

type Entry struct {
	ID   string
	Data []byte

	// Set by the Kafka source; Redis acknowledges by ID.
	mark func()
}

type Source interface {
	// Fetch returns up to max unacknowledged entries, blocking briefly when
	// the stream is empty. An empty slice with a nil error means no data.
	Fetch(ctx context.Context, max int) ([]Entry, error)

	// Ack acknowledges entries. Must be called only after the side effects
	// of processing them are durably persisted.
	Ack(ctx context.Context, entries []Entry) error

	Close() error
}
