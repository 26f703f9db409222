package repository

import "context"

// CounterStore is the durable per-destination sequence counter.
// Increment must be atomic: two callers never observe the same value for one destination.
// A destination never seen before starts at zero, so its first Increment returns 1.
type CounterStore interface {
	Increment(ctx context.Context, destinationID string) (int64, error)
	// LoadAll returns the last allocated value of every known destination.
	LoadAll(ctx context.Context) (map[string]int64, error)
	// Set persists an operator-chosen value; implementations reject values below the current one.
	Set(ctx context.Context, destinationID string, value int64) error
}
