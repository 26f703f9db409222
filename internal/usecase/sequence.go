package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/ports/repository"
	"telegram-object-publisher/internal/infra/metrics"
)

// SequenceAllocator hands out strictly increasing per-destination numbers
// backed by a durable CounterStore. Calls for the same destination are
// serialized in-process; the store's own atomic increment covers other processes.
type SequenceAllocator struct {
	store repository.CounterStore
	log   *zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
	last  map[string]int64
}

func NewSequenceAllocator(store repository.CounterStore, logger *zerolog.Logger) *SequenceAllocator {
	l := logger.With().Str("component", "SequenceAllocator").Logger()
	return &SequenceAllocator{
		store: store,
		log:   &l,
		locks: make(map[string]*sync.Mutex),
		last:  make(map[string]int64),
	}
}

func (a *SequenceAllocator) destLock(destinationID string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	m, ok := a.locks[destinationID]
	if !ok {
		m = &sync.Mutex{}
		a.locks[destinationID] = m
	}
	return m
}

// Next allocates the next number for destinationID. Any store failure is
// reported as domain.ErrStorageUnavailable and nothing may be published.
func (a *SequenceAllocator) Next(ctx context.Context, destinationID string) (int64, error) {
	destinationID = strings.TrimSpace(destinationID)
	if destinationID == "" {
		return 0, domain.ErrInvalidArgument
	}
	m := a.destLock(destinationID)
	m.Lock()
	defer m.Unlock()

	n, err := a.store.Increment(ctx, destinationID)
	if err != nil {
		metrics.IncSequenceAllocation(destinationID, false)
		a.log.Error().Err(err).Str("destination", destinationID).Msg("counter increment failed")
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	// A value at or below one we already handed out means the store lost data;
	// refusing here is what keeps a number from being published twice.
	a.mu.Lock()
	prev := a.last[destinationID]
	if n > prev {
		a.last[destinationID] = n
	}
	a.mu.Unlock()
	if n <= prev || n <= 0 {
		metrics.IncSequenceAllocation(destinationID, false)
		a.log.Error().Str("destination", destinationID).Int64("got", n).Int64("last", prev).Msg("counter went backwards")
		return 0, fmt.Errorf("%w: counter for %s returned %d after %d", domain.ErrStorageUnavailable, destinationID, n, prev)
	}

	metrics.IncSequenceAllocation(destinationID, true)
	a.log.Debug().Str("destination", destinationID).Int64("sequence", n).Msg("sequence allocated")
	return n, nil
}

// Snapshot returns the last allocated value per destination as stored durably.
func (a *SequenceAllocator) Snapshot(ctx context.Context) (map[string]int64, error) {
	all, err := a.store.LoadAll(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrStorageUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return all, nil
}

// Advance moves a destination's counter forward to value, so the next
// allocation returns value+1. Moving it backwards is rejected.
func (a *SequenceAllocator) Advance(ctx context.Context, destinationID string, value int64) error {
	destinationID = strings.TrimSpace(destinationID)
	if destinationID == "" || value < 0 {
		return domain.ErrInvalidArgument
	}
	m := a.destLock(destinationID)
	m.Lock()
	defer m.Unlock()

	a.mu.Lock()
	prev := a.last[destinationID]
	a.mu.Unlock()
	if value < prev {
		return domain.ErrCounterRegress
	}

	if err := a.store.Set(ctx, destinationID, value); err != nil {
		if errors.Is(err, domain.ErrCounterRegress) || errors.Is(err, domain.ErrStorageUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	a.mu.Lock()
	a.last[destinationID] = value
	a.mu.Unlock()
	a.log.Info().Str("destination", destinationID).Int64("value", value).Msg("counter advanced")
	return nil
}
