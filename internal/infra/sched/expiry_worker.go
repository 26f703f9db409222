package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/infra/metrics"
)

// GrantExpirer is the slice of the access use case the worker drives.
type GrantExpirer interface {
	FinishExpired(ctx context.Context) (int, error)
}

// ExpiryWorker periodically deactivates publishing grants whose expiry has passed.
type ExpiryWorker struct {
	interval time.Duration
	access   GrantExpirer
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, access GrantExpirer, logger *zerolog.Logger) *ExpiryWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		access:   access,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting expiry worker")
	// Run once on startup, then on every tick
	w.runOnce(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping expiry worker")
			return ctx.Err()
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *ExpiryWorker) runOnce(ctx context.Context) int {
	n, err := w.access.FinishExpired(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("expiry worker error")
		return 0
	}
	if n > 0 {
		metrics.IncGrantsExpired(n)
		w.log.Info().Int("count", n).Msg("expired grants deactivated")
	}
	return n
}
