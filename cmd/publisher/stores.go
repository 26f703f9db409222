package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"telegram-object-publisher/internal/config"
	"telegram-object-publisher/internal/domain/ports/repository"
	"telegram-object-publisher/internal/infra/db/postgres"
	"telegram-object-publisher/internal/infra/db/sqlite"
	"telegram-object-publisher/internal/infra/file"
	red "telegram-object-publisher/internal/infra/redis"
)

// backing holds the connections a command opened; close releases them in reverse order.
type backing struct {
	pool    *pgxpool.Pool
	redis   *red.Client
	closers []func()
}

func (b *backing) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

// openBacking connects Postgres (and migrates it) and, when configured, Redis.
func openBacking(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*backing, error) {
	b := &backing{}
	pool, err := postgres.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	b.pool = pool
	b.closers = append(b.closers, pool.Close)
	if err := postgres.Migrate(ctx, pool); err != nil {
		b.close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	if cfg.Redis.URL != "" {
		rc, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			if cfg.Counter.Backend == config.BackendRedis {
				b.close()
				return nil, fmt.Errorf("redis: %w", err)
			}
			logger.Warn().Err(err).Msg("redis unavailable; running without redelivery claims and rate limiting")
		} else {
			b.redis = rc
			b.closers = append(b.closers, func() { _ = rc.Close() })
		}
	}
	return b, nil
}

// counterStore opens the durable sequence counter selected by counter.backend.
func (b *backing) counterStore(cfg *config.Config, logger *zerolog.Logger) (repository.CounterStore, error) {
	switch cfg.Counter.Backend {
	case config.BackendPostgres:
		return postgres.NewCounterRepo(b.pool), nil
	case config.BackendRedis:
		if b.redis == nil {
			return nil, fmt.Errorf("counter.backend=redis but redis is not connected")
		}
		return red.NewCounterStore(b.redis), nil
	case config.BackendSQLite:
		s, err := sqlite.NewCounterStore(cfg.Counter.Path, logger)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = s.Close() })
		return s, nil
	case config.BackendFile:
		s, err := file.NewCounterStore(cfg.Counter.Path, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown counter.backend %q", cfg.Counter.Backend)
	}
}
