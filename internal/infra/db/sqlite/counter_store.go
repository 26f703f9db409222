package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/ports/repository"
)

var _ repository.CounterStore = (*CounterStore)(nil)

// CounterStore keeps sequence counters in a local SQLite file.
// It suits a single process; replicas must share the Postgres or Redis backend.
type CounterStore struct {
	db  *sql.DB
	log *zerolog.Logger
}

func NewCounterStore(dbPath string, logger *zerolog.Logger) (*CounterStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	// single writer; increments serialize on this connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	l := logger.With().Str("component", "SQLiteCounterStore").Str("path", dbPath).Logger()
	s := &CounterStore{db: db, log: &l}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *CounterStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS sequence_counters (
		destination_id TEXT PRIMARY KEY,
		value          INTEGER NOT NULL CHECK (value >= 0),
		updated_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	);`)
	return err
}

func (s *CounterStore) Increment(ctx context.Context, destinationID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
	INSERT INTO sequence_counters (destination_id, value, updated_at)
	VALUES (?, 1, CURRENT_TIMESTAMP)
	ON CONFLICT(destination_id) DO UPDATE
	   SET value = value + 1, updated_at = CURRENT_TIMESTAMP
	RETURNING value;`, destinationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return n, nil
}

func (s *CounterStore) LoadAll(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT destination_id, value FROM sequence_counters`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			dest string
			n    int64
		)
		if err := rows.Scan(&dest, &n); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		out[dest] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (s *CounterStore) Set(ctx context.Context, destinationID string, value int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer func() { _ = tx.Rollback() }()

	var cur int64
	err = tx.QueryRowContext(ctx, `SELECT value FROM sequence_counters WHERE destination_id = ?`, destinationID).Scan(&cur)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if value < cur {
		return domain.ErrCounterRegress
	}
	if _, err := tx.ExecContext(ctx, `
	INSERT INTO sequence_counters (destination_id, value, updated_at)
	VALUES (?, ?, CURRENT_TIMESTAMP)
	ON CONFLICT(destination_id) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		destinationID, value); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	s.log.Info().Str("destination", destinationID).Int64("value", value).Msg("counter set")
	return nil
}

func (s *CounterStore) Close() error {
	return s.db.Close()
}
