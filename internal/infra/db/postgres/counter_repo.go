package postgres

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/ports/repository"
)

var _ repository.CounterStore = (*CounterRepo)(nil)

// CounterRepo keeps one row per destination. The increment is a single
// upsert, so concurrent replicas sharing the database never collide.
type CounterRepo struct {
	pool *pgxpool.Pool
	tm   *TxManager
}

func NewCounterRepo(pool *pgxpool.Pool) *CounterRepo {
	return &CounterRepo{pool: pool, tm: NewTxManager(pool)}
}

func (r *CounterRepo) Increment(ctx context.Context, destinationID string) (int64, error) {
	const q = `
INSERT INTO sequence_counters (destination_id, value, updated_at)
VALUES ($1, 1, now())
ON CONFLICT (destination_id) DO UPDATE
   SET value = sequence_counters.value + 1, updated_at = now()
RETURNING value;`
	var n int64
	if err := r.pool.QueryRow(ctx, q, destinationID).Scan(&n); err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

func (r *CounterRepo) LoadAll(ctx context.Context) (map[string]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT destination_id, value FROM sequence_counters;`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			dest string
			n    int64
		)
		if err := rows.Scan(&dest, &n); err != nil {
			return nil, mapErr(err)
		}
		out[dest] = n
	}
	return out, mapErr(rows.Err())
}

// Set moves the counter to value inside a transaction holding the row lock.
// The row is created first so that there is always a row to lock.
func (r *CounterRepo) Set(ctx context.Context, destinationID string, value int64) error {
	return r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
INSERT INTO sequence_counters (destination_id, value, updated_at)
VALUES ($1, 0, now())
ON CONFLICT (destination_id) DO NOTHING;`, destinationID); err != nil {
			return mapErr(err)
		}
		var cur int64
		if err := tx.QueryRow(ctx,
			`SELECT value FROM sequence_counters WHERE destination_id=$1 FOR UPDATE;`, destinationID).Scan(&cur); err != nil {
			return mapErr(err)
		}
		if value < cur {
			return domain.ErrCounterRegress
		}
		_, err := tx.Exec(ctx,
			`UPDATE sequence_counters SET value = $2, updated_at = now() WHERE destination_id = $1;`, destinationID, value)
		return mapErr(err)
	})
}
