package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/domain/ports/repository"
)

var _ repository.PublishLogRepository = (*PublishLogRepo)(nil)

type PublishLogRepo struct {
	pool *pgxpool.Pool
}

func NewPublishLogRepo(pool *pgxpool.Pool) *PublishLogRepo {
	return &PublishLogRepo{pool: pool}
}

func (r *PublishLogRepo) Save(ctx context.Context, rec *model.PublishRecord) error {
	const q = `
INSERT INTO publish_log (id, submitter_id, destination_id, sequence_number, kind, items, status, error, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
ON CONFLICT (id) DO UPDATE SET status=$7, error=$8;`
	_, err := r.pool.Exec(ctx, q, rec.ID, rec.SubmitterID, rec.DestinationID, rec.SequenceNumber,
		rec.Kind, rec.Items, string(rec.Status), rec.Error, rec.CreatedAt)
	return mapErr(err)
}

func (r *PublishLogRepo) ListRecent(ctx context.Context, destinationID string, limit int) ([]*model.PublishRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
SELECT id, submitter_id, destination_id, sequence_number, kind, items, status, error, created_at
  FROM publish_log WHERE destination_id=$1
 ORDER BY created_at DESC LIMIT $2;`, destinationID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.PublishRecord
	for rows.Next() {
		var (
			rec    model.PublishRecord
			status string
		)
		if err := rows.Scan(&rec.ID, &rec.SubmitterID, &rec.DestinationID, &rec.SequenceNumber,
			&rec.Kind, &rec.Items, &status, &rec.Error, &rec.CreatedAt); err != nil {
			return nil, mapErr(err)
		}
		rec.Status = model.PublishStatus(status)
		out = append(out, &rec)
	}
	return out, mapErr(rows.Err())
}
