package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"telegram-object-publisher/internal/domain"
	"telegram-object-publisher/internal/domain/model"
	"telegram-object-publisher/internal/domain/ports/repository"
)

var _ repository.GrantRepository = (*GrantRepo)(nil)

type GrantRepo struct {
	pool *pgxpool.Pool
}

func NewGrantRepo(pool *pgxpool.Pool) *GrantRepo {
	return &GrantRepo{pool: pool}
}

const grantColumns = `submitter_id, destination_id, template, active, created_at, updated_at, expires_at`

func (r *GrantRepo) Save(ctx context.Context, g *model.Grant) error {
	const q = `
INSERT INTO publisher_grants (` + grantColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (submitter_id) DO UPDATE SET
  destination_id=$2, template=$3, active=$4, updated_at=$6, expires_at=$7;`
	_, err := r.pool.Exec(ctx, q, g.SubmitterID, g.DestinationID, g.Template, g.Active, g.CreatedAt, g.UpdatedAt, g.ExpiresAt)
	return mapErr(err)
}

func (r *GrantRepo) FindBySubmitter(ctx context.Context, submitterID int64) (*model.Grant, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+grantColumns+` FROM publisher_grants WHERE submitter_id=$1;`, submitterID)
	g, err := scanGrant(row)
	if err != nil {
		return nil, mapErr(err)
	}
	return g, nil
}

func (r *GrantRepo) Deactivate(ctx context.Context, submitterID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE publisher_grants SET active=FALSE, updated_at=now() WHERE submitter_id=$1;`, submitterID)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GrantRepo) ListActive(ctx context.Context) ([]*model.Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+grantColumns+` FROM publisher_grants WHERE active ORDER BY submitter_id;`)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []*model.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, mapErr(err)
		}
		out = append(out, g)
	}
	return out, mapErr(rows.Err())
}

func (r *GrantRepo) ExpireBefore(ctx context.Context, t time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
UPDATE publisher_grants SET active=FALSE, updated_at=now()
 WHERE active AND expires_at IS NOT NULL AND expires_at <= $1;`, t)
	if err != nil {
		return 0, mapErr(err)
	}
	return int(tag.RowsAffected()), nil
}

func scanGrant(row pgx.Row) (*model.Grant, error) {
	var g model.Grant
	if err := row.Scan(&g.SubmitterID, &g.DestinationID, &g.Template, &g.Active, &g.CreatedAt, &g.UpdatedAt, &g.ExpiresAt); err != nil {
		return nil, err
	}
	return &g, nil
}
