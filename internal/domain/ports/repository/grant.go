package repository

import (
	"context"
	"time"

	"telegram-object-publisher/internal/domain/model"
)

// GrantRepository stores publishing permissions and contact templates.
type GrantRepository interface {
	Save(ctx context.Context, g *model.Grant) error
	FindBySubmitter(ctx context.Context, submitterID int64) (*model.Grant, error)
	Deactivate(ctx context.Context, submitterID int64) error
	ListActive(ctx context.Context) ([]*model.Grant, error)
	// ExpireBefore deactivates every active grant whose expiry is not after t and reports how many changed.
	ExpireBefore(ctx context.Context, t time.Time) (int, error)
}
