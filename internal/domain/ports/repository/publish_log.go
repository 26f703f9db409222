package repository

import (
	"context"

	"telegram-object-publisher/internal/domain/model"
)

type PublishLogRepository interface {
	Save(ctx context.Context, rec *model.PublishRecord) error
	ListRecent(ctx context.Context, destinationID string, limit int) ([]*model.PublishRecord, error)
}
