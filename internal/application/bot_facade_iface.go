package application

import (
	"context"

	"telegram-object-publisher/internal/domain/model"
)

// ---- small interfaces to decouple the facade from concrete usecase structs ----

type PublishUseCaseIface interface {
	Submit(ctx context.Context, sub *model.Submission) (model.PublishOutcome, error)
}

type AccessUseCaseIface interface {
	Authorize(ctx context.Context, submitterID int64) (*model.Authorization, error)
	Get(ctx context.Context, submitterID int64) (*model.Grant, error)
}

type SequenceIface interface {
	Snapshot(ctx context.Context) (map[string]int64, error)
}

type Translator interface {
	T(key string, args ...interface{}) string
}
