// File: internal/domain/ports/adapter/publisher.go
package adapter

import (
	"context"

	"telegram-object-publisher/internal/domain/model"
)

// Publisher is the outbound sink that performs the actual network send.
// Retries and flood control belong to the implementation.
type Publisher interface {
	Publish(ctx context.Context, req *model.PublishRequest) error
}

// Notifier reports asynchronous outcomes back to the original submitter.
type Notifier interface {
	Notify(ctx context.Context, submitterID int64, message string) error
}

// SubmissionClaimer detects transport redelivery of an update that was already accepted.
// Claim returns false when key was claimed before and has not been released.
type SubmissionClaimer interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}
