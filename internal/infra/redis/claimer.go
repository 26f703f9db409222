// File: internal/infra/redis/claimer.go
package redis

import (
	"context"
	"time"

	"telegram-object-publisher/internal/domain/ports/adapter"
)

var _ adapter.SubmissionClaimer = (*Claimer)(nil)

// Claimer remembers accepted updates for ttl so that a redelivered update
// is recognised and dropped instead of being published a second time.
type Claimer struct {
	cli RedisClient
	ttl time.Duration
}

func NewClaimer(c RedisClient, ttl time.Duration) *Claimer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Claimer{cli: c, ttl: ttl}
}

func claimKey(key string) string { return "claim:" + key }

// Claim stores the claim time, which is what an operator inspecting the key wants to see.
func (c *Claimer) Claim(ctx context.Context, key string) (bool, error) {
	return c.cli.SetNX(ctx, claimKey(key), time.Now().UTC().Format(time.RFC3339), c.ttl)
}

// Release forgets a claim so that a retry of the same update is accepted again.
func (c *Claimer) Release(ctx context.Context, key string) error {
	return c.cli.Del(ctx, claimKey(key))
}
