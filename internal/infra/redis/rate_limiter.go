package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter per key.
type RateLimiter struct {
	client RedisClient
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client}
}

// Allow counts one hit against key and reports whether it is within limit for the current window.
// The window key is created with its TTL in one SET NX, so a crash between
// INCR and EXPIRE cannot leave a counter that never resets.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	if _, err := r.client.SetNX(ctx, key, "0", window); err != nil {
		return false, fmt.Errorf("rate limit window %s: %w", key, err)
	}
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, fmt.Errorf("rate limit incr %s: %w", key, err)
	}
	return count <= int64(limit), nil
}

const (
	groupPending = "pending"
	groupAllowed = "allow"
	groupDenied  = "deny"
)

// AllowGroup charges key once per groupID: the first message of a group takes
// the hit and records the verdict, later messages of the same group in the
// window share it. first reports whether this call took the hit.
func (r *RateLimiter) AllowGroup(ctx context.Context, key, groupID string, limit int, window time.Duration) (allowed, first bool, err error) {
	if limit <= 0 {
		return true, true, nil
	}
	gk := key + ":group:" + groupID
	created, err := r.client.SetNX(ctx, gk, groupPending, window)
	if err != nil {
		return false, false, fmt.Errorf("rate limit group %s: %w", gk, err)
	}
	if !created {
		verdict, err := r.client.Get(ctx, gk)
		if err != nil {
			return false, false, fmt.Errorf("rate limit group %s: %w", gk, err)
		}
		return verdict != groupDenied, false, nil
	}

	ok, err := r.Allow(ctx, key, limit, window)
	if err != nil {
		_ = r.client.Del(ctx, gk)
		return false, true, err
	}
	verdict := groupAllowed
	if !ok {
		verdict = groupDenied
	}
	if err := r.client.Set(ctx, gk, verdict, window); err != nil {
		return ok, true, fmt.Errorf("rate limit group %s: %w", gk, err)
	}
	return ok, true, nil
}

// SubmitterKey is the rate limit bucket of one submitter's incoming posts.
func SubmitterKey(submitterID int64) string {
	return fmt.Sprintf("rate_limit:%d:submit", submitterID)
}
