//go:build !integration

package redis

import (
	"context"
	"testing"
	"time"
)

func TestClaimer_ClaimOnceUntilReleased(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	c := NewClaimer(fc, time.Hour)

	ok, err := c.Claim(ctx, "1001:55")
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}
	if fc.expires["claim:1001:55"] != time.Hour {
		t.Fatalf("claim ttl not applied: %v", fc.expires["claim:1001:55"])
	}
	at, err := time.Parse(time.RFC3339, fc.data["claim:1001:55"])
	if err != nil || time.Since(at) > time.Minute {
		t.Fatalf("claim should hold its claim time, got %q", fc.data["claim:1001:55"])
	}
	if ok, _ := c.Claim(ctx, "1001:55"); ok {
		t.Fatal("redelivered update must not be claimed twice")
	}
	if err := c.Release(ctx, "1001:55"); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if ok, _ := c.Claim(ctx, "1001:55"); !ok {
		t.Fatal("released claim should be available again")
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	rl := NewRateLimiter(fc)
	key := SubmitterKey(42)

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, key, 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("hit %d should pass: %v %v", i+1, ok, err)
		}
	}
	if ok, _ := rl.Allow(ctx, key, 3, time.Minute); ok {
		t.Fatal("fourth hit should be limited")
	}
	if fc.expires[key] != time.Minute {
		t.Fatalf("window not set on first hit: %v", fc.expires[key])
	}
}

func TestRateLimiter_WindowCreatedWithTTL(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	rl := NewRateLimiter(fc)
	key := SubmitterKey(7)

	if ok, err := rl.Allow(ctx, key, 5, 30*time.Second); err != nil || !ok {
		t.Fatalf("first hit: ok=%v err=%v", ok, err)
	}
	if got := fc.expires[key]; got != 30*time.Second {
		t.Fatalf("window ttl = %v, want 30s", got)
	}
	// later hits must not reset the window
	fc.expires[key] = 0
	_, _ = rl.Allow(ctx, key, 5, 30*time.Second)
	if fc.expires[key] != 0 {
		t.Fatal("second hit reset the window ttl")
	}
}

func TestRateLimiter_NoLimit(t *testing.T) {
	rl := NewRateLimiter(newFakeClient())
	for i := 0; i < 100; i++ {
		if ok, _ := rl.Allow(context.Background(), SubmitterKey(1), 0, time.Minute); !ok {
			t.Fatal("limit 0 must allow everything")
		}
	}
}

func TestRateLimiter_AllowGroupChargesOncePerAlbum(t *testing.T) {
	ctx := context.Background()
	fc := newFakeClient()
	rl := NewRateLimiter(fc)
	key := SubmitterKey(42)

	for i := 0; i < 5; i++ {
		ok, first, err := rl.AllowGroup(ctx, key, "G", 3, time.Minute)
		if err != nil || !ok {
			t.Fatalf("album part %d rejected: %v %v", i+1, ok, err)
		}
		if first != (i == 0) {
			t.Fatalf("part %d: first = %v", i+1, first)
		}
	}
	if fc.counts[key] != 1 {
		t.Fatalf("album charged %d hits, want 1", fc.counts[key])
	}

	// two single posts use up the rest of the window
	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow(ctx, key, 3, time.Minute); !ok {
			t.Fatalf("single post %d should pass", i+1)
		}
	}
	for i := 0; i < 4; i++ {
		ok, first, err := rl.AllowGroup(ctx, key, "H", 3, time.Minute)
		if err != nil || ok {
			t.Fatalf("part %d of an over-limit album passed: %v %v", i+1, ok, err)
		}
		if first != (i == 0) {
			t.Fatalf("part %d: first = %v", i+1, first)
		}
	}
	if fc.expires[key+":group:H"] != time.Minute {
		t.Fatalf("group verdict ttl = %v", fc.expires[key+":group:H"])
	}
}
