//go:build !integration

package redis

import (
	"context"
	"sync"
	"time"
)

// fakeClient is an in-memory RedisClient; expirations are recorded, not enforced.
type fakeClient struct {
	mu      sync.Mutex
	data    map[string]string
	counts  map[string]int64
	expires map[string]time.Duration
}

var _ RedisClient = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{
		data:    make(map[string]string),
		counts:  make(map[string]int64),
		expires: make(map[string]time.Duration),
	}
}

func (f *fakeClient) Ping(ctx context.Context) error { return nil }

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = value.(string)
	f.expires[key] = exp
	return nil
}

func (f *fakeClient) SetNX(ctx context.Context, key string, value interface{}, exp time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = value.(string)
	f.expires[key] = exp
	return true, nil
}

func (f *fakeClient) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *fakeClient) Incr(ctx context.Context, key string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeClient) Expire(ctx context.Context, key string, exp time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expires[key] = exp
	return nil
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
		delete(f.counts, k)
	}
	return nil
}

func (f *fakeClient) Close() error { return nil }
