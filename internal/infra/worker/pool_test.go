//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

func TestPoolRunsAndDrainsTasks(t *testing.T) {
	p := NewPool(2, nopLogger())
	p.Start(context.Background())

	var ran int32
	for i := 0; i < 20; i++ {
		if err := p.Submit(func(ctx context.Context) error {
			atomic.AddInt32(&ran, 1)
			return nil
		}); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}
	p.Stop()

	if got := atomic.LoadInt32(&ran); got != 20 {
		t.Fatalf("expected 20 tasks to run before Stop returned, got %d", got)
	}
}

func TestPoolRejectsAfterStop(t *testing.T) {
	p := NewPool(1, nopLogger())
	p.Start(context.Background())
	p.Stop()
	p.Stop() // idempotent

	err := p.Submit(func(ctx context.Context) error { return nil })
	if !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
}

func TestPoolSurvivesPanickingTask(t *testing.T) {
	p := NewPool(1, nopLogger())
	p.Start(context.Background())

	done := make(chan struct{})
	_ = p.Submit(func(ctx context.Context) error { panic("boom") })
	_ = p.Submit(func(ctx context.Context) error { close(done); return nil })
	p.Stop()

	select {
	case <-done:
	default:
		t.Fatal("task after a panic did not run")
	}
}

func TestPoolQueueFull(t *testing.T) {
	p := NewPool(1, nopLogger()) // not started: nothing drains the queue
	var err error
	for i := 0; i < 17; i++ {
		err = p.Submit(func(ctx context.Context) error { return nil })
	}
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull once the buffer is exhausted, got %v", err)
	}
}
