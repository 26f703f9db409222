// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"
)

var (
	ErrQueueFull  = errors.New("worker queue full")
	ErrPoolClosed = errors.New("worker pool stopped")
)

// Task is a unit of work executed by the pool.
type Task func(ctx context.Context) error

// Pool runs submitted tasks on a fixed number of goroutines.
// Stop drains tasks that were already accepted before returning.
type Pool struct {
	wg   sync.WaitGroup
	jobs chan Task
	n    int
	log  *zerolog.Logger

	mu      sync.RWMutex
	stopped bool
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	l := logger.With().Str("component", "WorkerPool").Logger()
	return &Pool{jobs: make(chan Task, workers*16), n: workers, log: &l}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for task := range p.jobs {
				p.run(ctx, id, task)
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Error().Int("worker", id).Interface("panic", r).Msg("task panicked")
		}
	}()
	if err := task(ctx); err != nil {
		p.log.Warn().Err(err).Int("worker", id).Msg("task error")
	}
}

// Stop refuses new tasks, waits for queued ones and returns. It is idempotent.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrPoolClosed
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		// callers fall back to running the task themselves
		return ErrQueueFull
	}
}
