// File: internal/infra/worker/pool.go
package worker

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"github.com/rs/zerolog"

	"hotspot-portal/internal/infra/metrics"
)

// ErrQueueFull is returned by Submit when every worker is busy and the
// queue has no room.
var ErrQueueFull = errors.New("worker queue full")

// Task is an alias so callers can submit plain funcs without importing this package.
type Task = func(ctx context.Context) error

// Pool runs submitted tasks on a fixed number of goroutines. Payment
// trackers are long-lived tasks, so n bounds concurrent trackers.
type Pool struct {
	wg     sync.WaitGroup
	jobs   chan Task
	quit   chan struct{}
	once   sync.Once
	n      int
	logger *zerolog.Logger
}

func NewPool(workers int, logger *zerolog.Logger) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Pool{
		jobs:   make(chan Task, workers*4),
		quit:   make(chan struct{}),
		n:      workers,
		logger: logger,
	}
}

func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-p.quit:
					return
				case task := <-p.jobs:
					if task == nil {
						continue
					}
					p.run(ctx, id, task)
				}
			}
		}(i)
	}
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncWorkerTask(false)
			p.logger.Error().Int("worker", id).Interface("panic", rec).Msg("worker task panicked")
		}
	}()
	err := task(ctx)
	metrics.IncWorkerTask(err == nil)
	if err != nil && !errors.Is(err, context.Canceled) {
		p.logger.Warn().Int("worker", id).Err(err).Msg("worker task error")
	}
}

// Stop signals workers to exit and waits for running tasks to return.
// Tasks should watch the context passed to Start.
func (p *Pool) Stop() {
	p.once.Do(func() { close(p.quit) })
	p.wg.Wait()
}

func (p *Pool) Submit(task Task) error {
	if task == nil {
		return errors.New("nil task")
	}
	select {
	case p.jobs <- task:
		return nil
	default:
		metrics.IncWorkerRejected()
		return ErrQueueFull
	}
}
