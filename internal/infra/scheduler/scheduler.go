package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Job is one periodic unit of work.
type Job func(ctx context.Context) error

// Scheduler runs a Job every interval, each run bounded by a timeout.
type Scheduler struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Job
	log      *zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler constructs a scheduler for job.
// If interval <= 0 it defaults to 1 minute.
func NewScheduler(name string, interval time.Duration, job Job, logger *zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	timeout := 30 * time.Second
	if interval < timeout {
		timeout = interval
	}
	l := logger.With().Str("job", name).Logger()
	return &Scheduler{
		name:     name,
		interval: interval,
		timeout:  timeout,
		job:      job,
		log:      &l,
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop in a background goroutine.
// Calling Start multiple times has no effect.
func (s *Scheduler) Start(parentCtx context.Context) {
	if s.ctx != nil {
		return
	}
	ctx, cancel := context.WithCancel(parentCtx)
	s.ctx = ctx
	s.cancel = cancel

	go s.loop()
}

func (s *Scheduler) loop() {
	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.done)
	}()

	s.log.Info().Dur("interval", s.interval).Msg("scheduler started")
	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(s.ctx)
		}
	}
}

// RunOnce executes the job synchronously with the per-run timeout.
func (s *Scheduler) RunOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.job(runCtx); err != nil {
		s.log.Error().Err(err).Msg("scheduled job failed")
	}
}

// Stop cancels the scheduler and waits for the loop to finish. It is idempotent.
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		// not started
		return
	}
	s.cancel()
	<-s.done
	// reset for potential restart
	s.ctx = nil
	s.cancel = nil
	s.done = make(chan struct{})
	s.log.Info().Msg("scheduler stopped")
}
