//go:build !integration

package scheduler

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func TestScheduler(t *testing.T) {
	t.Run("should run the job on every tick until stopped", func(t *testing.T) {
		// --- Arrange ---
		var runs int32
		s := NewScheduler("count", 5*time.Millisecond, func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return nil
		}, newTestLogger())

		// --- Act ---
		s.Start(context.Background())
		s.Start(context.Background())
		deadline := time.Now().Add(2 * time.Second)
		for atomic.LoadInt32(&runs) < 3 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		s.Stop()
		after := atomic.LoadInt32(&runs)
		time.Sleep(20 * time.Millisecond)

		// --- Assert ---
		if after < 3 {
			t.Fatalf("expected at least 3 runs, got %d", after)
		}
		if got := atomic.LoadInt32(&runs); got != after {
			t.Errorf("job kept running after Stop: %d -> %d", after, got)
		}
	})

	t.Run("should keep going after a failing run", func(t *testing.T) {
		var runs int32
		s := NewScheduler("flaky", 5*time.Millisecond, func(ctx context.Context) error {
			atomic.AddInt32(&runs, 1)
			return errors.New("boom")
		}, newTestLogger())

		s.Start(context.Background())
		deadline := time.Now().Add(2 * time.Second)
		for atomic.LoadInt32(&runs) < 2 && time.Now().Before(deadline) {
			time.Sleep(time.Millisecond)
		}
		s.Stop()

		if atomic.LoadInt32(&runs) < 2 {
			t.Fatal("expected the scheduler to survive a failed run")
		}
	})

	t.Run("should bound each run by the timeout", func(t *testing.T) {
		s := NewScheduler("slow", 10*time.Millisecond, func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}, newTestLogger())

		start := time.Now()
		s.RunOnce(context.Background())

		if time.Since(start) > time.Second {
			t.Fatalf("run was not bounded, took %v", time.Since(start))
		}
	})

	t.Run("should tolerate Stop before Start", func(t *testing.T) {
		s := NewScheduler("idle", 0, func(ctx context.Context) error { return nil }, newTestLogger())
		s.Stop()
		if s.interval != time.Minute {
			t.Errorf("expected default interval, got %v", s.interval)
		}
	})
}
