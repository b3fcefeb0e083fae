//go:build !integration

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestLogger() *zerolog.Logger {
	l := zerolog.New(nil)
	return &l
}

func TestPool(t *testing.T) {
	t.Run("should run submitted tasks", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := NewPool(2, newTestLogger())
		p.Start(ctx)
		defer p.Stop()

		var wg sync.WaitGroup
		var mu sync.Mutex
		ran := 0
		for i := 0; i < 5; i++ {
			wg.Add(1)
			if err := p.Submit(func(ctx context.Context) error {
				defer wg.Done()
				mu.Lock()
				ran++
				mu.Unlock()
				return nil
			}); err != nil {
				t.Fatalf("submit: %v", err)
			}
		}
		wg.Wait()
		if ran != 5 {
			t.Errorf("expected 5 tasks, got %d", ran)
		}
	})

	t.Run("should reject when the queue is full", func(t *testing.T) {
		p := NewPool(1, newTestLogger()) // not started: queue capacity 4
		noop := func(ctx context.Context) error { return nil }
		for i := 0; i < 4; i++ {
			if err := p.Submit(noop); err != nil {
				t.Fatalf("submit %d: %v", i, err)
			}
		}
		if err := p.Submit(noop); !errors.Is(err, ErrQueueFull) {
			t.Fatalf("expected ErrQueueFull, got %v", err)
		}
	})

	t.Run("should survive a panicking task", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		p := NewPool(1, newTestLogger())
		p.Start(ctx)
		defer p.Stop()

		_ = p.Submit(func(ctx context.Context) error { panic("boom") })
		done := make(chan struct{})
		_ = p.Submit(func(ctx context.Context) error { close(done); return nil })

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("worker did not recover from panic")
		}
	})

	t.Run("should stop long tasks through the context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		p := NewPool(1, newTestLogger())
		p.Start(ctx)
		started := make(chan struct{})
		_ = p.Submit(func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
		<-started
		cancel()

		stopped := make(chan struct{})
		go func() { p.Stop(); close(stopped) }()
		select {
		case <-stopped:
		case <-time.After(2 * time.Second):
			t.Fatal("Stop did not return")
		}
	})
}
