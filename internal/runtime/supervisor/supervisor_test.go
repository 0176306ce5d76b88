package supervisor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestStopWaitsForGoroutines(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	exited := make(chan struct{})
	s.Go("worker", func(ctx context.Context) error {
		<-ctx.Done()
		close(exited)
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-exited:
	default:
		t.Fatal("Stop returned before the goroutine exited")
	}
	if got := s.Active(); got != 0 {
		t.Fatalf("Active() = %d after Stop", got)
	}
}

func TestContextCanceledIsCleanExit(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	s.Go("worker", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop after clean exit: %v", err)
	}
	if s.Err() != nil {
		t.Fatalf("Err() = %v, want nil", s.Err())
	}
}

func TestCancelOnFirstError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	s := New(context.Background(), WithCancelOnError(true))
	s.Go("failing", func(context.Context) error { return boom })
	s.Go("sibling", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("Wait = %v, want the first error", err)
	}
}

func TestPanicBecomesError(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), WithCancelOnError(true))
	s.Go("panicking", func(context.Context) error { panic("kaboom") })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	if err == nil || !strings.Contains(err.Error(), "kaboom") {
		t.Fatalf("Wait = %v, want recovered panic", err)
	}
}

func TestWaitHonorsDeadline(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	block := make(chan struct{})
	s.Go("stuck", func(context.Context) error {
		<-block
		return nil
	})
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := s.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Wait = %v, want deadline exceeded", err)
	}
}
