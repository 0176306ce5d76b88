package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"siakad/internal/schedule"
	"siakad/pkg/logx"
)

// fakeSink records deliveries and can fail the first n attempts.
type fakeSink struct {
	mu        sync.Mutex
	delivered []schedule.Event
	failFirst int
	attempts  int
	seen      chan struct{}
}

func newFakeSink(failFirst int) *fakeSink {
	return &fakeSink{failFirst: failFirst, seen: make(chan struct{}, 64)}
}

func (s *fakeSink) Name() string { return "fake" }

func (s *fakeSink) Deliver(_ context.Context, e schedule.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts++
	if s.attempts <= s.failFirst {
		return errors.New("transient")
	}
	s.delivered = append(s.delivered, e)
	select {
	case s.seen <- struct{}{}:
	default:
	}
	return nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.delivered)
}

func waitDelivered(t *testing.T, s *fakeSink, n int) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for s.count() < n {
		select {
		case <-s.seen:
		case <-deadline:
			t.Fatalf("timed out waiting for %d deliveries, got %d", n, s.count())
		}
	}
}

func TestDispatcherDeliversToSink(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(0)
	d := NewDispatcher(DispatcherConfig{Enabled: true, Workers: 1, RatePerSec: 1000}, logx.Nop(), sink)
	d.Start(context.Background())
	defer d.Stop(context.Background())

	for _, code := range []string{"J001", "J002", "J003"} {
		if err := d.HandleScheduleEvent(testEvent(code)); err != nil {
			t.Fatalf("HandleScheduleEvent(%s): %v", code, err)
		}
	}
	waitDelivered(t, sink, 3)
}

func TestDispatcherRetriesTransientFailure(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(2)
	d := NewDispatcher(DispatcherConfig{
		Enabled:    true,
		Workers:    1,
		RatePerSec: 1000,
		RetryMax:   3,
		RetryBase:  time.Millisecond,
	}, logx.Nop(), sink)
	d.Start(context.Background())
	defer d.Stop(context.Background())

	if err := d.HandleScheduleEvent(testEvent("J001")); err != nil {
		t.Fatalf("HandleScheduleEvent: %v", err)
	}
	waitDelivered(t, sink, 1)

	sink.mu.Lock()
	attempts := sink.attempts
	sink.mu.Unlock()
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3 (2 failures + success)", attempts)
	}
}

func TestDispatcherDisabled(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(DispatcherConfig{Enabled: false}, logx.Nop(), newFakeSink(0))
	d.Start(context.Background())
	if err := d.HandleScheduleEvent(testEvent("J001")); !errors.Is(err, ErrDisabled) {
		t.Fatalf("HandleScheduleEvent on disabled dispatcher = %v, want ErrDisabled", err)
	}
}

func TestDispatcherStoppedRejectsEvents(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(0)
	d := NewDispatcher(DispatcherConfig{Enabled: true, Workers: 1, RatePerSec: 1000}, logx.Nop(), sink)
	d.Start(context.Background())
	d.Stop(context.Background())

	if err := d.HandleScheduleEvent(testEvent("J001")); !errors.Is(err, ErrStopped) {
		t.Fatalf("HandleScheduleEvent after Stop = %v, want ErrStopped", err)
	}
}

func TestDispatcherQueueFull(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	sink := &blockingSink{started: make(chan struct{}), release: block}
	d := NewDispatcher(DispatcherConfig{
		Enabled:    true,
		Workers:    1,
		QueueSize:  1,
		RatePerSec: 1000,
	}, logx.Nop(), sink)
	d.Start(context.Background())
	defer func() {
		close(block)
		d.Stop(context.Background())
	}()

	// First event occupies the worker, second fills the queue.
	if err := d.HandleScheduleEvent(testEvent("J001")); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	<-sink.started

	if err := d.HandleScheduleEvent(testEvent("J002")); err != nil {
		t.Fatalf("second enqueue: %v", err)
	}
	if err := d.HandleScheduleEvent(testEvent("J003")); !errors.Is(err, ErrQueueFull) {
		t.Fatalf("third enqueue = %v, want ErrQueueFull", err)
	}
}

type blockingSink struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (s *blockingSink) Name() string { return "blocking" }

func (s *blockingSink) Deliver(ctx context.Context, _ schedule.Event) error {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
	case <-ctx.Done():
	}
	return nil
}

func TestDispatcherStopDrainsQueue(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(0)
	d := NewDispatcher(DispatcherConfig{Enabled: true, Workers: 2, RatePerSec: 1000}, logx.Nop(), sink)
	d.Start(context.Background())

	const n = 10
	for i := 0; i < n; i++ {
		if err := d.HandleScheduleEvent(testEvent("J001")); err != nil {
			t.Fatalf("enqueue %d: %v", i, err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	d.Stop(ctx)

	if got := sink.count(); got != n {
		t.Fatalf("delivered %d events after Stop, want %d", got, n)
	}
}

func TestDispatcherStartIdempotent(t *testing.T) {
	t.Parallel()

	sink := newFakeSink(0)
	d := NewDispatcher(DispatcherConfig{Enabled: true, Workers: 1, RatePerSec: 1000}, logx.Nop(), sink)
	d.Start(context.Background())
	d.Start(context.Background())
	defer d.Stop(context.Background())

	if err := d.HandleScheduleEvent(testEvent("J001")); err != nil {
		t.Fatalf("HandleScheduleEvent: %v", err)
	}
	waitDelivered(t, sink, 1)
	if got := sink.count(); got != 1 {
		t.Fatalf("delivered %d events, want 1 (double Start must not double workers' effect)", got)
	}
}

func TestRetryDelayBounds(t *testing.T) {
	t.Parallel()

	cfg := DispatcherConfig{RetryBase: 100 * time.Millisecond, RetryMaxDelay: time.Second}
	for attempt := 1; attempt <= 8; attempt++ {
		d := retryDelay(cfg, attempt)
		// Jitter is +-20% around the capped exponential value.
		max := time.Duration(float64(cfg.RetryMaxDelay) * 1.2)
		if d < 0 || d > max {
			t.Fatalf("retryDelay(attempt=%d) = %v, outside [0, %v]", attempt, d, max)
		}
	}
}
