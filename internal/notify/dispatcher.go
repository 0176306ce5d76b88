package notify

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	rtsup "siakad/internal/runtime/supervisor"
	"siakad/internal/schedule"
	logx "siakad/pkg/logx"
)

var (
	ErrDisabled  = errors.New("dispatcher disabled")
	ErrQueueFull = errors.New("dispatcher queue full")
	ErrStopped   = errors.New("dispatcher stopped")
)

// Sink delivers an event to an external destination (console feed,
// message queue bridge, webhook...). Implementations may block; the
// dispatcher bounds each call with a timeout.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e schedule.Event) error
}

// DispatcherConfig controls the async delivery pipeline.
type DispatcherConfig struct {
	Enabled       bool
	Workers       int
	QueueSize     int
	RatePerSec    int
	RetryMax      int
	RetryBase     time.Duration
	RetryMaxDelay time.Duration
}

// Dispatcher decouples slow external sinks from the synchronous hub:
// queue + worker pool + rate limit + bounded retry.
//
// It implements Listener, so it is attached to the Hub like any other
// subscriber; enqueueing is non-blocking and an overflowing queue
// drops the event with ErrQueueFull rather than stalling a registry
// mutation.
//
// It is safe for concurrent use.
type Dispatcher struct {
	mu sync.Mutex

	log   logx.Logger
	sinks []Sink

	cfg     DispatcherConfig
	limiter *rate.Limiter

	accepting bool
	sendWG    sync.WaitGroup

	queue    chan schedule.Event
	sup      *rtsup.Supervisor
	stopDone chan struct{} // non-nil while stopping
}

func NewDispatcher(cfg DispatcherConfig, log logx.Logger, sinks ...Sink) *Dispatcher {
	if log.IsZero() {
		log = logx.Nop()
	}
	d := &Dispatcher{log: log, sinks: sinks}
	d.applyLocked(cfg)
	return d
}

func (d *Dispatcher) Enabled() bool {
	d.mu.Lock()
	en := d.cfg.Enabled
	d.mu.Unlock()
	return en
}

func (d *Dispatcher) Apply(cfg DispatcherConfig) {
	d.mu.Lock()
	d.applyLocked(cfg)
	d.mu.Unlock()
}

func (d *Dispatcher) applyLocked(cfg DispatcherConfig) {
	// Defaults
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 10
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay <= 0 {
		cfg.RetryMaxDelay = 10 * time.Second
	}

	d.cfg = cfg
	// Token bucket: burst = rate per sec, so short spikes don't block.
	d.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
}

// Start is idempotent. A disabled dispatcher starts nothing.
func (d *Dispatcher) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	// If stopping, wait for it to finish before restarting.
	if d.stopDone != nil {
		done := d.stopDone
		d.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return
		}
		d.mu.Lock()
	}
	if d.queue != nil || !d.cfg.Enabled {
		d.mu.Unlock()
		return
	}

	d.queue = make(chan schedule.Event, d.cfg.QueueSize)
	d.accepting = true
	workers := d.cfg.Workers

	d.sup = rtsup.New(ctx,
		rtsup.WithLogger(d.log),
		// Sink failures should never take down the app.
		rtsup.WithCancelOnError(false),
	)
	sup := d.sup
	q := d.queue
	d.mu.Unlock()

	for i := 0; i < workers; i++ {
		sup.Go(fmt.Sprintf("dispatch.worker.%d", i), func(c context.Context) error {
			d.workerLoop(c, q)
			return nil
		})
	}
}

// Stop stops intake and drains the queue best-effort until ctx deadline.
func (d *Dispatcher) Stop(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.Lock()
	q := d.queue
	sup := d.sup
	if q == nil {
		d.mu.Unlock()
		return
	}
	if d.stopDone != nil {
		done := d.stopDone
		d.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
		}
		return
	}

	done := make(chan struct{})
	d.stopDone = done
	d.accepting = false
	d.mu.Unlock()

	// Shutdown happens asynchronously so callers can time out without
	// leaking state.
	go func() {
		defer close(done)
		// Wait for in-flight enqueues, then close the queue so workers drain.
		d.sendWG.Wait()
		func() {
			defer func() { _ = recover() }()
			close(q)
		}()
		if sup != nil {
			_ = sup.Wait(context.Background())
		}

		d.mu.Lock()
		d.queue = nil
		d.stopDone = nil
		d.sup = nil
		d.mu.Unlock()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		if sup != nil {
			sup.Cancel()
		}
	}
}

// HandleScheduleEvent implements Listener: non-blocking enqueue.
func (d *Dispatcher) HandleScheduleEvent(e schedule.Event) error {
	d.mu.Lock()
	if !d.cfg.Enabled {
		d.mu.Unlock()
		return ErrDisabled
	}
	if !d.accepting || d.queue == nil {
		d.mu.Unlock()
		return ErrStopped
	}
	q := d.queue
	d.sendWG.Add(1)
	d.mu.Unlock()
	defer d.sendWG.Done()

	select {
	case q <- e:
		return nil
	default:
		d.log.Warn("event dropped",
			logx.String("event", string(e.Kind)),
			logx.String("session", e.Session.Code))
		return ErrQueueFull
	}
}

func (d *Dispatcher) workerLoop(ctx context.Context, q <-chan schedule.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-q:
			if !ok {
				return
			}
			d.deliverAll(ctx, e)
		}
	}
}

func (d *Dispatcher) deliverAll(ctx context.Context, e schedule.Event) {
	d.mu.Lock()
	cfg := d.cfg
	lim := d.limiter
	sinks := d.sinks
	d.mu.Unlock()

	for _, sink := range sinks {
		d.deliverWithRetry(ctx, cfg, lim, sink, e)
	}
}

func (d *Dispatcher) deliverWithRetry(ctx context.Context, cfg DispatcherConfig, lim *rate.Limiter, sink Sink, e schedule.Event) {
	maxAttempts := 1 + cfg.RetryMax

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lim != nil {
			if err := lim.Wait(ctx); err != nil {
				return
			}
		}

		// Bound per-delivery call. Keep tight to avoid hanging workers.
		callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := sink.Deliver(callCtx, e)
		cancel()
		if err == nil {
			return
		}
		lastErr = err
		d.log.Debug("sink delivery failed",
			logx.String("sink", sink.Name()),
			logx.Int("attempt", attempt),
			logx.Int("max", maxAttempts),
			logx.Err(err))

		if attempt >= maxAttempts {
			break
		}
		delay := retryDelay(cfg, attempt)
		if delay <= 0 {
			continue
		}
		t := time.NewTimer(delay)
		select {
		case <-t.C:
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return
		}
	}

	if lastErr != nil {
		d.log.Warn("delivery abandoned",
			logx.String("sink", sink.Name()),
			logx.String("event", string(e.Kind)),
			logx.String("session", e.Session.Code),
			logx.Err(lastErr))
	}
}

// retryDelay: exponential backoff with +-20% jitter, capped.
func retryDelay(cfg DispatcherConfig, attempt int) time.Duration {
	d := cfg.RetryBase << (attempt - 1)
	if d > cfg.RetryMaxDelay {
		d = cfg.RetryMaxDelay
	}
	jitter := 1 + (rand.Float64()*0.4 - 0.2)
	return time.Duration(float64(d) * jitter)
}
