package notify

import (
	"errors"
	"fmt"
	"sync"

	"siakad/internal/schedule"
	logx "siakad/pkg/logx"
)

// Listener receives schedule lifecycle events. Implementations should
// return quickly; delivery is synchronous on the mutating call path.
type Listener interface {
	HandleScheduleEvent(schedule.Event) error
}

// ListenerFunc adapts a plain function to Listener.
type ListenerFunc func(schedule.Event) error

func (f ListenerFunc) HandleScheduleEvent(e schedule.Event) error { return f(e) }

// Subscription identifies one Attach registration. The zero value is
// never issued, so it can be kept as a "not attached" marker.
type Subscription uint64

// Hub delivers every event to every attached listener, synchronously,
// in attach order.
//
// Delivery is independently best-effort: a listener error or panic is
// logged and delivery continues to the remaining listeners. Notify
// returns the joined listener errors so callers that care can observe
// them; the registry deliberately does not.
//
// Attach performs no de-duplication: attaching the same listener twice
// means it receives every event twice. Each Attach returns its own
// Subscription, so one registration can be detached while the other
// keeps delivering.
type Hub struct {
	mu        sync.RWMutex
	seq       Subscription
	listeners []registration
	log       logx.Logger
}

type registration struct {
	sub Subscription
	l   Listener
}

func NewHub(log logx.Logger) *Hub {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Hub{log: log}
}

// Attach registers l at the end of the delivery order and returns the
// Subscription that Detach takes.
func (h *Hub) Attach(l Listener) Subscription {
	if l == nil {
		return 0
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seq++
	h.listeners = append(h.listeners, registration{sub: h.seq, l: l})
	return h.seq
}

// Detach removes the registration identified by sub. Reports whether
// anything was removed; detaching twice is a no-op.
func (h *Hub) Detach(sub Subscription) bool {
	if sub == 0 {
		return false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, reg := range h.listeners {
		if reg.sub == sub {
			h.listeners = append(h.listeners[:i], h.listeners[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the number of attached listeners (duplicates counted).
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.listeners)
}

// Notify implements schedule.Notifier.
func (h *Hub) Notify(e schedule.Event) error {
	// Snapshot so a listener may Attach/Detach during delivery without
	// affecting the current round.
	h.mu.RLock()
	listeners := make([]Listener, 0, len(h.listeners))
	for _, reg := range h.listeners {
		listeners = append(listeners, reg.l)
	}
	h.mu.RUnlock()

	var errs []error
	for _, l := range listeners {
		if err := h.deliver(l, e); err != nil {
			h.log.Warn("listener failed",
				logx.String("event", string(e.Kind)),
				logx.String("session", e.Session.Code),
				logx.Err(err))
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (h *Hub) deliver(l Listener, e schedule.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("listener panic: %v", r)
		}
	}()
	return l.HandleScheduleEvent(e)
}
