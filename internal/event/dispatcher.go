// Package event delivers server-pushed IPC events to one-shot listeners.
//
// Items are indexed by event kind: a listener only ever takes items of the
// kind it registered for, so listeners for different kinds never consume each
// other's deliveries. Items that arrive before a matching listener are
// buffered per kind.
package event

import (
	"log/slog"
	"sync"

	"github.com/lydakis/richpresence/internal/ipc"
)

// maxPendingPerKind bounds the per-kind buffer; the oldest item is dropped
// when it overflows.
const maxPendingPerKind = 64

// Handler receives the message an event arrived with.
type Handler func(ipc.Message)

type waiter struct {
	ch chan ipc.Message
}

// Dispatcher is safe for concurrent use.
type Dispatcher struct {
	logger *slog.Logger

	mu      sync.Mutex
	pending map[ipc.Event][]ipc.Message
	waiters map[ipc.Event][]*waiter
	stopped bool
	done    chan struct{}

	wg sync.WaitGroup
}

// New creates a running dispatcher.
func New(logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Dispatcher{
		logger:  logger.With(slog.String("component", "event")),
		pending: make(map[ipc.Event][]ipc.Message),
		waiters: make(map[ipc.Event][]*waiter),
		done:    make(chan struct{}),
	}
}

// Emit hands msg to the oldest listener waiting on kind, or buffers it until
// one registers. It never blocks. After Stop it does nothing.
func (d *Dispatcher) Emit(kind ipc.Event, msg ipc.Message) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		d.logger.Debug("event dropped after stop", slog.String("event", kind.String()))
		return
	}

	if ws := d.waiters[kind]; len(ws) > 0 {
		w := ws[0]
		d.waiters[kind] = ws[1:]
		if len(d.waiters[kind]) == 0 {
			delete(d.waiters, kind)
		}
		// Buffered with capacity one and handed out once, so this cannot block.
		w.ch <- msg
		return
	}

	q := append(d.pending[kind], msg)
	if len(q) > maxPendingPerKind {
		d.logger.Debug("event buffer full, dropping oldest", slog.String("event", kind.String()))
		q = q[len(q)-maxPendingPerKind:]
	}
	d.pending[kind] = q
}

// Listen registers fn to run once with the next item of kind. It returns
// immediately; fn runs on its own goroutine. If the dispatcher stops first,
// fn never runs.
func (d *Dispatcher) Listen(kind ipc.Event, fn Handler) {
	w := &waiter{ch: make(chan ipc.Message, 1)}

	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if q := d.pending[kind]; len(q) > 0 {
		w.ch <- q[0]
		if len(q) == 1 {
			delete(d.pending, kind)
		} else {
			d.pending[kind] = q[1:]
		}
	} else {
		d.waiters[kind] = append(d.waiters[kind], w)
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		select {
		case msg := <-w.ch:
			fn(msg)
		case <-d.done:
			// Delivered items win over a concurrent stop.
			select {
			case msg := <-w.ch:
				fn(msg)
			default:
				d.logger.Debug("listener stopped before firing", slog.String("event", kind.String()))
			}
		}
	}()
}

// Waiting returns the number of registered listeners that have no item yet.
func (d *Dispatcher) Waiting() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, ws := range d.waiters {
		n += len(ws)
	}
	return n
}

// Stop releases every unfired listener and drops buffered items. It is safe
// to call more than once.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	d.pending = make(map[ipc.Event][]ipc.Message)
	d.waiters = make(map[ipc.Event][]*waiter)
	close(d.done)
}

// Wait blocks until every listener goroutine has returned.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
