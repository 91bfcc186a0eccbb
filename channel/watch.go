// Package channel provides the distribution point between the pipeline's
// producers and its single display consumer. A Watch holds exactly one
// current value: every publish overwrites the slot and wakes waiters, so a
// slow consumer misses superseded intermediate states and only ever observes
// the latest.
package channel

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned once the watch has been shut down; producers treat
// it as the consumer being gone.
var ErrClosed = errors.New("watch channel closed")

// Watch is a single-slot latest-wins channel. Producers call Send, the
// consumer reads with Current or suspends with Next. All methods are safe
// for concurrent use.
type Watch[T any] struct {
	mu     sync.Mutex
	value  T
	closed bool
	notify chan struct{}
}

// NewWatch seeds the slot with an initial value.
func NewWatch[T any](initial T) *Watch[T] {
	return &Watch[T]{value: initial, notify: make(chan struct{})}
}

// Send overwrites the current value and wakes every pending Next. It never
// blocks on the consumer.
func (w *Watch[T]) Send(v T) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.value = v
	close(w.notify)
	w.notify = make(chan struct{})
	return nil
}

// Current returns the latest published value without blocking.
func (w *Watch[T]) Current() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value
}

// Next blocks until a value newer than the time of the call is published,
// the context ends, or the watch closes.
func (w *Watch[T]) Next(ctx context.Context) (T, error) {
	w.mu.Lock()
	notify := w.notify
	closed := w.closed
	w.mu.Unlock()

	var zero T
	if closed {
		return zero, ErrClosed
	}

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-notify:
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return zero, ErrClosed
	}
	return w.value, nil
}

// Close shuts the watch down: pending and future Next calls return
// ErrClosed and later sends fail. Closing twice is a no-op.
func (w *Watch[T]) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.closed = true
	close(w.notify)
}
