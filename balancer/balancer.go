// Package balancer collapses the streams of redundant workers subscribed to
// the same feed into one deduplicated, strictly increasing delivery
// sequence. Workers never coordinate with each other: each one pushes into a
// shared balancer and the balancer decides.
package balancer

import (
	"errors"
	"sync"
)

// ErrRejected marks a message that failed admission: a duplicate or stale
// sequence id from a redundant connection. Non-fatal, callers drop the
// message and keep reading.
var ErrRejected = errors.New("update rejected by balancer")

// ErrSinkGone marks a send whose downstream consumer no longer exists.
// Fatal to the calling worker task.
var ErrSinkGone = errors.New("balancer sink is gone")

// Sequenced is anything carrying an extractable monotonic update id.
type Sequenced interface {
	UpdateID() int64
}

// Sink accepts admitted items and may fail when the consumer is gone.
type Sink[T any] interface {
	Send(item T) error
}

// Balancer gates items by sequence id. The very first item is accepted
// unconditionally; afterwards only strictly larger ids pass. Check, state
// update and forward run under one lock, so two racing workers can never
// both pass the comparison for the same id.
type Balancer[T Sequenced] struct {
	mu     sync.Mutex
	last   int64
	seeded bool
	sink   Sink[T]
}

// New wires a balancer in front of sink.
func New[T Sequenced](sink Sink[T]) *Balancer[T] {
	return &Balancer[T]{sink: sink}
}

// Seed primes the admission threshold, e.g. from a snapshot's last update
// id, so pre-snapshot stream messages are rejected.
func (b *Balancer[T]) Seed(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = id
	b.seeded = true
}

// Send admits item if its id moves the sequence forward and hands it to the
// sink. Returns ErrRejected for stale or duplicate ids and ErrSinkGone when
// the sink refuses delivery.
func (b *Balancer[T]) Send(item T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := item.UpdateID()
	if b.seeded && id <= b.last {
		return ErrRejected
	}
	b.last = id
	b.seeded = true

	if err := b.sink.Send(item); err != nil {
		return ErrSinkGone
	}
	return nil
}

// LastUpdateID reports the highest admitted id and whether any id was
// admitted or seeded yet.
func (b *Balancer[T]) LastUpdateID() (int64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.last, b.seeded
}
