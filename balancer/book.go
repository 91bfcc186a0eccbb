package balancer

import (
	"sync"

	"bookflow/book"
	"bookflow/channel"
	"bookflow/models"
)

// BookBalancer is the balancer variant whose admission test is the order
// book's own state machine instead of a flat id comparison. Admission,
// merge and display publish form one critical section: no interleaving of
// two updates' check-then-mutate steps is possible, and every published
// BookTop reflects a fully merged book.
type BookBalancer struct {
	mu   sync.Mutex
	book *book.Book
	out  *channel.Watch[models.BookTop]
}

// NewBook wraps an exclusively owned book and its display channel. The raw
// book must not be touched again by the caller.
func NewBook(b *book.Book, out *channel.Watch[models.BookTop]) *BookBalancer {
	return &BookBalancer{book: b, out: out}
}

// Send merges the update into the book when the state machine admits it and
// publishes a fresh display snapshot. Returns ErrRejected when the book
// refuses the update and ErrSinkGone when the display channel is closed.
func (g *BookBalancer) Send(u models.DepthUpdate) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.book.ApplyDepthUpdate(u) {
		return ErrRejected
	}
	if err := g.out.Send(g.book.Top()); err != nil {
		return ErrSinkGone
	}
	return nil
}
