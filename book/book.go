package book

import (
	"bookflow/logger"
	"bookflow/models"
)

// DisplayDepth caps how many levels per side a display snapshot carries.
const DisplayDepth = 10

type modeKind int

const (
	// modeSnapshot marks a book that was just bootstrapped and has merged
	// no incremental update yet.
	modeSnapshot modeKind = iota
	// modeUpdate marks a book that reflects at least one merged update.
	modeUpdate
)

// mode tags the book's reconciliation state. Exactly one variant is live:
// snapshot uses lastUpdateID, update uses firstUpdateID/finalUpdateID.
type mode struct {
	kind          modeKind
	lastUpdateID  int64
	firstUpdateID int64
	finalUpdateID int64
}

// Book is the order-book state machine: two tables plus the admission mode.
// It is not safe for concurrent use on its own; callers serialise access
// through a balancer.
type Book struct {
	mode mode
	bids *Table
	asks *Table
	log  *logger.Entry
}

// New bootstraps a book from a REST depth snapshot.
func New(snapshot models.DepthSnapshot) *Book {
	return &Book{
		mode: mode{kind: modeSnapshot, lastUpdateID: snapshot.LastUpdateID},
		bids: NewTable(Bid, snapshot.Bids),
		asks: NewTable(Ask, snapshot.Asks),
		log:  logger.GetLogger().WithComponent("order_book"),
	}
}

// admits applies the admission test for the current mode. In snapshot mode
// an update is accepted when its final id moves past the snapshot; the
// update's range is not checked against lastUpdateID+1, so a gap straight
// after bootstrap is not detected. In update mode only the strictly
// contiguous next range is accepted.
func (b *Book) admits(u models.DepthUpdate) bool {
	switch b.mode.kind {
	case modeSnapshot:
		if u.FinalUpdateID > b.mode.lastUpdateID {
			return true
		}
		b.log.WithFields(logger.Fields{
			"snapshot_last_update_id": b.mode.lastUpdateID,
			"first_update_id":         u.FirstUpdateID,
			"final_update_id":         u.FinalUpdateID,
		}).Debug("depth update not merged into snapshot state")
	case modeUpdate:
		if u.FirstUpdateID-1 == b.mode.finalUpdateID {
			return true
		}
		b.log.WithFields(logger.Fields{
			"book_final_update_id": b.mode.finalUpdateID,
			"first_update_id":      u.FirstUpdateID,
			"final_update_id":      u.FinalUpdateID,
		}).Debug("depth update not merged into incrementing state")
	}
	return false
}

// ApplyDepthUpdate merges one depth update into the book. It returns true
// and mutates tables and mode only when the update passes admission; a
// rejected update leaves the book untouched.
func (b *Book) ApplyDepthUpdate(u models.DepthUpdate) bool {
	if !b.admits(u) {
		return false
	}
	for _, o := range u.Bids {
		b.bids.UpdateLevel(o)
	}
	for _, o := range u.Asks {
		b.asks.UpdateLevel(o)
	}
	b.mode = mode{
		kind:          modeUpdate,
		firstUpdateID: u.FirstUpdateID,
		finalUpdateID: u.FinalUpdateID,
	}
	return true
}

// Top copies out the current best levels of both sides.
func (b *Book) Top() models.BookTop {
	return models.BookTop{
		Bids: b.bids.Top(DisplayDepth),
		Asks: b.asks.Top(DisplayDepth),
	}
}
