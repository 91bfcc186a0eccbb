package balancer

import (
	"errors"
	"sync"
	"testing"

	"bookflow/book"
	"bookflow/channel"
	"bookflow/models"
)

type seqItem int64

func (s seqItem) UpdateID() int64 { return int64(s) }

type captureSink struct {
	mu    sync.Mutex
	items []int64
	err   error
}

func (c *captureSink) Send(item seqItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.items = append(c.items, int64(item))
	return nil
}

func TestBalancerFiltersStaleAndDuplicateIDs(t *testing.T) {
	sink := &captureSink{}
	b := New[seqItem](sink)

	var accepted, rejected []int64
	for _, id := range []int64{5, 3, 7, 7, 8} {
		err := b.Send(seqItem(id))
		switch {
		case err == nil:
			accepted = append(accepted, id)
		case errors.Is(err, ErrRejected):
			rejected = append(rejected, id)
		default:
			t.Fatalf("unexpected error for id %d: %v", id, err)
		}
	}

	wantAccepted := []int64{5, 7, 8}
	if len(accepted) != len(wantAccepted) {
		t.Fatalf("accepted %v, want %v", accepted, wantAccepted)
	}
	for i := range wantAccepted {
		if accepted[i] != wantAccepted[i] {
			t.Fatalf("accepted %v, want %v", accepted, wantAccepted)
		}
	}
	if len(rejected) != 2 || rejected[0] != 3 || rejected[1] != 7 {
		t.Fatalf("rejected %v, want [3 7]", rejected)
	}

	last, seeded := b.LastUpdateID()
	if !seeded || last != 8 {
		t.Fatalf("last accepted id = %d (seeded=%v), want 8", last, seeded)
	}
	if len(sink.items) != 3 {
		t.Fatalf("sink received %v, want exactly the accepted ids", sink.items)
	}
}

func TestBalancerFirstItemAcceptedUnconditionally(t *testing.T) {
	b := New[seqItem](&captureSink{})
	if err := b.Send(seqItem(1)); err != nil {
		t.Fatalf("first item rejected: %v", err)
	}
}

func TestBalancerSeedRejectsUpToSeed(t *testing.T) {
	b := New[seqItem](&captureSink{})
	b.Seed(100)

	if err := b.Send(seqItem(100)); !errors.Is(err, ErrRejected) {
		t.Fatalf("id equal to seed should be rejected, got %v", err)
	}
	if err := b.Send(seqItem(101)); err != nil {
		t.Fatalf("id past seed should be accepted, got %v", err)
	}
}

func TestBalancerSinkFailureIsSinkGone(t *testing.T) {
	sink := &captureSink{err: errors.New("downstream went away")}
	b := New[seqItem](sink)
	if err := b.Send(seqItem(1)); !errors.Is(err, ErrSinkGone) {
		t.Fatalf("expected ErrSinkGone, got %v", err)
	}
}

func TestBalancerConcurrentSameID(t *testing.T) {
	const tasks = 16
	sink := &captureSink{}
	b := New[seqItem](sink)

	start := make(chan struct{})
	results := make(chan error, tasks)
	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results <- b.Send(seqItem(42))
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	succeeded, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrRejected):
			rejected++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if succeeded != 1 || rejected != tasks-1 {
		t.Fatalf("got %d successes and %d rejections, want 1 and %d", succeeded, rejected, tasks-1)
	}
	if len(sink.items) != 1 || sink.items[0] != 42 {
		t.Fatalf("sink must receive the id exactly once, got %v", sink.items)
	}
}

func TestBookBalancerPublishesOnAcceptance(t *testing.T) {
	bk := book.New(models.DepthSnapshot{
		LastUpdateID: 100,
		Bids:         []models.InlineOrder{{Price: "10.0", Qty: "1"}},
		Asks:         []models.InlineOrder{{Price: "10.1", Qty: "1"}},
	})
	out := channel.NewWatch(bk.Top())
	gate := NewBook(bk, out)

	err := gate.Send(models.DepthUpdate{
		FirstUpdateID: 95,
		FinalUpdateID: 101,
		Bids:          []models.InlineOrder{{Price: "10.0", Qty: "0"}},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}

	top := out.Current()
	if len(top.Bids) != 0 {
		t.Fatalf("published snapshot should have the bid removed: %+v", top.Bids)
	}

	if err := gate.Send(models.DepthUpdate{FirstUpdateID: 200, FinalUpdateID: 205}); !errors.Is(err, ErrRejected) {
		t.Fatalf("gapped update should be rejected, got %v", err)
	}

	out.Close()
	if err := gate.Send(models.DepthUpdate{FirstUpdateID: 102, FinalUpdateID: 103}); !errors.Is(err, ErrSinkGone) {
		t.Fatalf("closed channel should surface as ErrSinkGone, got %v", err)
	}
}
