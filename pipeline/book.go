// Package pipeline orchestrates the replication pipelines: snapshot
// bootstrap, balancer and book wiring, worker spawning and teardown. One
// pipeline instance serves one symbol.
package pipeline

import (
	"context"
	"fmt"
	"sync"

	"bookflow/balancer"
	"bookflow/book"
	"bookflow/channel"
	"bookflow/config"
	"bookflow/logger"
	"bookflow/models"
	"bookflow/reader/binance"
)

// BookPipeline replicates one symbol's order book. Init wires everything
// and hands back the display channel; Stop aborts the workers.
type BookPipeline struct {
	config    *config.Config
	snapshots *binance.SnapshotClient
	reader    *binance.DepthReader
	out       *channel.Watch[models.BookTop]
	cancel    context.CancelFunc
	mu        sync.Mutex
	running   bool
	log       *logger.Log
}

// NewBookPipeline creates an idle pipeline.
func NewBookPipeline(cfg *config.Config) *BookPipeline {
	return &BookPipeline{
		config:    cfg,
		snapshots: binance.NewSnapshotClient(cfg),
		log:       logger.GetLogger(),
	}
}

// Init fetches the bootstrap snapshot, builds the guarded book-balancer
// unit, spawns the stream workers against it and returns the display
// channel seeded with the snapshot's top levels. The book itself is owned
// by the balancer from here on; nothing else ever touches it.
func (p *BookPipeline) Init(ctx context.Context, symbol string) (*channel.Watch[models.BookTop], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil, fmt.Errorf("book pipeline already running")
	}

	log := p.log.WithComponent("book_pipeline").WithFields(logger.Fields{"symbol": symbol})

	snapshot, err := p.snapshots.FetchSnapshot(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("book pipeline init: %w", err)
	}

	bk := book.New(snapshot)
	out := channel.NewWatch(bk.Top())
	guarded := balancer.NewBook(bk, out)

	runCtx, cancel := context.WithCancel(ctx)
	reader := binance.NewDepthReader(p.config, symbol, guarded)
	if err := reader.Start(runCtx); err != nil {
		cancel()
		out.Close()
		return nil, fmt.Errorf("book pipeline init: %w", err)
	}

	p.reader = reader
	p.out = out
	p.cancel = cancel
	p.running = true

	log.WithFields(logger.Fields{"last_update_id": snapshot.LastUpdateID}).Info("book pipeline initialized")
	log.LogMetric("book_pipeline", "SnapshotLevels", len(snapshot.Bids)+len(snapshot.Asks), logger.Fields{"symbol": symbol})
	return out, nil
}

// Stop aborts every worker task and closes the display channel. Idempotent
// and best-effort: it does not wait for in-flight network state to wind
// down cleanly.
func (p *BookPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false

	p.log.WithComponent("book_pipeline").Info("stopping book pipeline")
	p.cancel()
	p.out.Close()
	p.reader.Stop()
	p.log.WithComponent("book_pipeline").Info("book pipeline stopped")
}
