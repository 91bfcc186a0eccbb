package pipeline

import (
	"context"
	"fmt"
	"sync"

	"bookflow/balancer"
	"bookflow/channel"
	"bookflow/config"
	"bookflow/logger"
	"bookflow/models"
	"bookflow/reader/binance"
)

// PricePipeline replicates one symbol's best bid/ask quote. Same shape as
// BookPipeline, but the balancer gates on the flat tick id and the display
// value is the latest admitted tick itself.
type PricePipeline struct {
	config    *config.Config
	snapshots *binance.SnapshotClient
	reader    *binance.PriceReader
	out       *channel.Watch[models.PriceUpdate]
	cancel    context.CancelFunc
	mu        sync.Mutex
	running   bool
	log       *logger.Log
}

// NewPricePipeline creates an idle pipeline.
func NewPricePipeline(cfg *config.Config) *PricePipeline {
	return &PricePipeline{
		config:    cfg,
		snapshots: binance.NewSnapshotClient(cfg),
		log:       logger.GetLogger(),
	}
}

// Init seeds the balancer's admission threshold from the snapshot's update
// id and the initial quote from its best levels, then spawns the stream
// workers. Returns the display channel for the consumer.
func (p *PricePipeline) Init(ctx context.Context, symbol string) (*channel.Watch[models.PriceUpdate], error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil, fmt.Errorf("price pipeline already running")
	}

	log := p.log.WithComponent("price_pipeline").WithFields(logger.Fields{"symbol": symbol})

	snapshot, err := p.snapshots.FetchSnapshot(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("price pipeline init: %w", err)
	}

	initial := models.PriceUpdate{ID: snapshot.LastUpdateID}
	if len(snapshot.Bids) > 0 {
		initial.Bid = snapshot.Bids[0]
	}
	if len(snapshot.Asks) > 0 {
		initial.Ask = snapshot.Asks[0]
	}

	out := channel.NewWatch(initial)
	gate := balancer.New[models.PriceUpdate](out)
	gate.Seed(snapshot.LastUpdateID)

	runCtx, cancel := context.WithCancel(ctx)
	reader := binance.NewPriceReader(p.config, symbol, gate)
	if err := reader.Start(runCtx); err != nil {
		cancel()
		out.Close()
		return nil, fmt.Errorf("price pipeline init: %w", err)
	}

	p.reader = reader
	p.out = out
	p.cancel = cancel
	p.running = true

	log.WithFields(logger.Fields{"last_update_id": snapshot.LastUpdateID}).Info("price pipeline initialized")
	return out, nil
}

// Stop aborts every worker task and closes the display channel. Idempotent
// and best-effort.
func (p *PricePipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false

	p.log.WithComponent("price_pipeline").Info("stopping price pipeline")
	p.cancel()
	p.out.Close()
	p.reader.Stop()
	p.log.WithComponent("price_pipeline").Info("price pipeline stopped")
}
