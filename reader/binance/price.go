package binance

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"bookflow/balancer"
	"bookflow/config"
	"bookflow/logger"
	"bookflow/models"
)

// PriceReader runs the redundant websocket workers for one symbol's
// bookTicker subscription. Structurally identical to DepthReader, but the
// decoded item is a flat best-price tick.
type PriceReader struct {
	config  *config.Config
	sink    balancer.Sink[models.PriceUpdate]
	symbol  string
	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

// NewPriceReader creates a reader feeding sink with best-price updates for
// symbol.
func NewPriceReader(cfg *config.Config, symbol string, sink balancer.Sink[models.PriceUpdate]) *PriceReader {
	return &PriceReader{
		config: cfg,
		sink:   sink,
		symbol: symbol,
		wg:     &sync.WaitGroup{},
		log:    logger.GetLogger(),
	}
}

// Start spawns the configured number of redundant stream workers.
func (r *PriceReader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("price reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	ws := r.config.Source.Binance.WS
	log := r.log.WithComponent("binance_price_reader").WithFields(logger.Fields{"operation": "start"})

	log.WithFields(logger.Fields{"symbol": r.symbol, "workers": ws.Workers}).Info("starting price reader")

	for i := 0; i < ws.Workers; i++ {
		r.wg.Add(1)
		go r.stream(uuid.NewString())
	}

	log.Info("price reader started successfully")
	return nil
}

// Stop waits for every worker to terminate.
func (r *PriceReader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.log.WithComponent("binance_price_reader").Info("stopping price reader")
	r.wg.Wait()
	r.log.WithComponent("binance_price_reader").Info("price reader stopped")
}

func (r *PriceReader) stream(workerID string) {
	defer r.wg.Done()

	ws := r.config.Source.Binance.WS
	endpoint := streamURL(ws.URL, r.symbol, ws.PriceChannel)

	log := r.log.WithComponent("binance_price_reader").WithFields(logger.Fields{
		"symbol": r.symbol,
		"worker": workerID,
	})

	conn, stop, err := dialStream(r.ctx, endpoint, r.config.Reader.Timeout)
	if err != nil {
		log.WithError(err).Error("failed to connect to price stream")
		return
	}
	defer stop()

	log.Info("price stream connected")

	for {
		payload, err := readFrame(conn)
		if err != nil {
			if r.ctx.Err() != nil {
				log.Info("worker stopped due to context cancellation")
				return
			}
			log.WithError(err).Warn("price stream read failed, worker terminating")
			return
		}
		logger.RecordStreamMessage("price_ws", len(payload))

		update, err := models.DecodePriceUpdate(payload)
		if err != nil {
			log.WithError(err).Warn("failed to decode price update, message skipped")
			continue
		}

		switch err := r.sink.Send(update); {
		case err == nil:
			logger.IncrementPriceAccepted()
			log.WithFields(logger.Fields{"update_id": update.ID}).Debug("price update forwarded")
		case errors.Is(err, balancer.ErrRejected):
			logger.IncrementPriceRejected()
			log.WithFields(logger.Fields{"update_id": update.ID}).Debug("price update rejected as stale or duplicate")
		default:
			log.WithError(err).Info("consumer gone, worker terminating")
			return
		}
	}
}
