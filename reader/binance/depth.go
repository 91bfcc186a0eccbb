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

// DepthReader runs the redundant websocket workers for one symbol's
// diff-depth subscription. Every worker holds its own connection and pushes
// decoded updates into the shared balancer; deduplication and ordering are
// entirely the balancer's job, the workers never talk to each other.
type DepthReader struct {
	config  *config.Config
	sink    balancer.Sink[models.DepthUpdate]
	symbol  string
	ctx     context.Context
	wg      *sync.WaitGroup
	mu      sync.RWMutex
	running bool
	log     *logger.Log
}

// NewDepthReader creates a reader feeding sink with depth updates for symbol.
func NewDepthReader(cfg *config.Config, symbol string, sink balancer.Sink[models.DepthUpdate]) *DepthReader {
	return &DepthReader{
		config: cfg,
		sink:   sink,
		symbol: symbol,
		wg:     &sync.WaitGroup{},
		log:    logger.GetLogger(),
	}
}

// Start spawns the configured number of redundant stream workers.
func (r *DepthReader) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("depth reader already running")
	}
	r.running = true
	r.ctx = ctx
	r.mu.Unlock()

	ws := r.config.Source.Binance.WS
	log := r.log.WithComponent("binance_depth_reader").WithFields(logger.Fields{"operation": "start"})

	log.WithFields(logger.Fields{"symbol": r.symbol, "workers": ws.Workers}).Info("starting depth reader")

	for i := 0; i < ws.Workers; i++ {
		r.wg.Add(1)
		go r.stream(uuid.NewString())
	}

	log.Info("depth reader started successfully")
	return nil
}

// Stop waits for every worker to terminate. Workers only exit once their
// connection dies, so callers cancel the Start context first.
func (r *DepthReader) Stop() {
	r.mu.Lock()
	r.running = false
	r.mu.Unlock()

	r.log.WithComponent("binance_depth_reader").Info("stopping depth reader")
	r.wg.Wait()
	r.log.WithComponent("binance_depth_reader").Info("depth reader stopped")
}

func (r *DepthReader) stream(workerID string) {
	defer r.wg.Done()

	ws := r.config.Source.Binance.WS
	endpoint := streamURL(ws.URL, r.symbol, ws.DepthChannel)

	log := r.log.WithComponent("binance_depth_reader").WithFields(logger.Fields{
		"symbol": r.symbol,
		"worker": workerID,
	})

	conn, stop, err := dialStream(r.ctx, endpoint, r.config.Reader.Timeout)
	if err != nil {
		log.WithError(err).Error("failed to connect to depth stream")
		return
	}
	defer stop()

	log.Info("depth stream connected")

	for {
		payload, err := readFrame(conn)
		if err != nil {
			if r.ctx.Err() != nil {
				log.Info("worker stopped due to context cancellation")
				return
			}
			log.WithError(err).Warn("depth stream read failed, worker terminating")
			return
		}
		logger.RecordStreamMessage("depth_ws", len(payload))

		update, err := models.DecodeDepthUpdate(payload)
		if err != nil {
			log.WithError(err).Warn("failed to decode depth update, message skipped")
			continue
		}

		switch err := r.sink.Send(update); {
		case err == nil:
			logger.IncrementDepthAccepted()
			log.WithFields(logger.Fields{
				"first_update_id": update.FirstUpdateID,
				"final_update_id": update.FinalUpdateID,
			}).Debug("depth update merged")
		case errors.Is(err, balancer.ErrRejected):
			logger.IncrementDepthRejected()
			log.WithFields(logger.Fields{
				"first_update_id": update.FirstUpdateID,
				"final_update_id": update.FinalUpdateID,
			}).Debug("depth update rejected as stale or duplicate")
		default:
			log.WithError(err).Info("consumer gone, worker terminating")
			return
		}
	}
}
