package binance

import (
	"context"
	"fmt"
	"net/http"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"golang.org/x/time/rate"

	"bookflow/config"
	"bookflow/logger"
	"bookflow/models"
)

// SnapshotClient fetches the REST depth snapshot used to bootstrap a
// pipeline. Requests go through a local rate limiter so repeated pipeline
// starts stay inside the exchange's request-weight budget.
type SnapshotClient struct {
	api     *binance.Client
	limiter *rate.Limiter
	limit   int
	log     *logger.Log
}

// NewSnapshotClient builds a client against the configured REST endpoint.
func NewSnapshotClient(cfg *config.Config) *SnapshotClient {
	client := binance.NewClient("", "")
	client.BaseURL = cfg.Source.Binance.REST.URL
	client.HTTPClient = &http.Client{Timeout: cfg.Reader.Timeout}

	rl := cfg.Reader.RateLimit
	return &SnapshotClient{
		api:     client,
		limiter: rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), rl.BurstSize),
		limit:   cfg.Source.Binance.REST.Limit,
		log:     logger.GetLogger(),
	}
}

// FetchSnapshot fetches the current depth snapshot for symbol. It fails on
// transport or deserialization errors; the caller decides whether a failed
// bootstrap is fatal.
func (c *SnapshotClient) FetchSnapshot(ctx context.Context, symbol string) (models.DepthSnapshot, error) {
	log := c.log.WithComponent("binance_snapshot_client").WithFields(logger.Fields{
		"symbol":    symbol,
		"operation": "fetch_snapshot",
	})

	if err := c.limiter.Wait(ctx); err != nil {
		return models.DepthSnapshot{}, fmt.Errorf("snapshot rate limit: %w", err)
	}

	start := time.Now()
	res, err := c.api.NewDepthService().Symbol(symbol).Limit(c.limit).Do(ctx)
	if err != nil {
		return models.DepthSnapshot{}, fmt.Errorf("fetch snapshot for %s: %w", symbol, err)
	}

	snapshot := models.DepthSnapshot{
		LastUpdateID: res.LastUpdateID,
		Bids:         make([]models.InlineOrder, 0, len(res.Bids)),
		Asks:         make([]models.InlineOrder, 0, len(res.Asks)),
	}
	for _, b := range res.Bids {
		snapshot.Bids = append(snapshot.Bids, models.InlineOrder{Price: b.Price, Qty: b.Quantity})
	}
	for _, a := range res.Asks {
		snapshot.Asks = append(snapshot.Asks, models.InlineOrder{Price: a.Price, Qty: a.Quantity})
	}

	log.WithFields(logger.Fields{
		"last_update_id": snapshot.LastUpdateID,
		"bids":           len(snapshot.Bids),
		"asks":           len(snapshot.Asks),
		"duration_ms":    time.Since(start).Milliseconds(),
	}).Info("depth snapshot fetched")
	logger.IncrementSnapshotRead(len(snapshot.Bids) + len(snapshot.Asks))
	logger.LogDataFlowEntry(log, "binance_rest", "order_book", len(snapshot.Bids)+len(snapshot.Asks), "depth_snapshot")

	return snapshot, nil
}
