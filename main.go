package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"bookflow/channel"
	"bookflow/config"
	"bookflow/logger"
	"bookflow/models"
	"bookflow/pipeline"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	symbol := flag.String("symbol", "BTCUSDT", "Symbol to replicate")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.Bookflow.Name,
		"version": cfg.Bookflow.Version,
		"symbol":  *symbol,
	}).Info("starting bookflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch {
		logger.InitCloudWatch(cfg.Metrics.Region, cfg.Metrics.Namespace)
	}
	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, cfg.Metrics.ReportInterval)
	}

	bookPipeline := pipeline.NewBookPipeline(cfg)
	books, err := bookPipeline.Init(ctx, *symbol)
	if err != nil {
		log.WithError(err).Error("failed to start book pipeline")
		os.Exit(1)
	}

	pricePipeline := pipeline.NewPricePipeline(cfg)
	prices, err := pricePipeline.Init(ctx, *symbol)
	if err != nil {
		log.WithError(err).Error("failed to start price pipeline")
		bookPipeline.Stop()
		os.Exit(1)
	}

	// Stand-in for the display layer: log every published state change.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumeBooks(ctx, *symbol, books)
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		consumePrices(ctx, *symbol, prices)
	}()

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()
	pricePipeline.Stop()
	bookPipeline.Stop()
	wg.Wait()

	log.Info("bookflow stopped")
}

func consumeBooks(ctx context.Context, symbol string, books *channel.Watch[models.BookTop]) {
	log := logger.GetLogger().WithComponent("book_consumer").WithFields(logger.Fields{"symbol": symbol})

	for {
		top, err := books.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, channel.ErrClosed) {
				log.WithError(err).Warn("book consumer terminating")
			}
			return
		}

		fields := logger.Fields{"bids": len(top.Bids), "asks": len(top.Asks)}
		if len(top.Bids) > 0 {
			fields["best_bid"] = top.Bids[0].Price
			fields["best_bid_qty"] = top.Bids[0].Qty
		}
		if len(top.Asks) > 0 {
			fields["best_ask"] = top.Asks[0].Price
			fields["best_ask_qty"] = top.Asks[0].Qty
		}
		log.WithFields(fields).Info("order book updated")
	}
}

func consumePrices(ctx context.Context, symbol string, prices *channel.Watch[models.PriceUpdate]) {
	log := logger.GetLogger().WithComponent("price_consumer").WithFields(logger.Fields{"symbol": symbol})

	for {
		quote, err := prices.Next(ctx)
		if err != nil {
			if !errors.Is(err, context.Canceled) && !errors.Is(err, channel.ErrClosed) {
				log.WithError(err).Warn("price consumer terminating")
			}
			return
		}

		log.WithFields(logger.Fields{
			"update_id": quote.ID,
			"bid":       quote.Bid.Price,
			"bid_qty":   quote.Bid.Qty,
			"ask":       quote.Ask.Price,
			"ask_qty":   quote.Ask.Qty,
		}).Info("best price updated")
	}
}
