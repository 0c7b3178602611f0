package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sarraf/internal/cache"
	"sarraf/internal/config"
	"sarraf/internal/feed"
	"sarraf/internal/market"
	"sarraf/internal/server"
	"sarraf/internal/store"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load() // best-effort: .env is optional

	cfg, err := config.Load("config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config.yaml: %v\n", err)
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.LogLevel)

	logger.Info("sarraf starting",
		slog.Int("port", cfg.Port),
		slog.String("feed_url", cfg.FeedURL),
		slog.String("data_dir", cfg.DataDir),
	)

	// Local record cache + stores (seeded from the last session)
	cacheStore := cache.NewStore(cfg.DataDir, logger)
	debounce := time.Duration(cfg.SnapshotDebounceMS) * time.Millisecond
	tickerStore := store.NewTickerStore(cacheStore, debounce, logger)
	marketStore := store.NewSnapshotStore(cacheStore, debounce, logger)
	holdingsStore := store.NewHoldingsStore(cacheStore, logger)

	// Upstream feed
	priceFeed := feed.NewWSFeed(cfg.FeedURL, cfg.FeedOrigin, logger)

	// HTTP server + WS hub; subscribes itself to the stores
	srv := server.NewHTTPServer(cfg, tickerStore, marketStore, holdingsStore, priceFeed, logger)

	// Context & signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start feed (connect loop)
	go priceFeed.Run(ctx, func(connected bool) {
		srv.BroadcastStatus()
	})

	// Pipe feed → normalizer → stores
	go func() {
		for {
			select {
			case raw, ok := <-priceFeed.Messages():
				if !ok {
					return
				}
				msg, ok := market.ParseMessage(raw)
				if !ok {
					logger.Debug("unparseable feed payload", slog.Int("bytes", len(raw)))
					continue
				}
				tickerStore.Reconcile(msg.Ticks, msg.Time)
				marketStore.Reconcile(market.SortDisplay(msg.Ticks))
			case err := <-priceFeed.Errors():
				if err != nil {
					logger.Error("feed error", slog.String("err", err.Error()))
					srv.BroadcastError(err.Error())
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// HTTP serving
	httpSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: srv.Router(),
	}

	done := make(chan struct{})
	go func() {
		logger.Info("HTTP server listening", slog.Int("port", cfg.Port))
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", slog.String("err", err.Error()))
			cancel()
		}
		close(done)
	}()

	// Graceful shutdown
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc

	logger.Info("shutting down...")
	shCtx, shCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shCancel()

	_ = httpSrv.Shutdown(shCtx)
	priceFeed.Close()
	tickerStore.Close()
	marketStore.Close()
	<-done
	logger.Info("bye")
}
