package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/jwhyun/matchgate/params"
	"github.com/jwhyun/matchgate/pkg/api"
	"github.com/jwhyun/matchgate/pkg/engine"
	"github.com/jwhyun/matchgate/pkg/gateway"
	"github.com/jwhyun/matchgate/pkg/metrics"
	"github.com/jwhyun/matchgate/pkg/storage"
	"github.com/jwhyun/matchgate/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("")

	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = filepath.Join(cfg.Server.DataDir, "gateway.log")
	}

	logger, err := util.NewLoggerWithFile(logFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", logFile)

	metrics.InitMetrics()

	// ---- Matching engine ----
	books := engine.NewBookRegistry(engine.FeeSchedule{
		MakerRate: cfg.Engine.MakerFeeRate,
		TakerRate: cfg.Engine.TakerFeeRate,
	})

	// ---- Trade journal ----
	journal, err := storage.OpenTradeJournal(
		filepath.Join(cfg.Server.DataDir, "trades"),
		cfg.Engine.TradeHistory,
		sugar,
	)
	if err != nil {
		sugar.Fatalw("open trade journal", "err", err)
	}
	defer journal.Close()

	// ---- Ingest pipeline ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pipeline := gateway.NewPipeline(cfg.Gateway, gateway.BookEngine{Registry: books}, journal, sugar)
	pipeline.Start(ctx)

	// ---- Market data fanout ----
	hub := api.NewHub(sugar)
	broadcaster := api.NewBroadcaster(
		hub,
		books,
		cfg.MarketData.Symbols,
		cfg.MarketData.SnapshotDepth,
		cfg.MarketData.BroadcastInterval,
		sugar,
	)
	go broadcaster.Run(ctx)

	// ---- HTTP + WS server ----
	server := api.NewServer(cfg, pipeline, books, journal, hub, sugar)
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.Server.Addr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		sugar.Infow("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			sugar.Errorw("server failed", "err", err)
		}
	}

	// Stop intake first, then the loops, then the fanout.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("server shutdown", "err", err)
	}

	cancel()
	pipeline.Stop()
	hub.Shutdown()

	sugar.Infow("gateway stopped")
}
