package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/receiptlens/backend/config"
	httpDelivery "github.com/receiptlens/backend/internal/delivery/http"
	"github.com/receiptlens/backend/internal/infrastructure/cache"
	"github.com/receiptlens/backend/internal/infrastructure/logging"
	"github.com/receiptlens/backend/internal/infrastructure/metrics"
	"github.com/receiptlens/backend/internal/infrastructure/pdftext"
	"github.com/receiptlens/backend/internal/parser"
	"github.com/receiptlens/backend/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := config.LoadEnvFile(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level, cfg.Server.Environment)
	logger.Info().
		Str("environment", cfg.Server.Environment).
		Str("port", cfg.Server.Port).
		Str("cache", cfg.Cache.Type).
		Dur("cache_ttl", cfg.Cache.TTL).
		Msg("starting receiptlens")

	// Initialize infrastructure dependencies
	memoryCache := cache.NewMemoryCache(cache.DefaultSweepInterval)
	defer memoryCache.Close()

	recorder := metrics.New()
	receiptParser := parser.New(cfg.Parser.Options(&logger))

	// Initialize usecase layer
	service := usecase.NewExtractionService(
		memoryCache,
		pdftext.NewExtractor(logger),
		receiptParser,
		recorder,
		logger,
		usecase.ExtractionServiceConfig{
			CacheTTL:         cfg.Cache.TTL,
			Timeout:          cfg.Server.RequestTimeout,
			MaxBatchFiles:    cfg.Batch.MaxFiles,
			BatchConcurrency: cfg.Batch.Concurrency,
		},
	)

	handler := httpDelivery.NewHandler(service, httpDelivery.HandlerConfig{
		MaxUploadBytes: cfg.Server.MaxUploadBytes(),
		MaxBatchFiles:  cfg.Batch.MaxFiles,
	}, logger)

	router := httpDelivery.SetupRouter(cfg, handler, recorder.Handler(), logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// batch uploads run several extractions back to back
		WriteTimeout: cfg.Server.RequestTimeout * time.Duration(cfg.Batch.MaxFiles/cfg.Batch.Concurrency+1),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}
