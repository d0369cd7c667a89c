package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commodityapi/internal/api"
	"commodityapi/internal/bybit"
	"commodityapi/internal/config"
	"commodityapi/internal/coordinator"
	"commodityapi/internal/logger"
	"commodityapi/internal/ratelimit"
	"commodityapi/internal/recorder"
	"commodityapi/internal/tradingview"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zl.Sync()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	rec := openRecorder(cfg, zl)
	defer rec.Close()

	router := newRouter(cfg, zl, rec)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Handle interrupt signals for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", srv.Addr), zap.String("env", cfg.AppEnv))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			zl.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		zl.Info("received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
}

// newRouter builds the fetchers, their cache entries and the HTTP routes.
func newRouter(cfg *config.Config, zl *zap.Logger, rec recorder.Recorder) *gin.Engine {
	limiter := ratelimit.New(cfg.UpstreamRateLimit, ratelimit.APITradingView, ratelimit.APIBybit)

	ulsd := tradingview.NewFuturesFetcher(
		cfg.TradingViewSymbol,
		tradingview.ULSD,
		cfg.TradingViewBaseURL,
		cfg.FetchTimeout,
		limiter,
	)

	gold := bybit.NewTickerFetcher(
		cfg.BybitCategory,
		cfg.BybitSymbol,
		bybit.GoldName,
		cfg.BybitBaseURL,
		cfg.FetchTimeout,
		limiter,
	)

	coord := coordinator.New(zl, rec,
		coordinator.NewSource(api.SourceULSD, "price", ulsd, cfg.ULSDCacheExpiry),
		coordinator.NewSource(api.SourceGold, "gold price", gold, cfg.GoldCacheExpiry),
	)

	return api.NewRouter(coord, zl, cfg.CORSAllowOrigins)
}

// openRecorder returns the SQLite history when configured. A database that
// cannot be opened is logged and replaced by a no-op recorder.
func openRecorder(cfg *config.Config, zl *zap.Logger) recorder.Recorder {
	if cfg.HistorySQLitePath == "" {
		return recorder.NewNoopRecorder()
	}

	rec, err := recorder.NewSQLiteRecorder(cfg.HistorySQLitePath)
	if err != nil {
		zl.Warn("snapshot history disabled",
			zap.String("path", cfg.HistorySQLitePath),
			zap.Error(fmt.Errorf("open recorder: %w", err)),
		)
		return recorder.NewNoopRecorder()
	}

	zl.Info("snapshot history enabled", zap.String("path", cfg.HistorySQLitePath))
	return rec
}
