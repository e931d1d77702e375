// Package cli provides common initialization utilities for the
// expense-tracker command.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"expensetracker/internal/cache"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/metrics"
	"expensetracker/internal/state"
	"expensetracker/internal/storage"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as the file is optional.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the application logger from cfg and installs it as the
// slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on failure.
func LoadAndValidateConfig() *config.Config {
	bootstrap := log.New(log.DefaultConfig())

	cfg, err := config.Load()
	if err != nil {
		bootstrap.Error("Configuration loading failed", log.FieldErrorType, log.ErrorTypeConfiguration, log.FieldError, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		bootstrap.Error("Configuration validation failed", log.FieldErrorType, log.ErrorTypeConfiguration, log.FieldError, err)
		os.Exit(1)
	}
	return cfg
}

// SetupMetrics returns a recorder and the registry backing it. With metrics
// disabled the recorder is a no-op and the registry stays empty.
func SetupMetrics(cfg *config.Config) (metrics.Recorder, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	if !cfg.MetricsEnabled {
		return metrics.Nop{}, reg
	}
	return metrics.NewPrometheus(reg), reg
}

// InitStorage builds the SQLite-backed manager for cfg and installs it as the
// process-wide instance. The database is opened later by Initialize.
func InitStorage(cfg *config.Config, logger *log.Logger, recorder metrics.Recorder) *storage.Manager {
	m := storage.NewManager(
		storage.NewSQLiteDriver(cfg.DataDir),
		cfg.DBName,
		storage.WithLogger(logger),
		storage.WithMetrics(recorder),
	)
	storage.SetInstance(m)
	logger.Debug("Storage configured", log.FieldDatabase, cfg.DBPath())
	return m
}

// InitStore wires the state store on top of engine and registers its vendor
// cache with caches for periodic sweeping.
func InitStore(cfg *config.Config, engine state.Engine, logger *log.Logger, recorder metrics.Recorder, caches *cache.Manager) *state.Store {
	cacheSize := cfg.VendorCacheSize
	if cacheSize == 0 {
		// VENDOR_CACHE_SIZE=0 turns the cache off.
		cacheSize = -1
	}
	store := state.NewStore(engine, state.Options{
		VendorSuggestionLimit: cfg.VendorSuggestionLimit,
		PopularVendorLimit:    cfg.PopularVendorLimit,
		SearchDebounce:        cfg.SearchDebounce,
		VendorCacheSize:       cacheSize,
		VendorCacheTTL:        cfg.VendorCacheTTL,
		Logger:                logger,
		Metrics:               recorder,
	})
	if caches != nil {
		caches.Register(store.VendorCache())
		caches.StartCleanup(cfg.VendorCacheTTL)
	}
	return store
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			logger.Info("Shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}
