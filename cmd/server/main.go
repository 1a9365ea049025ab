/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the ledger engine server. Handles configuration,
  dependency wiring, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse environment configuration (flags override)
  2. Open the SQLite store and load the entity graph into the arena
  3. Repair the persisted selection against the loaded graph
  4. Wire calculator, engine, hierarchy, handler, router
  5. Start the server with graceful shutdown

CONFIGURATION:
  PORT       HTTP server port (default: 8080)
  DB_PATH    SQLite database path (default: bankids.db, ":memory:" works)
  LOG_LEVEL  "debug" enables development logging

  Flags -port and -db override the environment.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM: stop accepting connections, wait up to 30s for
  active requests, close the database, exit.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/bankids/ledger-engine/api"
	"github.com/bankids/ledger-engine/ledger"
	"github.com/bankids/ledger-engine/store/sqlite"
)

type config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	DBPath   string `env:"DB_PATH" envDefault:"bankids.db"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()

	graph, err := store.Load(ctx)
	if err != nil {
		logger.Fatal("failed to load entity graph", zap.Error(err))
	}
	arena := ledger.NewArena()
	if err := arena.Hydrate(graph); err != nil {
		logger.Fatal("corrupt entity graph", zap.Error(err))
	}
	logger.Info("ledger loaded",
		zap.Int("accounts", len(graph.Accounts)),
		zap.Int("wallets", len(graph.Wallets)),
		zap.Int("transactions", len(graph.Transactions)),
	)

	calc := ledger.NewCalculator(arena)
	engine := ledger.NewEngine(arena, store)
	hierarchy := ledger.NewHierarchy(arena, store, store)

	// The persisted selection may reference entities deleted in a
	// previous run; repair it before serving.
	if _, err := hierarchy.ResetSelection(ctx); err != nil {
		logger.Warn("selection repair failed", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	metrics := api.NewMetrics(registry)
	handler := api.NewHandler(hierarchy, engine, calc, store, logger, metrics)
	router := api.NewRouter(handler, logger, registry)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.Int("port", *port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("forced shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
