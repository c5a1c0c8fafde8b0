/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration from environment (.env honored)
  2. Build the structured logger
  3. Initialize SQLite store and seed the leave-type catalogue
  4. Create API handler with routing and provisioning policies
  5. Start server with graceful shutdown

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

ENVIRONMENT:
  APP_HOST, APP_PORT        HTTP bind address (default 0.0.0.0:8080)
  SQLITE_PATH               Database path (default ./data/leave.db)
  LOG_LEVEL                 zap level (default info)
  ENGINE_DEBIT_GATE         "balance-based" (default) or
                            "requires-approval"
  ENGINE_SEED_DEFAULTS      Seed default leave types (default true)

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/engine"
	"github.com/warp/leave-engine/observability"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	store, err := sqlite.New(cfg.Store.Path)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	if cfg.Engine.SeedDefaults {
		if err := seedLeaveTypes(context.Background(), store); err != nil {
			logger.Fatal("failed to seed leave types", zap.Error(err))
		}
	}

	policy := engine.DefaultRoutingPolicy()
	if cfg.Engine.DebitGate == "requires-approval" {
		policy.DebitGate = engine.DebitGateRequiresApproval
	}

	handler := api.NewHandler(store, engine.NewRouter(policy), engine.DefaultProvisionPolicy(), logger)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         cfg.App.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", cfg.App.Addr()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}

// seedLeaveTypes installs the default catalogue. SaveLeaveType upserts
// by name, so restarts do not duplicate types or rotate their IDs.
func seedLeaveTypes(ctx context.Context, store engine.TxStore) error {
	existing, err := store.LeaveTypes(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	for _, lt := range engine.DefaultLeaveTypes() {
		if err := store.SaveLeaveType(ctx, lt); err != nil {
			return err
		}
	}
	return nil
}
