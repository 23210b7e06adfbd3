/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave accrual engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (env + optional .env)
  2. Initialize SQLite store
  3. Optionally seed French leave-type presets
  4. Wire allocator, rollover, handlers, router
  5. Start cron scheduler and HTTP server
  6. Shut down gracefully on SIGINT/SIGTERM

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Stop the scheduler, waiting for running jobs
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  DB_PATH=./data/leave.db ./server

  # Run with in-memory database and presets
  DB_PATH=":memory:" SEED_DEFAULTS=true ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/leave-engine/accrual"
	"github.com/warp/leave-engine/api"
	"github.com/warp/leave-engine/config"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/store/sqlite"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}
	log.SetLevel(cfg.LogLevel)

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize database")
	}
	defer store.Close()

	if cfg.SeedDefaults {
		if err := factory.SeedFrenchDefaults(context.Background(), store); err != nil {
			log.WithError(err).Fatal("failed to seed default leave types")
		}
		log.Info("seeded French leave type presets")
	}

	allocator := accrual.NewAllocator(store, accrual.Config{
		AccrueFromContracts: cfg.AccrueFromContracts,
		InferAttendance:     cfg.InferAttendance,
	}, log)
	rollover := accrual.NewRollover(store, log)

	handler := api.NewHandler(store, allocator, rollover, log)
	router := api.NewRouter(handler)

	var scheduler *api.Scheduler
	if cfg.Scheduler {
		scheduler = api.NewScheduler(allocator, rollover, log)
		if err := scheduler.Start(cfg.AccrualCron, cfg.RolloverCron); err != nil {
			log.WithError(err).Fatal("failed to start scheduler")
		}
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.WithError(err).Fatal("server forced to shutdown")
	}
	if scheduler != nil {
		scheduler.Stop()
	}

	log.Info("server stopped")
}
