/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the calendar engine HTTP server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Load YAML config (created with defaults on first run)
  3. Initialize SQLite store
  4. Create API handler and router
  5. Start retention scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML config path (default: ./calendar.yaml)
  -port    HTTP port, overrides "listen" from the config
  -db      SQLite database path, overrides "database"
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the retention scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -config=/etc/calendar/calendar.yaml
  ./server -db=":memory:" -port=3000

SEE ALSO:
  - config/config.go: YAML settings
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/warp/calendar-engine/api"
	"github.com/warp/calendar-engine/config"
	"github.com/warp/calendar-engine/factory"
	"github.com/warp/calendar-engine/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "calendar.yaml", "YAML config path")
	port := flag.Int("port", 0, "HTTP server port (overrides config listen)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config database)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *port != 0 {
		cfg.Listen = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.Database = *dbPath
	}

	calCfg, err := cfg.Calendar()
	if err != nil {
		log.Fatalf("Invalid calendar settings: %v", err)
	}
	rounding, err := cfg.DefaultRounding()
	if err != nil {
		log.Fatalf("Invalid rounding: %v", err)
	}
	interval, err := cfg.Interval()
	if err != nil {
		log.Fatalf("Invalid retention interval: %v", err)
	}

	// Initialize store
	if cfg.Database != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Database), 0o755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}
	store, err := sqlite.New(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	f := factory.New(calCfg)
	f.Rounding = rounding
	handler := api.NewHandler(store, f)
	handler.HistoryLimit = cfg.HistoryLimit

	// Create router
	router := api.NewRouter(handler, cfg.CORSOrigins...)

	// Retention
	scheduler := api.NewRetentionScheduler(store, calCfg, cfg.RetentionDays)
	scheduler.CheckInterval = interval
	scheduler.Start()

	// Create server
	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("[Server] Listening on %s (zone %s, weeks start %s, rounding %s)",
			cfg.Listen, calCfg.Location, calCfg.FirstDayOfWeek, rounding)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] Shutting down...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("[Server] Stopped")
}
