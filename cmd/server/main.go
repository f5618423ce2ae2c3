/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the dashboard simulation server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load environment configuration (.env supported)
  2. Parse command-line flags (flags win over environment)
  3. Initialize SQLite snapshot store
  4. Load the latest committed snapshot, or seed a demo scenario
  5. Start the HTTP server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080 or $PORT)
  -db      SQLite database path (default: dashboard.db or $DB_PATH)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/dashboard.db"

  # Run with in-memory database
  ./server -db=":memory:"

  # Run on different port
  ./server -port=3000

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zline/bi-engine/api"
	"github.com/zline/bi-engine/config"
	"github.com/zline/bi-engine/engine"
	"github.com/zline/bi-engine/session"
	"github.com/zline/bi-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override the environment.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Resume from the latest committed snapshot; seed a demo scenario on
	// first run.
	snap, err := store.Latest(context.Background())
	if errors.Is(err, session.ErrSnapshotNotFound) {
		seeded, _, ok := api.BuildScenario(api.DefaultScenarioID)
		if !ok {
			log.Fatalf("Default scenario %q missing", api.DefaultScenarioID)
		}
		snap = seeded
		if err := store.Save(context.Background(), snap); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
		log.Printf("Seeded database with scenario %q", api.DefaultScenarioID)
	} else if err != nil {
		log.Fatalf("Failed to load latest snapshot: %v", err)
	}

	user := session.User{ID: cfg.UserID, Name: cfg.UserName}
	sess := session.NewSession(user, snap, engine.PeriodKey(cfg.CurrentPeriod))

	handler := api.NewHandler(sess, store, api.DefaultMetrics())
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🚀 Server starting on http://localhost:%d", *port)
		log.Printf("📊 API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
