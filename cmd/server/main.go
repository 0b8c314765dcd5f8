/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave management server. Handles
  configuration, backend selection, dependency injection, and graceful
  shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags and environment (flags win)
  2. Open the store: PostgreSQL when DATABASE_URL is set, else SQLite
  3. Optionally seed demo data (-seed)
  4. Create API handler with dependencies
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides APP_ADDR)
  -db      SQLite database path (default: dayoff.db)
           Use ":memory:" for an in-memory database
  -seed    Load demo employees and requests, then continue serving

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/dayoff.db"

  # Run with demo data
  ./server -db=":memory:" -seed

  # Run against PostgreSQL
  DATABASE_URL=postgres://... ./server

SEE ALSO:
  - config/config.go: Environment variables
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
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

	"github.com/shopspring/decimal"

	"github.com/dayoff/leave-engine/api"
	"github.com/dayoff/leave-engine/config"
	"github.com/dayoff/leave-engine/leave"
	"github.com/dayoff/leave-engine/store/postgres"
	"github.com/dayoff/leave-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	port := flag.Int("port", 0, "HTTP server port (overrides APP_ADDR)")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	seed := flag.Bool("seed", false, "load demo data on startup")
	flag.Parse()

	addr := cfg.Addr
	if *port != 0 {
		addr = fmt.Sprintf(":%d", *port)
	}

	ctx := context.Background()

	// Backend selection: DATABASE_URL wins over the sqlite path.
	var store leave.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer pg.Close()
		store = pg
		log.Printf("Using PostgreSQL backend")
	} else {
		sl, err := sqlite.New(*dbPath)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer sl.Close()
		store = sl
		log.Printf("Using SQLite backend at %s", *dbPath)
	}

	if *seed {
		if err := seedDemoData(ctx, store); err != nil {
			log.Printf("Warning: demo seed incomplete: %v", err)
		} else {
			log.Printf("Demo data loaded")
		}
	}

	handler := api.NewHandler(store, cfg)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on %s", addr)
		log.Printf("API available at http://localhost%s/api", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedDemoData loads two demo employees and a pair of requests so a
// fresh install has something to click through. Skipped silently when
// the accounts already exist.
func seedDemoData(ctx context.Context, store leave.Store) error {
	d := decimal.NewFromInt

	seedEmployees := []leave.Employee{
		leave.NewEmployee("小明", "ming@company.com", "123456",
			time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), "技術部", "",
			map[leave.Category]decimal.Decimal{
				leave.CategoryAnnual:        d(14),
				leave.CategoryCompensatory:  d(3),
				leave.CategoryPersonal:      d(7),
				leave.CategorySick:          d(5),
				leave.CategoryBereavement:   d(3),
				leave.CategoryMarriage:      d(3),
			}),
		leave.NewEmployee("小華", "hua@company.com", "123456",
			time.Date(2022, 8, 1, 0, 0, 0, 0, time.UTC), "行銷部", "兼職",
			map[leave.Category]decimal.Decimal{
				leave.CategoryAnnual:      d(10),
				leave.CategoryPersonal:    d(5),
				leave.CategorySick:        d(6),
				leave.CategoryBereavement: d(3),
				leave.CategoryMarriage:    d(3),
			}),
	}
	for _, e := range seedEmployees {
		if _, err := store.AppendEmployee(ctx, e); err != nil {
			if errors.Is(err, leave.ErrDuplicateEmail) {
				return nil // already seeded
			}
			return err
		}
	}

	seedRequests := []leave.LeaveRequest{
		{
			EmployeeEmail: "ming@company.com",
			Date:          time.Now().AddDate(0, 0, 7),
			Period:        leave.PeriodFullDay,
			Type:          leave.CategoryAnnual,
			Days:          d(1),
			Reason:        "家庭旅遊",
		},
		{
			EmployeeEmail: "hua@company.com",
			Date:          time.Now().AddDate(0, 0, 3),
			Period:        leave.PeriodMorning,
			Type:          leave.CategorySick,
			Days:          decimal.NewFromFloat(0.5),
			Reason:        "回診",
		},
	}
	for _, r := range seedRequests {
		if _, err := store.AppendLeaveRequest(ctx, r); err != nil {
			return err
		}
	}
	return nil
}
