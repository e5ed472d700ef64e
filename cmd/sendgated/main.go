package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/fieldreach/sendgate/internal/policy/common/clock"
	"github.com/fieldreach/sendgate/internal/policy/common/log"
	"github.com/fieldreach/sendgate/internal/policy/config"
	"github.com/fieldreach/sendgate/internal/policy/gateways/httpapi"
	"github.com/fieldreach/sendgate/internal/policy/repos/snapshot"
	"github.com/fieldreach/sendgate/internal/policy/repos/workrecord"
)

const (
	version = "0.1.0-dev"
	appName = "sendgated"

	defaultShutdownTimeout = 10 * time.Second
	dbPingRetries          = 6
)

// Application holds all the components of the policy server.
type Application struct {
	config    *config.AppConfig
	db        *sql.DB
	snapshots *snapshot.Store
	server    *http.Server
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	err = log.Configure(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logging configuration error: %v\n", err)
		os.Exit(1)
	}

	log.Info(map[string]any{
		"version":   version,
		"env":       cfg.Env,
		"log_level": cfg.LogLevel,
		"port":      cfg.Port,
	}, "Starting sendgate policy server")

	app, err := buildApplication(cfg)
	if err != nil {
		log.Fatal(map[string]any{"error": err}, "Failed to build application")
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(map[string]any{"error": err}, "Server failed")
		}
	}()

	<-ctx.Done()
	log.Info(nil, "Shutdown signal received")

	ctxT, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := app.server.Shutdown(ctxT); err != nil {
		log.Error(map[string]any{"error": err}, "Shutdown did not complete cleanly")
		os.Exit(1)
	}
	log.Info(nil, "Server stopped gracefully")
}

// buildApplication constructs all components and wires them together.
func buildApplication(cfg *config.AppConfig) (*Application, error) {
	clk := clock.RealClock{}

	db, err := openDatabase(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	snapshots, err := snapshot.Open(cfg.SnapshotPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}

	records := workrecord.NewStore(db, clk)
	matchers := httpapi.NewMatcherSet(cfg.CacheSize, cfg.BloomFPRate)
	handler := httpapi.NewHandler(records, records, snapshots, clk, matchers)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: httpapi.Router(cfg.Env, handler),
	}

	return &Application{
		config:    cfg,
		db:        db,
		snapshots: snapshots,
		server:    srv,
	}, nil
}

// Close releases the application's long-lived resources.
func (a *Application) Close() {
	if err := a.snapshots.Close(); err != nil {
		log.Error(map[string]any{"error": err}, "Failed to close snapshot store")
	}
	if err := a.db.Close(); err != nil {
		log.Error(map[string]any{"error": err}, "Failed to close database")
	}
}

// openDatabase connects to Postgres and pings with backoff until the
// database answers, since the server is routinely started alongside it.
func openDatabase(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	for i := 1; ; i++ {
		pingErr := db.Ping()
		if pingErr == nil {
			break
		}
		log.Warn(map[string]any{
			"attempt": fmt.Sprintf("%d/%d", i, dbPingRetries),
			"error":   pingErr.Error(),
		}, "Database not responding")
		if i == dbPingRetries {
			_ = db.Close()
			return nil, pingErr
		}
		time.Sleep(time.Duration(5*i) * time.Second)
	}

	return db, nil
}
