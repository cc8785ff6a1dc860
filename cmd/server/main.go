// Package main runs the HTTP API server and the daily snapshot scheduler.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"garlic-defense/internal/api"
	"garlic-defense/internal/config"
	"garlic-defense/internal/generation"
	"garlic-defense/internal/scheduler"
	"garlic-defense/internal/storage"
	"garlic-defense/internal/storage/memory"
	"garlic-defense/internal/storage/migrations"
	pgstore "garlic-defense/internal/storage/postgres"
)

func main() {
	// Load .env file if exists
	loadEnvFile()

	// Parse flags (env vars as defaults)
	listenAddr := flag.String("listen-addr", envOr("LISTEN_ADDR", ":8080"), "HTTP listen address")
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "YAML config file path")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of PostgreSQL")
	totalsInterval := flag.Duration("totals-interval", 15*time.Second, "Burn total cache refresh interval")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Validate required settings
	if cfg.Generation.APIKey == "" {
		logger.Fatal("Generation API key is required (GENERATION_API_KEY env or generation.api_key in config)")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory for in-memory storage)")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	aggregates, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	generator := generation.NewClient(cfg.GenerationConfig())

	totals := api.NewTotalsPoller(aggregates, *totalsInterval, logger)
	go totals.Run(ctx)

	sched := scheduler.NewScheduler(ctx, aggregates, logger)
	if err := sched.RegisterAll(); err != nil {
		logger.Fatalf("Failed to register scheduler tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	server := api.NewServer(api.Options{
		Generator:  generator,
		Aggregates: aggregates,
		Totals:     totals,
		Logger:     logger,
	})

	httpServer := &http.Server{
		Addr:    *listenAddr,
		Handler: server.Handler(),
	}

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Printf("HTTP shutdown error: %v", err)
		}

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-shutdownCtx.Done():
		}
	}()

	logger.Printf("Starting HTTP server on %s", *listenAddr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("HTTP server error: %v", err)
	}
	logger.Println("Server stopped")
}

// createStores builds the wallet aggregate store and, when a ClickHouse DSN
// is given, verifies the analytics schema. The server itself never writes
// burn events; cmd/burn does.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (storage.WalletAggregateStore, func(), error) {
	if useMemory {
		logger.Println("Using in-memory storage")
		return memory.NewWalletAggregateStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() { pool.Close() }

	// Apply the analytics schema up front so burn clients find it ready.
	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		cleanup = func() {
			conn.Close()
			pool.Close()
		}
	}

	return pgstore.NewWalletAggregateStore(pool), cleanup, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// loadEnvFile loads .env from the working directory without overriding
// existing environment variables.
func loadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}
