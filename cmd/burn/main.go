// Package main runs one full burn cycle from a local keypair: burn the
// fixed GARLIC amount, generate a defense strategy, score it, and fold
// the score into the wallet's leaderboard aggregate.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"garlic-defense/internal/config"
	"garlic-defense/internal/domain"
	"garlic-defense/internal/generation"
	"garlic-defense/internal/orchestrator"
	"garlic-defense/internal/solana"
	"garlic-defense/internal/storage"
	chstore "garlic-defense/internal/storage/clickhouse"
	"garlic-defense/internal/storage/memory"
	"garlic-defense/internal/storage/migrations"
	pgstore "garlic-defense/internal/storage/postgres"
	"garlic-defense/internal/token"
)

func main() {
	loadEnvFile()

	keypairPath := flag.String("keypair", os.Getenv("SOLANA_KEYPAIR_PATH"), "Path to Solana keypair file (JSON byte array)")
	rpcEndpoint := flag.String("rpc-endpoint", os.Getenv("SOLANA_RPC_ENDPOINT"), "Solana RPC HTTP endpoint")
	wsEndpoint := flag.String("ws-endpoint", os.Getenv("SOLANA_WS_ENDPOINT"), "Solana WebSocket endpoint (optional, enables push confirmation)")
	configPath := flag.String("config", envOr("CONFIG_PATH", "config.yaml"), "YAML config file path")
	postgresDSN := flag.String("postgres-dsn", os.Getenv("POSTGRES_DSN"), "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", os.Getenv("CLICKHOUSE_DSN"), "ClickHouse connection string (optional)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage (scores are lost on exit)")
	language := flag.String("language", "en", "Strategy language (en, zh)")
	timeout := flag.Duration("timeout", 2*time.Minute, "Overall cycle timeout")

	flag.Parse()

	logger := log.New(os.Stdout, "[burn] ", log.LstdFlags)

	if *keypairPath == "" {
		logger.Fatal("--keypair is required")
	}
	if *rpcEndpoint == "" {
		logger.Fatal("--rpc-endpoint is required")
	}
	if !*useMemory && *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required (use --use-memory to score without persistence)")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Generation.APIKey == "" {
		logger.Fatal("Generation API key is required (GENERATION_API_KEY env or generation.api_key in config)")
	}

	lang := domain.Language(*language)
	if !lang.Valid() {
		logger.Fatalf("Unsupported language %q (want en or zh)", *language)
	}

	signer, err := solana.LoadKeypairFile(*keypairPath)
	if err != nil {
		logger.Fatalf("Failed to load keypair: %v", err)
	}
	logger.Printf("Wallet: %s", signer.PublicKey())

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	rpc := solana.NewHTTPClient(*rpcEndpoint)

	var ws solana.WSClient
	if *wsEndpoint != "" {
		wsClient, err := solana.NewWSClient(ctx, *wsEndpoint, nil)
		if err != nil {
			logger.Printf("WebSocket connect failed, falling back to polling: %v", err)
		} else {
			ws = wsClient
			defer wsClient.Close()
		}
	}

	aggregates, events, cleanup, err := createStores(ctx, *postgresDSN, *clickhouseDSN, *useMemory, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	burner := token.NewBurner(rpc, ws, token.DefaultConfig(), logger)
	generator := generation.NewClient(cfg.GenerationConfig())

	o := orchestrator.New(orchestrator.Options{
		Burner:     burner,
		Generator:  generator,
		Aggregates: aggregates,
		Events:     events,
		Logger:     logger,
	})

	result, err := o.RunCycle(ctx, signer, lang)
	if err != nil {
		var cycleErr *orchestrator.CycleError
		if errors.As(err, &cycleErr) && cycleErr.TokensBurned {
			logger.Printf("Cycle failed AFTER the burn. Tokens are gone; no score was recorded.")
			logger.Printf("Burn signature: %s", cycleErr.Receipt.Signature)
		}
		logger.Fatalf("Cycle failed: %v", err)
	}

	printResult(result)
}

func printResult(result *orchestrator.CycleResult) {
	fmt.Println()
	fmt.Println("=== Burn receipt ===")
	fmt.Printf("Signer:        %s\n", result.Receipt.Signer)
	fmt.Printf("Burned (raw):  %d\n", result.Receipt.Amount)
	fmt.Printf("Signature:     %s\n", result.Receipt.Signature)
	fmt.Printf("Slot:          %d\n", result.Receipt.Slot)

	fmt.Println()
	fmt.Println("=== Defense strategy ===")
	fmt.Printf("Strategy:      %s\n", result.Strategy.Strategy)
	fmt.Printf("Garlic usage:  %s\n", result.Strategy.GarlicUsage)
	fmt.Printf("Effectiveness: %d\n", result.Effectiveness)

	agg := result.Aggregate
	fmt.Println()
	fmt.Println("=== Wallet aggregate ===")
	fmt.Printf("Burns:         %d\n", agg.BurnCount)
	fmt.Printf("Strategies:    %d\n", agg.StrategyCount)
	fmt.Printf("Cumulative:    %d\n", agg.CumulativeEffectiveness)
	fmt.Printf("Max:           %d\n", agg.MaxEffectiveness)
	fmt.Printf("Average:       %.2f\n", agg.AverageEffectiveness)
	fmt.Printf("Last activity: %s\n", agg.LastActivityAt.Format(time.RFC3339))
}

// createStores builds the aggregate store and, when ClickHouse is
// configured, the analytics event log.
func createStores(ctx context.Context, postgresDSN, clickhouseDSN string, useMemory bool, logger *log.Logger) (storage.WalletAggregateStore, storage.BurnEventStore, func(), error) {
	if useMemory {
		logger.Println("Using in-memory storage")
		return memory.NewWalletAggregateStore(), memory.NewBurnEventStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, nil, err
	}

	aggregates := pgstore.NewWalletAggregateStore(pool)
	cleanup := func() { pool.Close() }

	var events storage.BurnEventStore
	if clickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
		if err != nil {
			// The event log is best-effort even at setup time.
			logger.Printf("ClickHouse unavailable, burn events will not be logged: %v", err)
		} else {
			events = chstore.NewBurnEventStore(conn)
			cleanup = func() {
				conn.Close()
				pool.Close()
			}
		}
	}

	return aggregates, events, cleanup, nil
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
		return
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
