package main

import (
	"context"
	"flag"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"path"

	"github.com/google/subcommands"

	"stockCalculator/config"
	"stockCalculator/internal/adapters/chart"
	"stockCalculator/internal/adapters/cli"
	"stockCalculator/internal/adapters/logger"
	"stockCalculator/internal/adapters/sqlite"
	"stockCalculator/internal/app"
	"stockCalculator/internal/ports"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Printf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
		return int(subcommands.ExitFailure)
	}

	// 2. Initialize Logger
	appLogger := logger.NewStdLogger(cfg.LogLevel)
	appLogger.Debug(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Key:    cfg.StorageKey,
		Logger: appLogger,
	})
	if err != nil {
		log.Printf("FATAL: Failed to initialize database repository: %v", err)
		return int(subcommands.ExitFailure)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()

	// 4. Initialize the portfolio store and restore saved state
	store, err := app.NewPortfolioStore(app.StoreConfig{
		DefaultPolicy: cfg.DefaultPolicy,
		BulkKeywords:  cfg.BulkKeywords,
	}, appLogger, repo, app.WithListener(ports.ChangeListenerFunc(func(ctx context.Context, snap ports.Snapshot) {
		appLogger.Debug(ctx, "Portfolio changed", map[string]interface{}{
			"positions":    len(snap.Positions),
			"transactions": len(snap.Transactions),
			"policy":       snap.Policy.String(),
		})
	})))
	if err != nil {
		log.Printf("FATAL: Failed to initialize portfolio store: %v", err)
		return int(subcommands.ExitFailure)
	}
	if err := store.Load(ctx); err != nil {
		// Keep going with an empty portfolio, like a first run.
		fmt.Fprintf(os.Stderr, "Warning: stored portfolio could not be loaded, starting empty: %v\n", err)
	}

	// 5. Dispatch the selected command
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	cli.Register(commander, &cli.Env{
		Store:     store,
		In:        os.Stdin,
		Out:       os.Stdout,
		Err:       os.Stderr,
		ExportDir: cfg.ExportDir,
		ChartSize: chart.Size{Width: cfg.ChartWidth, Height: cfg.ChartHeight},
	})

	flag.Parse()
	return int(commander.Execute(ctx))
}
