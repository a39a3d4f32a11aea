// Craft list MCP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rsned/craftlist-server/internal/config"
	"github.com/rsned/craftlist-server/internal/crafting/db"
	"github.com/rsned/craftlist-server/internal/crafting/engine"
	"github.com/rsned/craftlist-server/internal/crafting/mcp"
	"github.com/rsned/craftlist-server/internal/crafting/metrics"
	"github.com/rsned/craftlist-server/internal/crafting/pricing"
	"github.com/rsned/craftlist-server/pkg/crafting"
)

var (
	// Global flags
	configPath string
	dbPath     string
	verbose    bool
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand creates the root command. Without a subcommand it serves
// MCP over stdio.
func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "craftlist-server",
		Short: "Craft list MCP server",
		Long: `craftlist-server resolves crafting requirement trees over the Model Context
Protocol. It reads JSON-RPC requests on stdin and writes responses on stdout.

Examples:
  craftlist-server --db data/craftlist.db
  craftlist-server import --items items.json --recipes recipes.json
  craftlist-server import --market market.json --prune-older-than 72h`,
		SilenceUsage: true,
		RunE:         runServer,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: ./config.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "",
		"Path to SQLite database (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")

	rootCmd.AddCommand(newImportCommand())

	return rootCmd
}

// app holds what every command needs.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	database *db.DB
	closers  []func() error
}

// setup loads configuration, builds the logger and opens the database.
func setup(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	// stdout carries the protocol stream
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}

	logger, closeLog, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	database, err := db.OpenAndInit(ctx, cfg.Database.Path)
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("opening database: %w", err)
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		database: database,
		closers:  []func() error{database.Close, closeLog},
	}, nil
}

func (a *app) close() {
	for _, c := range a.closers {
		_ = c()
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func runServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	// A nil collector records nothing
	var collector *metrics.Collector
	if a.cfg.Metrics.Enabled {
		collector, err = metrics.NewCollector()
		if err != nil {
			return fmt.Errorf("creating metrics collector: %w", err)
		}
		go func() {
			if err := collector.Serve(ctx, a.cfg.Metrics.Address, logger); err != nil {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
	}

	prices := pricing.New(db.NewMarketStore(a.database), pricing.Options{
		TTL:       a.cfg.Pricing.TTL,
		Workers:   a.cfg.Pricing.RefreshWorkers,
		QueueSize: a.cfg.Pricing.QueueSize,
		Logger:    logger,
		Recorder:  collector,
	})
	prices.Start(ctx)
	defer func() {
		cancel()
		prices.Wait()
	}()

	preference := make([]crafting.SourceID, 0, len(a.cfg.Engine.SourcePreference))
	for _, s := range a.cfg.Engine.SourcePreference {
		preference = append(preference, crafting.SourceID(s))
	}

	eng, err := engine.New(a.database, engine.Options{
		Cascade:          a.cfg.Engine.Cascade,
		SourcePreference: preference,
		RecipeCacheSize:  a.cfg.Engine.RecipeCacheSize,
		Prices:           prices,
		Logger:           logger,
		Recorder:         collector,
	})
	if err != nil {
		return err
	}
	server := mcp.NewServer(eng, logger, collector)

	// Run MCP server
	logger.Info("starting MCP server", "db", a.cfg.Database.Path, "metrics", a.cfg.Metrics.Enabled)
	err = server.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return nil
}
