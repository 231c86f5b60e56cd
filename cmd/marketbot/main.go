package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/upb/nse-market-bot/app"
	"github.com/upb/nse-market-bot/config"
	"github.com/upb/nse-market-bot/internal/observability"
	"go.uber.org/zap"
)

// Build variables set by ldflags
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "marketbot",
		Short: "NSE Market Bot",
		Long: `Market Bot answers questions about the Nairobi Securities Exchange using
passages retrieved from its knowledge base.

Configuration is read from the environment and an optional .env file.`,
		Version:      fmt.Sprintf("%s (%s)", version, commit),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newIngestCommand())
	rootCmd.AddCommand(newSearchCommand())
	rootCmd.AddCommand(newAskCommand())

	return rootCmd
}

// initLogger builds the process logger from the observability settings
func initLogger(cfg config.ObservabilityConfig) (*zap.Logger, error) {
	return observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
}

// loadConfig reads the environment and .env, then builds the logger from the
// loaded settings. Configuration failures are reported on a default logger.
func loadConfig(ctx context.Context) (*config.Config, *zap.Logger, error) {
	cfg, err := config.New(ctx)
	if err != nil {
		if fallback, lerr := observability.NewLogger("info", "json"); lerr == nil {
			fallback.Error("failed to load configuration", zap.Error(err))
			_ = fallback.Sync()
		}
		return nil, nil, err
	}

	logger, err := initLogger(cfg.Observability)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// bootstrap loads configuration and wires the application
func bootstrap(ctx context.Context) (*app.Dependencies, error) {
	cfg, logger, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	deps, err := app.NewDependencies(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize dependencies", zap.Error(err))
		return nil, err
	}
	return deps, nil
}
