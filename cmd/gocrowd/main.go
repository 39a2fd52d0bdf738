package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/gocrowd/internal/config"
	"github.com/IshaanNene/gocrowd/internal/observability"
	"github.com/IshaanNene/gocrowd/internal/remote"
	"github.com/IshaanNene/gocrowd/internal/storage"
	"github.com/IshaanNene/gocrowd/internal/streaming/pipeline"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gocrowd",
		Short: "gocrowd — resumable streaming pipelines over a crowdsourcing platform",
		Long: `gocrowd polls a crowdsourcing platform's paginated collections
(assignments, tasks, user bonuses, skills, restrictions, message
threads, pool snapshots) through resumable, deduplicating cursors,
dispatches newly-seen events to observers, and checkpoints progress to
pluggable storage so a restarted pipeline picks up exactly where it
left off.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the pipeline against an in-memory demo fixture until quiescent",
		Long: `Run builds a demo Fetcher, registers observers for submitted
assignments, tasks and pool snapshots, and
drives the pipeline until every observer reports no further work —
demonstrating the scheduler end to end without a live platform
connection. Point --config at a file selecting a real storage backend
to exercise checkpoint/resume across restarts.`,
		RunE: runPipeline,
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the gocrowd version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(config.Version)
		},
	}
}

func runPipeline(cmd *cobra.Command, args []string) error {
	logger := setupLogger()

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Pipeline.MinSleep < pipeline.MinSleepSeconds*time.Second {
		logger.Warn("pipeline.min_sleep is below the recommended floor",
			"min_sleep", cfg.Pipeline.MinSleep, "recommended_seconds", pipeline.MinSleepSeconds)
	}

	logger.Info("starting pipeline",
		"name", cfg.Pipeline.Name,
		"period", cfg.Pipeline.Period,
		"storage_backend", cfg.Storage.Backend,
	)

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(logger)
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
	}

	store, closeStore, err := buildStorage(cmd.Context(), cfg, logger)
	if err != nil {
		return fmt.Errorf("build storage: %w", err)
	}
	if closeStore != nil {
		defer closeStore()
	}

	fetcher := remote.NewFake(cfg.Remote.PageSize)
	seedDemoFixture(fetcher)

	pipe := buildDemoPipeline(cfg, logger, metrics, store, fetcher)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		cancel()
	}()

	if err := pipe.Run(ctx); err != nil {
		return fmt.Errorf("pipeline run: %w", err)
	}

	logger.Info("pipeline finished")
	return nil
}

func buildStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, func(), error) {
	switch cfg.Storage.Backend {
	case "mongo":
		s, err := storage.NewMongoStorage(ctx, cfg.Storage.MongoURI, cfg.Storage.MongoDB, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close(ctx) }, nil
	case "bunt":
		s, err := storage.NewBuntStorage(cfg.Storage.BuntPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	case "none":
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}

// setupLogger creates a structured logger.
func setupLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}
