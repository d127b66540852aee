package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"chronicle/internal/config"
	"chronicle/internal/indexer"
	"chronicle/internal/projection"
	"chronicle/internal/server"
	"chronicle/internal/storage"
	"chronicle/internal/supervisor"
)

func main() {
	root := &cobra.Command{
		Use:          "chronicle",
		Short:        "OpenReward event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Index every configured source and serve the query API",
		RunE:  runIndexer,
	}

	runCmd.Flags().String("rpc", "", "websocket or IPC RPC URL")
	runCmd.Flags().String("db-url", "", "database URL (postgres://... or sqlite://path)")
	runCmd.Flags().String("server-addr", "0.0.0.0:8080", "query API listen address")
	runCmd.Flags().String("contract", projection.OpenRewardDiamond.Hex(), "default contract address")
	runCmd.Flags().Uint64("start-block", 0, "default start block")
	runCmd.Flags().String("backend", "evm", "default chain backend (evm, runtime)")
	runCmd.Flags().Uint64("historical-batch-size", 0, "blocks per catch-up query, 0 means one query to head")
	runCmd.Flags().Duration("rpc-timeout", 0, "timeout per historical RPC call, 0 means none")
	runCmd.Flags().Bool("skip-malformed", false, "log and skip events that fail to decode")
	runCmd.Flags().String("archive", "", "optional JSONL path receiving every dispatched raw log")
	runCmd.Flags().Duration("shutdown-grace", 10*time.Second, "time to wait for tasks after a shutdown signal")
	runCmd.Flags().Float64("rate-limit", 0, "query API requests per second per client, 0 disables")
	runCmd.Flags().Int("rate-burst", 20, "query API burst size per client")

	root.AddCommand(runCmd)

	bootstrapCmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the checkpoint and projection tables",
		RunE:  runBootstrap,
	}

	bootstrapCmd.Flags().String("db-url", "", "database URL (postgres://... or sqlite://path)")

	root.AddCommand(bootstrapCmd)

	decodeCmd := &cobra.Command{
		Use:   "decode",
		Short: "Decode archived raw logs with the registered event schemas",
		RunE:  runDecode,
	}

	decodeCmd.Flags().String("in", "", "input raw logs JSONL")
	decodeCmd.Flags().String("out", "./data/decoded_events.jsonl", "output decoded events JSONL")
	decodeCmd.Flags().String("errors", "./data/decode_errors.jsonl", "decode errors JSONL")
	decodeCmd.Flags().Bool("skip-unknown", true, "skip logs without a registered handler instead of reporting them")

	root.AddCommand(decodeCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		return err
	}
	sources, err := cfg.Sources()
	if err != nil {
		return err
	}
	registry := projection.DefaultRegistry()
	for _, source := range sources {
		if err := source.Validate(registry); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queryStore, err := openStore(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer queryStore.Close()

	if err := bootstrap(ctx, queryStore, registry); err != nil {
		return err
	}

	srv, err := server.New(server.Config{
		Addr:      cfg.ServerAddr,
		RateLimit: cfg.RateLimit,
		Burst:     cfg.RateBurst,
	}, projection.NewReader(queryStore), logger)
	if err != nil {
		return err
	}

	routerCfg := projection.RouterConfig{SkipMalformed: cfg.SkipMalformed}
	if cfg.Archive != "" {
		routerCfg.Archive = storage.NewJSONLArchive(cfg.Archive)
	}
	openTaskStore := func(ctx context.Context) (storage.Store, error) {
		return openStore(ctx, cfg.DBURL)
	}

	tasks := []supervisor.Task{srv}
	for _, source := range sources {
		tasks = append(tasks, indexer.NewTask(source, registry, routerCfg,
			indexer.ChainConnector(cfg.ChainOptions()), openTaskStore,
			logger.With(zap.String("component", "indexer"), zap.String("event", source.Name()))))
	}

	logger.Info("chronicle start",
		zap.Int("sources", len(sources)),
		zap.String("server_addr", cfg.ServerAddr),
		zap.Uint64("historical_batch_size", cfg.HistoricalBatchSize),
		zap.Bool("skip_malformed", cfg.SkipMalformed),
		zap.String("archive", cfg.Archive),
		zap.Duration("shutdown_grace", cfg.ShutdownGrace),
	)

	return supervisor.New(logger, cfg.ShutdownGrace, tasks...).Run(ctx)
}

func runBootstrap(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.DBURL == "" {
		return fmt.Errorf("db url is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.DBURL)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer store.Close()

	if err := bootstrap(ctx, store, projection.DefaultRegistry()); err != nil {
		return err
	}
	logger.Info("bootstrap complete", zap.String("dialect", string(store.Dialect())))
	return nil
}

// bootstrap creates the checkpoint table and every projection table.
func bootstrap(ctx context.Context, store storage.Store, registry *projection.Registry) error {
	if err := indexer.EnsureCheckpointTable(ctx, store); err != nil {
		return err
	}
	if err := registry.Bootstrap(ctx, store); err != nil {
		return fmt.Errorf("bootstrap tables: %w", err)
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
