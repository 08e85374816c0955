package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"tradeScope/internal/chain"
	"tradeScope/internal/config"
	"tradeScope/internal/gamma"
	"tradeScope/internal/indexer"
	"tradeScope/internal/storage/postgres"
)

const syncStateKey = "trade_sync"

func main() {
	// Optional .env, same as the rest of our services.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:          "tradescope",
		Short:        "Polymarket fill-event indexer",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "Run one indexing pass",
		RunE:  runIndex,
	}

	indexCmd.Flags().String("rpc-url", config.DefaultRPCURL, "Polygon RPC URL")
	indexCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	indexCmd.Flags().String("gamma-base", config.DefaultGammaBase, "Gamma API base URL")
	indexCmd.Flags().String("exchange", config.DefaultExchange, "CTF exchange address")
	indexCmd.Flags().String("neg-risk-exchange", config.DefaultNegRiskExchange, "neg-risk exchange address")
	indexCmd.Flags().String("collateral", config.DefaultCollateralUSDC, "default collateral token address")
	indexCmd.Flags().Int64("from", -1, "start block (inclusive), -1 resumes from the sync cursor")
	indexCmd.Flags().Int64("to", -1, "end block (inclusive), -1 means latest")
	indexCmd.Flags().String("tx", "", "reference transaction hash; its block fills unset bounds")
	indexCmd.Flags().String("event-slug", "", "event slug for market discovery")
	indexCmd.Flags().Bool("include-exchange", true, "scan the CTF exchange")
	indexCmd.Flags().Bool("include-neg-risk", true, "scan the neg-risk exchange")
	indexCmd.Flags().Uint64("chunk-size", 4000, "blocks per eth_getLogs chunk")
	indexCmd.Flags().Int("fetch-concurrency", 1, "concurrent log chunk fetches")
	indexCmd.Flags().Duration("http-timeout", 20*time.Second, "metadata HTTP timeout")
	indexCmd.Flags().Int("max-retries", 4, "metadata HTTP retry attempts")
	indexCmd.Flags().Duration("retry-base-delay", 1500*time.Millisecond, "metadata HTTP retry base delay")
	indexCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(indexCmd)

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the read-only query API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	serveCmd.Flags().String("listen-addr", "127.0.0.1:8000", "listen address")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE:  runMigrate,
	}

	migrateCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	migrateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(migrateCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runIndex(cmd *cobra.Command, _ []string) error {
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

	if cfg.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if cfg.PGDSN == "" {
		return fmt.Errorf("pg dsn is required")
	}

	exchanges, err := enabledExchanges(cfg)
	if err != nil {
		return err
	}

	var txHash *common.Hash
	if cfg.TxHash != "" {
		hash := common.HexToHash(cfg.TxHash)
		txHash = &hash
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	store, err := postgres.NewStore(ctx, cfg.PGDSN)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	if err := store.Migrate(ctx); err != nil {
		return err
	}

	metadata := gamma.NewClient(gamma.Config{
		BaseURL:        cfg.GammaBase,
		Timeout:        cfg.HTTPTimeout,
		MaxRetries:     cfg.MaxRetries,
		RetryBaseDelay: cfg.RetryBaseDelay,
	}, logger)

	runner := indexer.NewRunner(indexer.RunConfig{
		SyncKey:           syncStateKey,
		EventSlug:         cfg.EventSlug,
		Exchanges:         exchanges,
		ChunkSize:         cfg.ChunkSize,
		FetchConcurrency:  cfg.FetchConcurrency,
		DefaultCollateral: cfg.Collateral,
		From:              config.BlockArg(cfg.From),
		To:                config.BlockArg(cfg.To),
		TxHash:            txHash,
	}, chainClient, store, metadata, logger)

	logger.Info("indexer start",
		zap.String("rpc", cfg.RPCURL),
		zap.String("event_slug", cfg.EventSlug),
		zap.Int("exchanges", len(exchanges)),
		zap.Uint64("chunk_size", cfg.ChunkSize),
	)

	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func enabledExchanges(cfg config.Config) ([]common.Address, error) {
	var exchanges []common.Address
	if cfg.IncludeExchange && cfg.Exchange != "" {
		if !common.IsHexAddress(cfg.Exchange) {
			return nil, fmt.Errorf("invalid exchange address: %s", cfg.Exchange)
		}
		exchanges = append(exchanges, common.HexToAddress(cfg.Exchange))
	}
	if cfg.IncludeNegRisk && cfg.NegRiskExchange != "" {
		if !common.IsHexAddress(cfg.NegRiskExchange) {
			return nil, fmt.Errorf("invalid neg-risk exchange address: %s", cfg.NegRiskExchange)
		}
		exchanges = append(exchanges, common.HexToAddress(cfg.NegRiskExchange))
	}
	if len(exchanges) == 0 {
		return nil, fmt.Errorf("at least one exchange address must be enabled")
	}
	return exchanges, nil
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
