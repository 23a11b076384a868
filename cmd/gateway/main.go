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

	"defigateway/internal/chain"
	"defigateway/internal/config"
	"defigateway/internal/portfolio"
	"defigateway/internal/pricing"
	"defigateway/internal/server"
	"defigateway/internal/uniswap"
)

func main() {
	root := &cobra.Command{
		Use:          "gateway",
		Short:        "DeFi data gateway",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	serveCmd.Flags().String("price-api", pricing.DefaultAPIURL, "price API base URL")
	serveCmd.Flags().Duration("cache-ttl", 60*time.Second, "price cache TTL")
	serveCmd.Flags().StringSlice("token", nil, "tracked tokens (SYMBOL=0xaddress, comma-separated)")
	serveCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(serveCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	tokens, err := portfolio.ParseTrackedTokens(cfg.Tokens)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	priceCache := pricing.NewCache(pricing.NewCoinGecko(cfg.PriceAPIURL), cfg.CacheTTL, logger)
	poolReader := uniswap.NewReader(chainClient, logger)
	aggregator := portfolio.NewAggregator(logger,
		portfolio.NewERC20Provider(chainClient, priceCache, tokens, logger),
	)

	srv := server.New(cfg.Listen, priceCache, poolReader, aggregator, logger)

	logger.Info("gateway start",
		zap.String("listen", cfg.Listen),
		zap.String("rpc", cfg.RPCURL),
		zap.String("price_api", cfg.PriceAPIURL),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("tracked_tokens", len(tokens)),
	)

	return srv.Run(ctx)
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
