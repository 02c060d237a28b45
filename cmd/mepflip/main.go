package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"mepflip/internal/chain"
	"mepflip/internal/config"
	"mepflip/internal/hub"
	"mepflip/internal/model"
	"mepflip/internal/relay"
	"mepflip/internal/watcher"
)

func main() {
	root := &cobra.Command{
		Use:          "mepflip",
		Short:        "Coin-flip betting over the $MEP pool contract",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	relayCmd := &cobra.Command{
		Use:   "relay",
		Short: "Run the relay server",
		RunE:  runRelay,
	}

	relayCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	relayCmd.Flags().String("pool-address", "", "pool contract address")
	relayCmd.Flags().String("token-address", "", "$MEP token contract address")
	relayCmd.Flags().String("custody-key", "", "custody private key (hex)")
	relayCmd.Flags().String("listen", ":8080", "listen address")
	relayCmd.Flags().Duration("poll-interval", 3*time.Second, "event polling interval")
	relayCmd.Flags().Duration("receipt-interval", 2*time.Second, "receipt polling interval")
	relayCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	relayCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	relayCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(relayCmd)

	betCmd := &cobra.Command{
		Use:   "bet",
		Short: "Place a bet and wait for the flip",
		RunE:  runBet,
	}

	betCmd.Flags().String("server-url", "http://localhost:8080", "relay server URL")
	betCmd.Flags().String("rpc", "", "Ethereum RPC URL")
	betCmd.Flags().String("pool-address", "", "pool contract address")
	betCmd.Flags().String("token-address", "", "$MEP token contract address")
	betCmd.Flags().String("private-key", "", "player private key (hex)")
	betCmd.Flags().String("name", "", "player display name")
	betCmd.Flags().Int64("amount", 0, "bet amount in whole $MEP")
	betCmd.Flags().String("choice", "", "coin face to bet on (heads or tails)")
	betCmd.Flags().String("session-file", "./data/session.json", "session file path")
	betCmd.Flags().Duration("poll-interval", 3*time.Second, "event polling interval")
	betCmd.Flags().Duration("receipt-interval", 2*time.Second, "receipt polling interval")
	betCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	betCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	betCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(betCmd)

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Follow the live bet history feed",
		RunE:  runWatch,
	}

	watchCmd.Flags().String("server-url", "http://localhost:8080", "relay server URL")
	watchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(watchCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runRelay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRelay(cfgFile, cmd.Flags())
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
	if !common.IsHexAddress(cfg.PoolAddress) {
		return fmt.Errorf("valid pool address is required")
	}
	if cfg.CustodyKey == "" {
		return fmt.Errorf("custody key is required")
	}
	poolAddr := common.HexToAddress(cfg.PoolAddress)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	sender, err := chain.NewSender(chainClient, cfg.CustodyKey, cfg.ReceiptInterval, logger)
	if err != nil {
		return fmt.Errorf("custody sender: %w", err)
	}

	signer := relay.NewSigner(sender, poolAddr)
	handler := relay.NewHandler(signer, logger)

	broadcastHub := hub.NewHub(logger)
	go broadcastHub.Run(ctx)

	poolWatcher, err := watcher.New(watcher.Config{
		PoolAddress:  poolAddr,
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, func(res model.Resolution) {
		if err := broadcastHub.Broadcast(hub.EventBetResolved, res); err != nil {
			logger.Warn("broadcast resolution failed", zap.Error(err))
		}
	}, logger)
	if err != nil {
		return fmt.Errorf("build watcher: %w", err)
	}

	go func() {
		if err := poolWatcher.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("watcher stopped", zap.Error(err))
		}
	}()

	server := relay.NewServer(cfg.Listen, relay.NewRouter(handler, broadcastHub))

	logger.Info("relay start",
		zap.String("listen", cfg.Listen),
		zap.String("pool", poolAddr.Hex()),
		zap.String("custody", signer.From().Hex()),
		zap.Duration("poll_interval", cfg.PollInterval),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", zap.Error(err))
	}

	logger.Info("relay stopped")
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
