package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mepflip/internal/bet"
	"mepflip/internal/chain"
	"mepflip/internal/config"
	"mepflip/internal/model"
	"mepflip/internal/watcher"
)

func runBet(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadBet(cfgFile, cmd.Flags())
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
	if !common.IsHexAddress(cfg.TokenAddress) {
		return fmt.Errorf("valid token address is required")
	}
	if cfg.PrivateKey == "" {
		return fmt.Errorf("private key is required")
	}

	choice, err := model.ParseSide(cfg.Choice)
	if err != nil {
		return err
	}
	if cfg.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}

	poolAddr := common.HexToAddress(cfg.PoolAddress)
	tokenAddr := common.HexToAddress(cfg.TokenAddress)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("connect rpc: %w", err)
	}
	defer chainClient.Close()

	sender, err := chain.NewSender(chainClient, cfg.PrivateKey, cfg.ReceiptInterval, logger)
	if err != nil {
		return fmt.Errorf("player sender: %w", err)
	}
	wallet := bet.NewChainWallet(sender, chainClient, tokenAddr, poolAddr)

	session := bet.NewSession(cfg.SessionFile)
	name := cfg.Name
	if name == "" {
		if name, err = session.Load(); err != nil {
			return err
		}
	}
	if name == "" {
		return fmt.Errorf("player name is required")
	}
	if err := session.Save(name); err != nil {
		logger.Warn("save session failed", zap.Error(err))
	}

	relayClient := bet.NewHTTPRelay(cfg.ServerURL, nil)

	socket, err := bet.DialSocket(ctx, cfg.ServerURL, logger)
	if err != nil {
		return fmt.Errorf("connect relay feed: %w", err)
	}
	defer socket.Close()

	alerts := bet.NewAlerts(0)
	defer alerts.Close()

	controller := bet.NewController(wallet, relayClient, socket, alerts, logger)
	controller.SetName(name)

	if err := controller.Sync(ctx); err != nil {
		return fmt.Errorf("sync wallet: %w", err)
	}

	poolWatcher, err := watcher.New(watcher.Config{
		PoolAddress:  poolAddr,
		PollInterval: cfg.PollInterval,
		MaxRetries:   cfg.MaxRetries,
		RetryBackoff: cfg.RetryBackoff,
	}, chainClient, controller.HandleResolution, logger)
	if err != nil {
		return fmt.Errorf("build watcher: %w", err)
	}

	go func() {
		if err := poolWatcher.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("watcher stopped", zap.Error(err))
		}
	}()

	go func() {
		err := socket.Listen(ctx, func(record model.HistoryRecord) {
			controller.ApplyHistory(record)
			fmt.Printf("%s bet %s $MEP and %s (streak %d)\n",
				record.Player, record.Amount, record.Result, record.WinCount)
		}, nil)
		if err != nil && ctx.Err() == nil {
			logger.Warn("relay feed closed", zap.Error(err))
		}
	}()

	logger.Info("placing bet",
		zap.String("player", name),
		zap.String("wallet", wallet.Address().Hex()),
		zap.Int64("amount", cfg.Amount),
		zap.String("choice", string(choice)),
	)

	if err := controller.PlaceBet(ctx, choice, cfg.Amount); err != nil {
		if msg := alerts.Current(); msg != "" {
			fmt.Println(msg)
		}
		return err
	}

	fmt.Println("Bet placed. Waiting for the flip...")

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-controller.Resolved():
		fmt.Println(controller.Message())
		logger.Info("bet finished",
			zap.String("result", string(res.Result)),
			zap.Int("win_streak", controller.WinStreak()),
			zap.Int64("balance", controller.Balance()),
		)
	}

	return nil
}
