package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"mepflip/internal/bet"
	"mepflip/internal/config"
	"mepflip/internal/model"
)

func runWatch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadWatch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	socket, err := bet.DialSocket(ctx, cfg.ServerURL, logger)
	if err != nil {
		return fmt.Errorf("connect relay feed: %w", err)
	}
	defer socket.Close()

	logger.Info("watching bet feed", zap.String("server", cfg.ServerURL))

	err = socket.Listen(ctx,
		func(record model.HistoryRecord) {
			fmt.Printf("%s bet %s $MEP and %s (streak %d)\n",
				record.Player, record.Amount, record.Result, record.WinCount)
		},
		func(res model.Resolution) {
			fmt.Printf("flip landed %s for %s\n", res.Landed(), res.Wallet)
		},
	)
	if err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
