package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"mepflip/internal/model"
	"mepflip/internal/pool"
)

// LogSource provides chain logs for the watcher.
type LogSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, fromBlock, toBlock uint64, addresses []common.Address, topic0 []common.Hash) ([]types.Log, error)
}

// Sink receives decoded resolutions.
type Sink func(model.Resolution)

// Config holds runtime settings for the watcher.
type Config struct {
	PoolAddress  common.Address
	PollInterval time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	// SeenTTL bounds how long event ids are remembered for deduplication.
	SeenTTL time.Duration
}

// Watcher polls the chain for BetResolved events, decodes them, and delivers
// each event to the sink at most once.
type Watcher struct {
	cfg     Config
	source  LogSource
	decoder *pool.Decoder
	sink    Sink
	seen    *cache.Cache
	logger  *zap.Logger

	lastBlock uint64
}

// New builds a Watcher with its dependencies.
func New(cfg Config, source LogSource, sink Sink, logger *zap.Logger) (*Watcher, error) {
	if source == nil {
		return nil, fmt.Errorf("log source is nil")
	}
	if sink == nil {
		return nil, fmt.Errorf("sink is nil")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.SeenTTL <= 0 {
		cfg.SeenTTL = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	decoder, err := pool.NewDecoder()
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}

	return &Watcher{
		cfg:     cfg,
		source:  source,
		decoder: decoder,
		sink:    sink,
		seen:    cache.New(cfg.SeenTTL, cfg.SeenTTL),
		logger:  logger,
	}, nil
}

// Run executes the polling loop until the context is cancelled. Watching
// starts at the chain head: there is no replay of past bets.
func (w *Watcher) Run(ctx context.Context) error {
	topic0, err := pool.BetResolvedTopic()
	if err != nil {
		return fmt.Errorf("event topic: %w", err)
	}

	latest, err := w.latestWithRetry(ctx)
	if err != nil {
		return fmt.Errorf("get latest block: %w", err)
	}
	w.lastBlock = latest

	w.logger.Info("watcher start",
		zap.String("pool", w.cfg.PoolAddress.Hex()),
		zap.Uint64("from_block", latest+1),
		zap.Duration("poll_interval", w.cfg.PollInterval),
	)

	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		latest, err := w.latestWithRetry(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("latest block fetch failed", zap.Error(err))
			continue
		}
		if latest <= w.lastBlock {
			continue
		}

		logs, err := w.filterLogsWithRetry(ctx, w.lastBlock+1, latest, topic0)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger.Warn("filter logs failed", zap.Error(err), zap.Uint64("from", w.lastBlock+1), zap.Uint64("to", latest))
			continue
		}
		w.lastBlock = latest

		for _, log := range logs {
			if log.Removed || !w.decoder.CanDecode(log.Topics[0]) {
				continue
			}

			res, err := w.decoder.Decode(log)
			if err != nil {
				w.logger.Warn("decode failed", zap.Error(err), zap.String("tx_hash", log.TxHash.Hex()))
				continue
			}

			if err := w.seen.Add(res.EventID(), struct{}{}, cache.DefaultExpiration); err != nil {
				w.logger.Debug("duplicate resolution dropped", zap.String("event_id", res.EventID()))
				continue
			}

			w.logger.Info("bet resolved",
				zap.String("wallet", res.Wallet),
				zap.Int64("amount", res.Amount),
				zap.String("choice", string(res.Choice)),
				zap.String("result", string(res.Result)),
				zap.Uint64("block_number", res.BlockNumber),
			)
			w.sink(*res)
		}
	}
}

func (w *Watcher) latestWithRetry(ctx context.Context) (uint64, error) {
	var latest uint64
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		latest, err = w.source.LatestBlockNumber(ctx)
		return err
	})
	return latest, err
}

func (w *Watcher) filterLogsWithRetry(ctx context.Context, fromBlock, toBlock uint64, topic0 common.Hash) ([]types.Log, error) {
	var logs []types.Log
	err := withRetry(ctx, w.cfg.MaxRetries, w.cfg.RetryBackoff, func(ctx context.Context) error {
		var err error
		logs, err = w.source.FilterLogs(ctx, fromBlock, toBlock,
			[]common.Address{w.cfg.PoolAddress}, []common.Hash{topic0})
		return err
	})
	return logs, err
}

func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
