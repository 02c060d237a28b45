package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"
)

// Backend is the chain surface a Sender needs to build and submit transactions.
type Backend interface {
	GetChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Sender signs contract calls with a private key, submits them, and waits for
// the receipt. It is the sole writer for its key within this process.
type Sender struct {
	backend         Backend
	key             *ecdsa.PrivateKey
	from            common.Address
	receiptInterval time.Duration
	logger          *zap.Logger

	mu      sync.Mutex
	chainID *big.Int
}

// NewSender builds a Sender from a hex-encoded private key.
func NewSender(backend Backend, keyHex string, receiptInterval time.Duration, logger *zap.Logger) (*Sender, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend is nil")
	}
	key, err := crypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	if receiptInterval <= 0 {
		receiptInterval = 2 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Sender{
		backend:         backend,
		key:             key,
		from:            crypto.PubkeyToAddress(key.PublicKey),
		receiptInterval: receiptInterval,
		logger:          logger,
	}, nil
}

// From returns the address derived from the signing key.
func (s *Sender) From() common.Address {
	return s.from
}

// Send builds, signs, and submits a contract call and waits until it is mined.
func (s *Sender) Send(ctx context.Context, to common.Address, calldata []byte) (*types.Receipt, error) {
	gasPrice, err := s.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	gas, err := s.backend.EstimateGas(ctx, ethereum.CallMsg{
		From: s.from,
		To:   &to,
		Data: calldata,
	})
	if err != nil {
		return nil, fmt.Errorf("estimate gas: %w", err)
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	chainID, err := s.getChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("get chain id: %w", err)
	}

	tx := types.NewTransaction(nonce, to, big.NewInt(0), gas, gasPrice, calldata)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	s.logger.Info("transaction submitted",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.Uint64("nonce", nonce),
		zap.Uint64("gas", gas),
	)

	return s.waitMined(ctx, signed.Hash())
}

func (s *Sender) getChainID(ctx context.Context) (*big.Int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.chainID != nil {
		return s.chainID, nil
	}
	chainID, err := s.backend.GetChainID(ctx)
	if err != nil {
		return nil, err
	}
	s.chainID = chainID
	return chainID, nil
}

func (s *Sender) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(s.receiptInterval)
	defer ticker.Stop()

	for {
		receipt, err := s.backend.TransactionReceipt(ctx, txHash)
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			s.logger.Warn("receipt fetch failed", zap.String("tx_hash", txHash.Hex()), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
