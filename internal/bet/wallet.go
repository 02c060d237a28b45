package bet

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"mepflip/internal/chain"
	"mepflip/internal/pool"
)

// Caller performs read-only contract calls.
type Caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// ChainWallet signs token and pool transactions with the player's key and
// reads token state over eth_call.
type ChainWallet struct {
	sender *chain.Sender
	caller Caller
	token  common.Address
	pool   common.Address
}

// NewChainWallet wires a wallet around the player's transaction sender.
func NewChainWallet(sender *chain.Sender, caller Caller, token, poolAddr common.Address) *ChainWallet {
	return &ChainWallet{
		sender: sender,
		caller: caller,
		token:  token,
		pool:   poolAddr,
	}
}

// Address returns the player's account address.
func (w *ChainWallet) Address() common.Address {
	return w.sender.From()
}

// Approve grants the pool a token allowance and waits for the transaction to
// mine.
func (w *ChainWallet) Approve(ctx context.Context, amount *big.Int) error {
	calldata, err := pool.PackApprove(w.pool, amount)
	if err != nil {
		return err
	}
	receipt, err := w.sender.Send(ctx, w.token, calldata)
	if err != nil {
		return fmt.Errorf("approve: %w", err)
	}
	if receipt.Status != 1 {
		return fmt.Errorf("approve reverted: tx %s", receipt.TxHash.Hex())
	}
	return nil
}

// Deposit moves the approved wager into the pool and waits for the
// transaction to mine.
func (w *ChainWallet) Deposit(ctx context.Context, amount *big.Int) error {
	calldata, err := pool.PackDeposit(amount)
	if err != nil {
		return err
	}
	receipt, err := w.sender.Send(ctx, w.pool, calldata)
	if err != nil {
		return fmt.Errorf("deposit: %w", err)
	}
	if receipt.Status != 1 {
		return fmt.Errorf("deposit reverted: tx %s", receipt.TxHash.Hex())
	}
	return nil
}

// Balance reads the player's token balance in base units.
func (w *ChainWallet) Balance(ctx context.Context) (*big.Int, error) {
	calldata, err := pool.PackBalanceOf(w.Address())
	if err != nil {
		return nil, err
	}
	out, err := w.caller.CallContract(ctx, ethereum.CallMsg{To: &w.token, Data: calldata}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf call: %w", err)
	}
	return pool.UnpackBalanceOf(out)
}

// Decimals reads the token's decimal precision.
func (w *ChainWallet) Decimals(ctx context.Context) (uint8, error) {
	calldata, err := pool.PackDecimals()
	if err != nil {
		return 0, err
	}
	out, err := w.caller.CallContract(ctx, ethereum.CallMsg{To: &w.token, Data: calldata}, nil)
	if err != nil {
		return 0, fmt.Errorf("decimals call: %w", err)
	}
	return pool.UnpackDecimals(out)
}
