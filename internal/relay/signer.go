package relay

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"mepflip/internal/chain"
	"mepflip/internal/model"
	"mepflip/internal/pool"
)

// Submitter submits custody-signed pool contract calls.
type Submitter interface {
	ResolvePool(ctx context.Context, wallet common.Address, amount *big.Int, choice model.Side) (*types.Receipt, error)
	Refund(ctx context.Context, wallet common.Address, amount *big.Int) (*types.Receipt, error)
}

// Signer invokes the pool contract with the custody key via a chain Sender.
type Signer struct {
	sender   *chain.Sender
	contract common.Address
}

// NewSigner wires a custody Sender to the pool contract address.
func NewSigner(sender *chain.Sender, contract common.Address) *Signer {
	return &Signer{sender: sender, contract: contract}
}

// From returns the custody address.
func (s *Signer) From() common.Address {
	return s.sender.From()
}

// ResolvePool submits resolvePool(wallet, amount, choice) and waits for the
// receipt.
func (s *Signer) ResolvePool(ctx context.Context, wallet common.Address, amount *big.Int, choice model.Side) (*types.Receipt, error) {
	calldata, err := pool.PackResolvePool(wallet, amount, choice)
	if err != nil {
		return nil, fmt.Errorf("pack resolvePool: %w", err)
	}
	return s.sender.Send(ctx, s.contract, calldata)
}

// Refund submits refund(wallet, amount) and waits for the receipt.
func (s *Signer) Refund(ctx context.Context, wallet common.Address, amount *big.Int) (*types.Receipt, error) {
	calldata, err := pool.PackRefund(wallet, amount)
	if err != nil {
		return nil, fmt.Errorf("pack refund: %w", err)
	}
	return s.sender.Send(ctx, s.contract, calldata)
}
