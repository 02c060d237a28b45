package pool

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"mepflip/internal/model"
)

// PackDeposit packs calldata for pool.deposit(amount).
func PackDeposit(amount *big.Int) ([]byte, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return pack(parsed, "deposit", amount)
}

// PackResolvePool packs calldata for pool.resolvePool(player, amount, choice).
func PackResolvePool(player common.Address, amount *big.Int, choice model.Side) ([]byte, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return pack(parsed, "resolvePool", player, amount, string(choice))
}

// PackRefund packs calldata for pool.refund(player, amount).
func PackRefund(player common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}
	return pack(parsed, "refund", player, amount)
}

// PackApprove packs calldata for token.approve(spender, amount).
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	return pack(parsed, "approve", spender, amount)
}

// PackBalanceOf packs calldata for token.balanceOf(account).
func PackBalanceOf(account common.Address) ([]byte, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	return pack(parsed, "balanceOf", account)
}

// UnpackBalanceOf decodes the balanceOf return value.
func UnpackBalanceOf(data []byte) (*big.Int, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	values, err := parsed.Unpack("balanceOf", data)
	if err != nil {
		return nil, fmt.Errorf("unpack balanceOf: %w", err)
	}
	balance, err := asBigInt(values[0])
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	return balance, nil
}

// PackDecimals packs calldata for token.decimals().
func PackDecimals() ([]byte, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return nil, err
	}
	return pack(parsed, "decimals")
}

// UnpackDecimals decodes the decimals return value.
func UnpackDecimals(data []byte) (uint8, error) {
	parsed, err := ERC20ABI()
	if err != nil {
		return 0, err
	}
	values, err := parsed.Unpack("decimals", data)
	if err != nil {
		return 0, fmt.Errorf("unpack decimals: %w", err)
	}
	decimals, err := asUint8(values[0])
	if err != nil {
		return 0, fmt.Errorf("decimals: %w", err)
	}
	return decimals, nil
}

// BetResolvedTopic returns the topic0 hash of the BetResolved event.
func BetResolvedTopic() (common.Hash, error) {
	parsed, err := PoolABI()
	if err != nil {
		return common.Hash{}, err
	}
	return parsed.Events["BetResolved"].ID, nil
}

func pack(parsed abi.ABI, method string, args ...interface{}) ([]byte, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	return data, nil
}

func asBigInt(value interface{}) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return new(big.Int).Set(v), nil
	case big.Int:
		return new(big.Int).Set(&v), nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	case int64:
		return big.NewInt(v), nil
	default:
		return nil, fmt.Errorf("unsupported int type %T", value)
	}
}

func asUint8(value interface{}) (uint8, error) {
	switch v := value.(type) {
	case uint8:
		return v, nil
	case *big.Int:
		return uint8(v.Uint64()), nil
	default:
		return 0, fmt.Errorf("unsupported uint8 type %T", value)
	}
}
