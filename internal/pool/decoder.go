package pool

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"mepflip/internal/model"
)

// Decoder decodes BetResolved logs emitted by the pool contract.
type Decoder struct {
	poolABI abi.ABI
	topic0  common.Hash
}

// NewDecoder builds a BetResolved decoder.
func NewDecoder() (*Decoder, error) {
	parsed, err := PoolABI()
	if err != nil {
		return nil, err
	}

	return &Decoder{
		poolABI: parsed,
		topic0:  parsed.Events["BetResolved"].ID,
	}, nil
}

// CanDecode checks if the topic0 belongs to the BetResolved event.
func (d *Decoder) CanDecode(topic0 common.Hash) bool {
	return topic0 == d.topic0
}

// Decode converts a raw chain log into a Resolution.
func (d *Decoder) Decode(log types.Log) (*model.Resolution, error) {
	event := d.poolABI.Events["BetResolved"]

	if len(log.Topics) != 2 {
		return nil, fmt.Errorf("expected 2 topics, got %d", len(log.Topics))
	}
	if log.Topics[0] != d.topic0 {
		return nil, fmt.Errorf("unsupported topic0: %s", log.Topics[0].Hex())
	}

	var indexed struct {
		User common.Address
	}
	if err := abi.ParseTopics(&indexed, indexedArguments(event.Inputs), log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}

	values, err := event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return nil, fmt.Errorf("unpack BetResolved: %w", err)
	}
	if len(values) != 3 {
		return nil, fmt.Errorf("unexpected BetResolved values: %d", len(values))
	}

	amount, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unsupported amount type %T", values[0])
	}
	if !amount.IsInt64() {
		return nil, fmt.Errorf("amount does not fit in int64: %s", amount)
	}

	choiceStr, ok := values[1].(string)
	if !ok {
		return nil, fmt.Errorf("unsupported choice type %T", values[1])
	}
	choice, err := model.ParseSide(strings.ToLower(choiceStr))
	if err != nil {
		return nil, err
	}

	resultStr, ok := values[2].(string)
	if !ok {
		return nil, fmt.Errorf("unsupported result type %T", values[2])
	}
	result := model.Outcome(strings.ToLower(resultStr))
	if !result.Valid() {
		return nil, fmt.Errorf("invalid result: %s", resultStr)
	}

	return &model.Resolution{
		Wallet:      indexed.User.Hex(),
		Amount:      amount.Int64(),
		Choice:      choice,
		Result:      result,
		TxHash:      log.TxHash.Hex(),
		LogIndex:    uint64(log.Index),
		BlockNumber: log.BlockNumber,
	}, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
