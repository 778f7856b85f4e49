package clients

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/types"
)

// GetPrice reads decimals() and latestRoundData() from a Chainlink aggregator.
func (e *EVMClient) GetPrice(ctx context.Context, oracle common.Address) (*big.Int, uint8, error) {
	feed := e.bound(oracle, e.aggregatorABI)
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := feed.Call(opts, &out, "decimals"); err != nil {
		return nil, 0, oracleError(oracle, err)
	}
	decimals := *abi.ConvertType(out[0], new(uint8)).(*uint8)

	out = nil
	if err := feed.Call(opts, &out, "latestRoundData"); err != nil {
		return nil, 0, oracleError(oracle, err)
	}
	if len(out) < 2 {
		return nil, 0, types.NewError(types.ErrOracleUnavailable, "price feed %s returned %d values", oracle.Hex(), len(out))
	}
	answer := *abi.ConvertType(out[1], new(*big.Int)).(**big.Int)

	return answer, decimals, nil
}

func oracleError(oracle common.Address, err error) error {
	return &types.Error{
		Code:    types.ErrOracleUnavailable,
		Message: fmt.Sprintf("price feed %s: %v", oracle.Hex(), err),
	}
}
