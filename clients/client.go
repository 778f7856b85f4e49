package clients

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

var (
	_ PriceFeed    = (*EVMClient)(nil)
	_ PriceFeed    = (*MockAggregator)(nil)
	_ TokenLedger  = (*EVMClient)(nil)
	_ TokenLedger  = (*MemoryTokens)(nil)
	_ NativeLedger = (*EVMClient)(nil)
	_ NativeLedger = (*MemoryNative)(nil)
)

// PriceFeed is satisfied by every oracle backend in this package.
type PriceFeed interface {
	GetPrice(ctx context.Context, oracle common.Address) (*big.Int, uint8, error)
}

// TokenLedger is satisfied by every token backend in this package.
type TokenLedger interface {
	TransferFrom(ctx context.Context, token, payer, recipient common.Address, amount *big.Int) error
	Decimals(ctx context.Context, token common.Address) (uint8, error)
	Spender() common.Address
}

// NativeLedger is satisfied by every native currency backend in this package.
type NativeLedger interface {
	VerifyPayment(ctx context.Context, tx common.Hash, payer, recipient common.Address) (*big.Int, error)
}
