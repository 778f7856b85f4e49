// Package oracle normalizes oracle prices and converts token amounts into
// native base units using integer arithmetic only.
package oracle

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/registry"
	"github.com/vitwit/avatarnft/types"
	"github.com/vitwit/avatarnft/utils"
)

// PriceDecimals is the precision every oracle price is normalized to.
const PriceDecimals = 18

// Capability is an external price feed. Price and decimals describe the
// asset's value in a reference unit shared by all feeds.
type Capability interface {
	GetPrice(ctx context.Context, oracle common.Address) (*big.Int, uint8, error)
}

// DecimalsReader reports the decimals of a fungible token. Token capabilities
// may implement it; conversions then account for the token's precision.
type DecimalsReader interface {
	Decimals(ctx context.Context, token common.Address) (uint8, error)
}

// Adapter converts token amounts into the unit of account.
type Adapter struct {
	registry       *registry.TokenRegistry
	feeds          Capability
	decimals       DecimalsReader
	nativeOracle   common.Address
	nativeDecimals int
}

// NewAdapter creates an adapter. decimals may be nil, in which case every
// token is assumed to use nativeDecimals.
func NewAdapter(
	reg *registry.TokenRegistry,
	feeds Capability,
	nativeOracle common.Address,
	nativeDecimals int,
	decimals DecimalsReader,
) *Adapter {
	return &Adapter{
		registry:       reg,
		feeds:          feeds,
		decimals:       decimals,
		nativeOracle:   nativeOracle,
		nativeDecimals: nativeDecimals,
	}
}

// NativeOracle returns the feed used for the native currency.
func (a *Adapter) NativeOracle() common.Address {
	return a.nativeOracle
}

// Price fetches the price reported by oracle, normalized to PriceDecimals.
func (a *Adapter) Price(ctx context.Context, oracle common.Address) (*big.Int, error) {
	price, decimals, err := a.feeds.GetPrice(ctx, oracle)
	if err != nil {
		if types.HasCode(err, types.ErrOracleUnavailable) {
			return nil, err
		}
		return nil, &types.Error{
			Code:    types.ErrOracleUnavailable,
			Message: "price feed " + oracle.Hex() + " failed: " + err.Error(),
		}
	}
	if price == nil || price.Sign() <= 0 {
		return nil, types.NewError(types.ErrOracleUnavailable, "price feed %s reported a non-positive price", oracle.Hex())
	}
	return utils.ConvertDecimals(price, int(decimals), PriceDecimals), nil
}

// NativePrice returns the normalized native currency price.
func (a *Adapter) NativePrice(ctx context.Context) (*big.Int, error) {
	if a.nativeOracle == (common.Address{}) {
		return nil, types.NewError(types.ErrOracleUnavailable, "no native price feed configured")
	}
	return a.Price(ctx, a.nativeOracle)
}

// TokenPrice returns the normalized price of a registered token.
func (a *Adapter) TokenPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	oracle, err := a.registry.Lookup(token)
	if err != nil {
		return nil, err
	}
	return a.Price(ctx, oracle)
}

// Convert values amount of token in native base units:
// amount * price(token) / price(native), rescaled across decimals.
// The oracle is resolved on every call so registry updates apply immediately.
func (a *Adapter) Convert(ctx context.Context, amount *big.Int, token common.Address) (*big.Int, error) {
	tokenPrice, err := a.TokenPrice(ctx, token)
	if err != nil {
		return nil, err
	}
	nativePrice, err := a.NativePrice(ctx)
	if err != nil {
		return nil, err
	}

	tokenDecimals := a.nativeDecimals
	if a.decimals != nil {
		d, err := a.decimals.Decimals(ctx, token)
		if err != nil {
			return nil, types.NewError(types.ErrOracleUnavailable, "reading decimals of %s: %v", token.Hex(), err)
		}
		tokenDecimals = int(d)
	}

	return ConvertAmount(amount, tokenPrice, nativePrice, tokenDecimals, a.nativeDecimals), nil
}

// ConvertAmount is the pure conversion used by Convert. Both prices must share
// the same precision. The single division happens last, so the result is the
// floor of the exact value.
func ConvertAmount(amount, tokenPrice, nativePrice *big.Int, tokenDecimals, nativeDecimals int) *big.Int {
	num := new(big.Int).Mul(amount, tokenPrice)
	den := new(big.Int).Set(nativePrice)

	switch {
	case nativeDecimals > tokenDecimals:
		num.Mul(num, utils.Pow10(nativeDecimals-tokenDecimals))
	case tokenDecimals > nativeDecimals:
		den.Mul(den, utils.Pow10(tokenDecimals-nativeDecimals))
	}

	return num.Quo(num, den)
}
