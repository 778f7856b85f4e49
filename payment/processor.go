// Package payment validates and settles mint payments in native currency or
// in a registered token.
package payment

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/oracle"
	"github.com/vitwit/avatarnft/pricing"
	"github.com/vitwit/avatarnft/registry"
	"github.com/vitwit/avatarnft/types"
)

// TokenCapability pulls approved tokens from a payer. Implementations report
// INSUFFICIENT_ALLOWANCE and INSUFFICIENT_BALANCE as *types.Error.
type TokenCapability interface {
	TransferFrom(ctx context.Context, token, payer, recipient common.Address, amount *big.Int) error
}

// NativeCapability proves native transfers. VerifyPayment returns the value
// transaction tx moved from payer to recipient, and fails PAYMENT_UNVERIFIED
// when tx is unknown, pending, reverted, or between other accounts.
type NativeCapability interface {
	VerifyPayment(ctx context.Context, tx common.Hash, payer, recipient common.Address) (*big.Int, error)
}

// Settlement describes funds that have been moved to the fee recipient.
type Settlement struct {
	Method    Method
	Payer     common.Address
	Recipient common.Address
	// Paid is the amount taken, in units of the method's currency.
	Paid *big.Int
	// Value is Paid expressed in the unit of account.
	Value *big.Int
	// Required is the fee at the time the payment was validated.
	Required *big.Int
	// Excess is Value minus Required. It is retained, never refunded.
	Excess *big.Int
	// Tx is the verified native transfer, zero otherwise.
	Tx common.Hash
}

// Processor validates payments against the current fee and settles them.
type Processor struct {
	pricing   *pricing.Engine
	oracle    *oracle.Adapter
	registry  *registry.TokenRegistry
	tokens    TokenCapability
	native    NativeCapability
	recipient common.Address
}

// NewProcessor creates a processor forwarding every settled payment to
// recipient. tokens and native may be nil; the matching methods then fail
// with CONFIG_ERROR.
func NewProcessor(
	pricingEngine *pricing.Engine,
	adapter *oracle.Adapter,
	reg *registry.TokenRegistry,
	tokens TokenCapability,
	native NativeCapability,
	recipient common.Address,
) *Processor {
	return &Processor{
		pricing:   pricingEngine,
		oracle:    adapter,
		registry:  reg,
		tokens:    tokens,
		native:    native,
		recipient: recipient,
	}
}

// Recipient returns the fee recipient.
func (p *Processor) Recipient() common.Address {
	return p.recipient
}

// Settle dispatches on the method kind.
func (p *Processor) Settle(ctx context.Context, payer common.Address, method Method, amount *big.Int) (*Settlement, error) {
	switch method.Kind {
	case Native:
		if method.Verified() {
			return p.PayNativeTx(ctx, payer, method.Tx)
		}
		return p.PayNative(payer, amount)
	case Token:
		return p.PayToken(ctx, payer, method.Token, amount)
	default:
		return nil, types.NewError(types.ErrInvalidRequest, "unknown payment method %d", method.Kind)
	}
}

// PayNative accepts provided iff it covers the current fee. The whole amount
// goes to the recipient; nothing above the fee is refunded.
func (p *Processor) PayNative(payer common.Address, provided *big.Int) (*Settlement, error) {
	if provided == nil || provided.Sign() < 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "native amount must be a non-negative integer")
	}

	required := p.pricing.CurrentFee()
	if provided.Cmp(required) < 0 {
		return nil, &types.Error{
			Code:    types.ErrInsufficientPayment,
			Message: "not enough native currency sent: required " + required.String() + ", got " + provided.String(),
			Data:    map[string]string{"required": required.String(), "provided": provided.String()},
		}
	}

	return &Settlement{
		Method:    NativeMethod(),
		Payer:     payer,
		Recipient: p.recipient,
		Paid:      new(big.Int).Set(provided),
		Value:     new(big.Int).Set(provided),
		Required:  required,
		Excess:    new(big.Int).Sub(provided, required),
	}, nil
}

// PayNativeTx verifies that tx moved native currency from payer to the
// recipient and accepts the moved value as PayNative would.
func (p *Processor) PayNativeTx(ctx context.Context, payer common.Address, tx common.Hash) (*Settlement, error) {
	if p.native == nil {
		return nil, types.NewError(types.ErrConfigError, "no native payment capability configured")
	}
	value, err := p.native.VerifyPayment(ctx, tx, payer, p.recipient)
	if err != nil {
		return nil, err
	}

	s, err := p.PayNative(payer, value)
	if err != nil {
		return nil, err
	}
	s.Method = NativeTxMethod(tx)
	s.Tx = tx
	return s, nil
}

// PayToken values amount of token through the oracle adapter and, when it
// covers the current fee, pulls amount from payer to the recipient.
// Checks run in order: unsupported token, zero amount, insufficient value.
// Transfer failures are returned unchanged. The transfer itself ignores
// cancellation of ctx: once sent it must be seen through.
func (p *Processor) PayToken(ctx context.Context, payer, token common.Address, amount *big.Int) (*Settlement, error) {
	if !p.registry.IsSupported(token) {
		return nil, types.NewError(types.ErrUnsupportedToken, "token %s is not supported", token.Hex())
	}
	if amount == nil || amount.Sign() == 0 {
		return nil, types.NewError(types.ErrZeroAmount, "amount must be greater than zero")
	}
	if amount.Sign() < 0 {
		return nil, types.NewError(types.ErrInvalidRequest, "amount cannot be negative")
	}

	value, err := p.oracle.Convert(ctx, amount, token)
	if err != nil {
		return nil, err
	}

	required := p.pricing.CurrentFee()
	if value.Cmp(required) < 0 {
		return nil, &types.Error{
			Code:    types.ErrInsufficientPayment,
			Message: "not enough tokens sent: worth " + value.String() + ", required " + required.String(),
			Data: map[string]string{
				"token":    token.Hex(),
				"amount":   amount.String(),
				"value":    value.String(),
				"required": required.String(),
			},
		}
	}

	if p.tokens == nil {
		return nil, types.NewError(types.ErrConfigError, "no token capability configured")
	}
	if err := p.tokens.TransferFrom(context.WithoutCancel(ctx), token, payer, p.recipient, amount); err != nil {
		return nil, err
	}

	return &Settlement{
		Method:    TokenMethod(token),
		Payer:     payer,
		Recipient: p.recipient,
		Paid:      new(big.Int).Set(amount),
		Value:     value,
		Required:  required,
		Excess:    new(big.Int).Sub(value, required),
	}, nil
}
