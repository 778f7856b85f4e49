package payment

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitwit/avatarnft/clients"
	"github.com/vitwit/avatarnft/oracle"
	"github.com/vitwit/avatarnft/pricing"
	"github.com/vitwit/avatarnft/registry"
	"github.com/vitwit/avatarnft/types"
)

var (
	spender      = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	feeRecipient = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")
	payer        = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
	weth         = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	unsupported  = common.HexToAddress("0xdD2FD4581271e230360230F9337D5c0430Bf44C0")
	nativeFeed   = common.HexToAddress("0x5f4eC3Df9cbd43714FE2740f5E3616155c5b8419")
	wethFeed     = common.HexToAddress("0x9326BFA02ADD2366b30bacB125260Af641031331")

	mintFee = big.NewInt(100_000_000_000_000_000)
)

type fixture struct {
	processor *Processor
	tokens    *clients.MemoryTokens
	native    *clients.MemoryNative
	feeds     *clients.MockAggregator
	pricing   *pricing.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	feeds := clients.NewMockAggregator()
	feeds.SetPrice(nativeFeed, big.NewInt(2000_00000000), 8)
	feeds.SetPrice(wethFeed, big.NewInt(2000_00000000), 8)

	tokens := clients.NewMemoryTokens(spender)
	reg := registry.New(types.TokenEntry{Token: weth, Oracle: wethFeed})
	adapter := oracle.NewAdapter(reg, feeds, nativeFeed, 18, tokens)

	engine, err := pricing.New(mintFee, 50, pricing.Doubling{})
	require.NoError(t, err)
	native := clients.NewMemoryNative()

	return &fixture{
		processor: NewProcessor(engine, adapter, reg, tokens, native, feeRecipient),
		tokens:    tokens,
		native:    native,
		feeds:     feeds,
		pricing:   engine,
	}
}

func (f *fixture) fund(amount *big.Int) {
	f.tokens.Mint(weth, payer, amount)
	f.tokens.Approve(weth, payer, amount)
}

func TestPayNative(t *testing.T) {
	f := newFixture(t)

	s, err := f.processor.PayNative(payer, mintFee)
	require.NoError(t, err)
	assert.Equal(t, Native, s.Method.Kind)
	assert.Equal(t, feeRecipient, s.Recipient)
	assert.Equal(t, 0, s.Excess.Sign())

	below := new(big.Int).Sub(mintFee, big.NewInt(1))
	_, err = f.processor.PayNative(payer, below)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrInsufficientPayment))
}

func TestPayNativeRetainsExcess(t *testing.T) {
	f := newFixture(t)

	provided := new(big.Int).Mul(mintFee, big.NewInt(3))
	s, err := f.processor.PayNative(payer, provided)
	require.NoError(t, err)
	assert.Equal(t, provided.String(), s.Paid.String())
	assert.Equal(t, new(big.Int).Mul(mintFee, big.NewInt(2)).String(), s.Excess.String())
}

func TestPayTokenBoundaryIsInclusive(t *testing.T) {
	f := newFixture(t)
	f.fund(mintFee)

	s, err := f.processor.PayToken(context.Background(), payer, weth, mintFee)
	require.NoError(t, err)
	assert.Equal(t, mintFee.String(), s.Value.String())
	assert.Equal(t, mintFee.String(), f.tokens.BalanceOf(weth, feeRecipient).String())
	assert.Equal(t, 0, f.tokens.BalanceOf(weth, payer).Sign())
}

func TestPayTokenInsufficientValue(t *testing.T) {
	f := newFixture(t)
	f.fund(mintFee)

	below := new(big.Int).Sub(mintFee, big.NewInt(1))
	_, err := f.processor.PayToken(context.Background(), payer, weth, below)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrInsufficientPayment))
	assert.Equal(t, mintFee.String(), f.tokens.BalanceOf(weth, payer).String())
}

func TestPayTokenCheckOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// unsupported wins over zero amount
	_, err := f.processor.PayToken(ctx, payer, unsupported, big.NewInt(0))
	assert.True(t, types.HasCode(err, types.ErrUnsupportedToken))

	_, err = f.processor.PayToken(ctx, payer, unsupported, mintFee)
	assert.True(t, types.HasCode(err, types.ErrUnsupportedToken))

	_, err = f.processor.PayToken(ctx, payer, weth, big.NewInt(0))
	assert.True(t, types.HasCode(err, types.ErrZeroAmount))
}

func TestPayTokenPropagatesTransferErrors(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	_, err := f.processor.PayToken(ctx, payer, weth, mintFee)
	assert.True(t, types.HasCode(err, types.ErrInsufficientAllowance))

	f = newFixture(t)
	f.tokens.Approve(weth, payer, mintFee)
	f.tokens.Mint(weth, payer, big.NewInt(10))
	_, err = f.processor.PayToken(ctx, payer, weth, mintFee)
	assert.True(t, types.HasCode(err, types.ErrInsufficientBalance))
	assert.Equal(t, "ERC20: transfer amount exceeds balance", err.Error())
}

func TestPayTokenOracleUnavailable(t *testing.T) {
	f := newFixture(t)
	f.fund(mintFee)
	f.feeds.Remove(nativeFeed)

	_, err := f.processor.PayToken(context.Background(), payer, weth, mintFee)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.ErrOracleUnavailable))
	assert.Equal(t, mintFee.String(), f.tokens.BalanceOf(weth, payer).String())
}

func TestSettleDispatch(t *testing.T) {
	f := newFixture(t)
	f.fund(mintFee)
	ctx := context.Background()

	s, err := f.processor.Settle(ctx, payer, NativeMethod(), mintFee)
	require.NoError(t, err)
	assert.Equal(t, "native", s.Method.String())

	s, err = f.processor.Settle(ctx, payer, TokenMethod(weth), mintFee)
	require.NoError(t, err)
	assert.Equal(t, Token, s.Method.Kind)
	assert.Equal(t, weth, s.Method.Token)

	_, err = f.processor.Settle(ctx, payer, Method{Kind: Kind(7)}, mintFee)
	assert.True(t, types.HasCode(err, types.ErrInvalidRequest))
}

func TestFeeFollowsPricing(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 50; i++ {
		f.pricing.RecordIssuance()
	}

	_, err := f.processor.PayNative(payer, mintFee)
	assert.True(t, types.HasCode(err, types.ErrInsufficientPayment))

	_, err = f.processor.PayNative(payer, new(big.Int).Lsh(mintFee, 1))
	assert.NoError(t, err)
}

func TestPayNativeTx(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.native.Fund(payer, new(big.Int).Mul(mintFee, big.NewInt(2)))

	hash, err := f.native.Send(payer, feeRecipient, mintFee)
	require.NoError(t, err)
	s, err := f.processor.PayNativeTx(ctx, payer, hash)
	require.NoError(t, err)
	assert.Equal(t, hash, s.Tx)
	assert.Equal(t, "native:"+hash.Hex(), s.Method.String())
	assert.Equal(t, mintFee.String(), s.Paid.String())

	// a claimed amount means nothing without a transfer behind it
	_, err = f.processor.Settle(ctx, payer, NativeTxMethod(common.HexToHash("0xdead")), new(big.Int).Lsh(mintFee, 10))
	assert.True(t, types.HasCode(err, types.ErrPaymentUnverified))

	short, err := f.native.Send(payer, feeRecipient, big.NewInt(1))
	require.NoError(t, err)
	_, err = f.processor.PayNativeTx(ctx, payer, short)
	assert.True(t, types.HasCode(err, types.ErrInsufficientPayment))
}

func TestMissingCapabilitiesAreConfigErrors(t *testing.T) {
	f := newFixture(t)
	f.fund(mintFee)
	p := NewProcessor(f.pricing, f.processor.oracle, f.processor.registry, nil, nil, feeRecipient)
	ctx := context.Background()

	_, err := p.PayToken(ctx, payer, weth, mintFee)
	assert.True(t, types.HasCode(err, types.ErrConfigError))

	_, err = p.PayNativeTx(ctx, payer, common.HexToHash("0x01"))
	assert.True(t, types.HasCode(err, types.ErrConfigError))
}

// cancelAwareTokens records whether the context it was given could be cancelled.
type cancelAwareTokens struct {
	cancellable bool
}

func (c *cancelAwareTokens) TransferFrom(ctx context.Context, _, _, _ common.Address, _ *big.Int) error {
	c.cancellable = ctx.Done() != nil
	return nil
}

func TestTransferIgnoresCancellation(t *testing.T) {
	f := newFixture(t)
	tokens := &cancelAwareTokens{}
	p := NewProcessor(f.pricing, f.processor.oracle, f.processor.registry, tokens, nil, feeRecipient)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, err := p.PayToken(ctx, payer, weth, mintFee)
	require.NoError(t, err)
	assert.False(t, tokens.cancellable)
}
