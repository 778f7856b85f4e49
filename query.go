package avatarnft

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/types"
)

func (e *Engine) Name() string   { return e.config.Name }
func (e *Engine) Symbol() string { return e.config.Symbol }

func (e *Engine) Admin() common.Address        { return e.admin }
func (e *Engine) FeeRecipient() common.Address { return e.feeRecipient }

// GetCurrentFee returns the fee of the next mint in native base units.
func (e *Engine) GetCurrentFee() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pricing.CurrentFee()
}

func (e *Engine) GetInitialFee() *big.Int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pricing.InitialFee()
}

func (e *Engine) GetIncrementThreshold() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pricing.IncrementThreshold()
}

// GetIssuedCount returns the number of issued items, which is also the id
// of the next one.
func (e *Engine) GetIssuedCount() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pricing.IssuedCount()
}

// GetPricingState returns a copy of the whole pricing record.
func (e *Engine) GetPricingState() types.PricingState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pricing.State()
}

// GetTokenOracle returns the oracle registered for token.
func (e *Engine) GetTokenOracle(token common.Address) (common.Address, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Lookup(token)
}

// GetTokens returns the token table ordered by token address.
func (e *Engine) GetTokens() []types.TokenEntry {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Entries()
}

func (e *Engine) GetNativeOracle() common.Address {
	return e.oracle.NativeOracle()
}

// GetNativePrice returns the native price normalized to 18 decimals.
func (e *Engine) GetNativePrice(ctx context.Context) (*big.Int, error) {
	return e.oracle.NativePrice(ctx)
}

// GetTokenPrice returns the price of a registered token normalized to 18 decimals.
func (e *Engine) GetTokenPrice(ctx context.Context, token common.Address) (*big.Int, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.oracle.TokenPrice(ctx, token)
}

// GetItemMetadata returns the data URI of item id.
func (e *Engine) GetItemMetadata(id uint64) (string, error) {
	item, err := e.GetItem(id)
	if err != nil {
		return "", err
	}
	return item.TokenURI, nil
}

func (e *Engine) GetItem(id uint64) (*types.ItemRecord, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	item, ok := e.arena[id]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "item %d does not exist", id)
	}
	return &item, nil
}

// GetOwner asks the item registry for the owner of id.
func (e *Engine) GetOwner(ctx context.Context, id uint64) (common.Address, error) {
	return e.items.OwnerOf(ctx, id)
}

// GetCollectionMetadata returns the collection document and its data URI.
func (e *Engine) GetCollectionMetadata() (types.CollectionMetadataDocument, string) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.collection, e.collectionURI
}

func (e *Engine) GetCurrentWebpage() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.webpage
}

// NativeDecimals is the precision of native base units.
func (e *Engine) NativeDecimals() int {
	return e.config.Decimals()
}
