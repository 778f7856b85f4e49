// Package avatarnft is a dynamic-pricing issuance engine for avatar NFTs.
// Mints are paid in native currency or in registered tokens valued through
// price oracles; the fee doubles every IncrementThreshold issuances and every
// item carries a self-contained base64 JSON metadata document.
package avatarnft

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/clients"
	"github.com/vitwit/avatarnft/logger"
	"github.com/vitwit/avatarnft/metadata"
	"github.com/vitwit/avatarnft/metrics"
	"github.com/vitwit/avatarnft/oracle"
	"github.com/vitwit/avatarnft/payment"
	"github.com/vitwit/avatarnft/pricing"
	"github.com/vitwit/avatarnft/registry"
	"github.com/vitwit/avatarnft/store"
	"github.com/vitwit/avatarnft/types"
)

// RegistryCapability is the external item registry. Create assigns owner a
// new, monotonically increasing id.
type RegistryCapability interface {
	Create(ctx context.Context, owner common.Address) (uint64, error)
	OwnerOf(ctx context.Context, id uint64) (common.Address, error)
}

// Capabilities are the external collaborators of the engine.
type Capabilities struct {
	Feeds  oracle.Capability
	Tokens payment.TokenCapability
	// Native proves native transfers for MintWithNativeTx. Optional.
	Native payment.NativeCapability
	// Decimals is optional. When nil and Tokens reports decimals, Tokens is used.
	Decimals oracle.DecimalsReader
	// Registry is optional. When nil an in-memory registry continuing from
	// the issued count is used.
	Registry RegistryCapability
}

// Engine is the minting coordinator. One mutex serializes every mint and
// every administrative write, so the pricing state and the token table are
// never observed mid-update.
type Engine struct {
	mu sync.RWMutex

	config       *types.Config
	admin        common.Address
	feeRecipient common.Address

	registry *registry.TokenRegistry
	pricing  *pricing.Engine
	oracle   *oracle.Adapter
	payments *payment.Processor
	items    RegistryCapability

	arena         map[uint64]types.ItemRecord
	spent         map[common.Hash]uint64
	collection    types.CollectionMetadataDocument
	collectionURI string
	webpage       string

	store   store.Store
	stepper pricing.Stepper
	logger  logger.Logger
	metrics metrics.Recorder
	timeout time.Duration
}

// New creates an engine from config. When a store is configured, state
// persisted by a previous run takes precedence over the configured initial
// fee, threshold and token table.
func New(config *types.Config, caps Capabilities, opts ...Option) (*Engine, error) {
	if config == nil {
		return nil, types.NewError(types.ErrConfigError, "config is required")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if caps.Feeds == nil {
		return nil, types.NewError(types.ErrConfigError, "a price feed capability is required")
	}

	e := &Engine{
		config:       config,
		admin:        config.AdminAddress(),
		feeRecipient: config.FeeRecipientAddress(),
		arena:        make(map[uint64]types.ItemRecord),
		spent:        make(map[common.Hash]uint64),
		stepper:      pricing.Doubling{},
		logger:       logger.NoopLogger{},
		metrics:      metrics.NoopRecorder{},
		timeout:      config.DefaultTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.store == nil {
		e.store = store.NewMemoryStore()
	}

	if err := e.restore(); err != nil {
		return nil, err
	}

	decimals := caps.Decimals
	if decimals == nil {
		if reader, ok := caps.Tokens.(oracle.DecimalsReader); ok {
			decimals = reader
		}
	}
	e.oracle = oracle.NewAdapter(e.registry, caps.Feeds, common.HexToAddress(config.NativeOracle), config.Decimals(), decimals)
	e.payments = payment.NewProcessor(e.pricing, e.oracle, e.registry, caps.Tokens, caps.Native, e.feeRecipient)

	e.items = caps.Registry
	if e.items == nil {
		reg := clients.NewMemoryRegistry(e.pricing.IssuedCount())
		for id, item := range e.arena {
			reg.Assign(id, item.Owner)
		}
		e.items = reg
	}

	e.recordState()
	e.logger.Info("engine ready", map[string]any{
		"name":        config.Name,
		"symbol":      config.Symbol,
		"issued":      e.pricing.IssuedCount(),
		"current_fee": e.pricing.CurrentFee(),
		"tokens":      e.registry.Len(),
	})
	return e, nil
}

// restore loads persisted state, seeding the store on first start.
func (e *Engine) restore() error {
	state, err := e.store.ReadPricingState()
	if err != nil {
		return err
	}

	if state == nil {
		initialFee, err := e.config.InitialFeeWei()
		if err != nil {
			return err
		}
		e.pricing, err = pricing.New(initialFee, e.config.IncrementThreshold, e.stepper)
		if err != nil {
			return err
		}
		if err := e.store.WritePricingState(e.pricing.State()); err != nil {
			return err
		}
	} else {
		e.pricing, err = pricing.Restore(*state, e.stepper)
		if err != nil {
			return err
		}
		if state.IncrementThreshold != e.config.IncrementThreshold {
			e.logger.Warn("persisted increment threshold differs from config", map[string]any{
				"persisted":  state.IncrementThreshold,
				"configured": e.config.IncrementThreshold,
			})
		}
	}

	// stored entries win; configured tokens the store has never seen are persisted
	entries, err := e.store.ListTokens()
	if err != nil {
		return err
	}
	e.registry = registry.New(entries...)
	for _, entry := range e.config.TokenEntries() {
		if e.registry.IsSupported(entry.Token) {
			continue
		}
		if err := e.store.WriteToken(entry); err != nil {
			return err
		}
		e.registry.AddToken(entry.Token, entry.Oracle)
	}

	items, err := e.store.ListItems()
	if err != nil {
		return err
	}
	for _, item := range items {
		e.arena[item.ID] = item
		if item.PaymentRef != "" {
			e.spent[common.HexToHash(item.PaymentRef)] = item.ID
		}
	}

	doc, err := e.store.ReadCollection()
	if err != nil {
		return err
	}
	if doc == nil {
		doc = ptr(metadata.Collection(e.config.Name, "", "", "", e.feeRecipient))
	}
	e.collection = *doc
	e.collectionURI, err = metadata.Encode(e.collection)
	if err != nil {
		return err
	}

	e.webpage, err = e.store.ReadWebpage()
	return err
}

// recordState publishes the pricing gauges. Callers hold mu or own e exclusively.
func (e *Engine) recordState() {
	fee, _ := new(big.Float).SetInt(e.pricing.CurrentFee()).Float64()
	e.metrics.SetGauge(metrics.IssuedCount, float64(e.pricing.IssuedCount()), nil)
	e.metrics.SetGauge(metrics.CurrentFeeWei, fee, nil)
}

// Close releases the store.
func (e *Engine) Close() error {
	return e.store.Close()
}

func ptr[T any](v T) *T {
	return &v
}
