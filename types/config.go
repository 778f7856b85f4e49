package types

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

const (
	DefaultName               = "Avatar NFT Me"
	DefaultSymbol             = "ANME"
	DefaultNativeDecimals     = 18
	DefaultIncrementThreshold = 50
)

// Config contains the engine configuration together with the daemon settings
// that surround it.
type Config struct {
	Name   string `json:"name" mapstructure:"name" validate:"required"`
	Symbol string `json:"symbol" mapstructure:"symbol" validate:"required"`

	// Admin is the only identity allowed on the privileged path.
	Admin string `json:"admin" mapstructure:"admin" validate:"required,eth_addr"`

	// FeeRecipient receives all settled funds. Defaults to Admin.
	FeeRecipient string `json:"feeRecipient,omitempty" mapstructure:"feeRecipient" validate:"omitempty,eth_addr"`

	// InitialFee is a decimal amount of native currency, e.g. "0.01".
	InitialFee         string `json:"initialFee" mapstructure:"initialFee" validate:"required,numeric"`
	NativeDecimals     int    `json:"nativeDecimals,omitempty" mapstructure:"nativeDecimals" validate:"gte=0,lte=36"`
	IncrementThreshold uint64 `json:"incrementThreshold" mapstructure:"incrementThreshold" validate:"required,gt=0"`

	// NativeOracle quotes the native currency in the same reference unit the
	// token oracles use.
	NativeOracle string        `json:"nativeOracle,omitempty" mapstructure:"nativeOracle" validate:"omitempty,eth_addr"`
	Tokens       []TokenConfig `json:"tokens,omitempty" mapstructure:"tokens" validate:"dive"`

	Chain ChainConfig `json:"chain,omitempty" mapstructure:"chain"`
	Store StoreConfig `json:"store,omitempty" mapstructure:"store"`

	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" mapstructure:"defaultTimeout"`
	LogLevel       string        `json:"logLevel,omitempty" mapstructure:"logLevel" validate:"omitempty,oneof=debug info warn error"`
	EnableMetrics  bool          `json:"enableMetrics,omitempty" mapstructure:"enableMetrics"`
	Listen         string        `json:"listen,omitempty" mapstructure:"listen"`
}

// TokenConfig is a token table entry as it appears in configuration.
type TokenConfig struct {
	Token  string `json:"token" mapstructure:"token" validate:"required,eth_addr"`
	Oracle string `json:"oracle" mapstructure:"oracle" validate:"required,eth_addr"`
}

// ChainConfig contains the connection used by the on-chain oracle and token clients.
type ChainConfig struct {
	RPCUrl  string `json:"rpcUrl,omitempty" mapstructure:"rpcUrl" validate:"omitempty,url"`
	ChainID int64  `json:"chainId,omitempty" mapstructure:"chainId" validate:"gte=0"`
	// SignerKey is the hex private key of the account that pulls approved tokens.
	SignerKey string `json:"signerKey,omitempty" mapstructure:"signerKey"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string `json:"driver,omitempty" mapstructure:"driver" validate:"omitempty,oneof=memory badger sqlite"`
	Path   string `json:"path,omitempty" mapstructure:"path"`
}

// DefaultConfig returns a configuration usable for local development once
// Admin is set.
func DefaultConfig() *Config {
	return &Config{
		Name:               DefaultName,
		Symbol:             DefaultSymbol,
		InitialFee:         "0.01",
		NativeDecimals:     DefaultNativeDecimals,
		IncrementThreshold: DefaultIncrementThreshold,
		Store:              StoreConfig{Driver: "memory"},
		DefaultTimeout:     30 * time.Second,
		LogLevel:           "info",
		Listen:             ":8080",
	}
}

// Decimals returns the native decimals, falling back to 18.
func (c *Config) Decimals() int {
	if c.NativeDecimals == 0 {
		return DefaultNativeDecimals
	}
	return c.NativeDecimals
}

// InitialFeeWei converts InitialFee into native base units.
func (c *Config) InitialFeeWei() (*big.Int, error) {
	fee, err := decimal.NewFromString(c.InitialFee)
	if err != nil {
		return nil, NewError(ErrConfigError, "invalid initialFee %q: %v", c.InitialFee, err)
	}
	if fee.IsNegative() {
		return nil, NewError(ErrConfigError, "initialFee cannot be negative")
	}
	scaled := fee.Shift(int32(c.Decimals()))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, NewError(ErrConfigError, "initialFee %s has more than %d decimals", c.InitialFee, c.Decimals())
	}
	return scaled.BigInt(), nil
}

// AdminAddress returns the admin identity.
func (c *Config) AdminAddress() common.Address {
	return common.HexToAddress(c.Admin)
}

// FeeRecipientAddress returns the fee recipient, or the admin when unset.
func (c *Config) FeeRecipientAddress() common.Address {
	if c.FeeRecipient == "" {
		return c.AdminAddress()
	}
	return common.HexToAddress(c.FeeRecipient)
}

// TokenEntries converts the configured token table.
func (c *Config) TokenEntries() []TokenEntry {
	entries := make([]TokenEntry, 0, len(c.Tokens))
	for _, t := range c.Tokens {
		entries = append(entries, TokenEntry{
			Token:  common.HexToAddress(t.Token),
			Oracle: common.HexToAddress(t.Oracle),
		})
	}
	return entries
}

// Validate checks the semantic constraints struct tags cannot express.
func (c *Config) Validate() error {
	if c.Name == "" || c.Symbol == "" {
		return NewError(ErrConfigError, "name and symbol are required")
	}
	if !common.IsHexAddress(c.Admin) {
		return NewError(ErrConfigError, "admin must be a hex address, got %q", c.Admin)
	}
	if c.FeeRecipient != "" && !common.IsHexAddress(c.FeeRecipient) {
		return NewError(ErrConfigError, "feeRecipient must be a hex address, got %q", c.FeeRecipient)
	}
	if c.IncrementThreshold == 0 {
		return NewError(ErrConfigError, "incrementThreshold must be greater than 0")
	}
	if _, err := c.InitialFeeWei(); err != nil {
		return err
	}
	for i, t := range c.Tokens {
		if !common.IsHexAddress(t.Token) || !common.IsHexAddress(t.Oracle) {
			return NewError(ErrConfigError, "tokens[%d]: token and oracle must be hex addresses", i)
		}
	}
	switch c.Store.Driver {
	case "", "memory":
	case "badger", "sqlite":
		if c.Store.Path == "" {
			return NewError(ErrConfigError, "store.path is required for driver %s", c.Store.Driver)
		}
	default:
		return NewError(ErrConfigError, "unknown store driver %q", c.Store.Driver)
	}
	return nil
}
