// Package registry holds the table of payment tokens accepted by the engine
// and the oracle that prices each of them.
package registry

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/types"
)

// TokenRegistry maps payment tokens to price oracles.
//
// It is not safe for concurrent use; the engine serializes every access
// under its own lock.
type TokenRegistry struct {
	oracles map[common.Address]common.Address
}

// New creates a registry seeded with entries. Later entries overwrite earlier
// ones for the same token.
func New(entries ...types.TokenEntry) *TokenRegistry {
	r := &TokenRegistry{
		oracles: make(map[common.Address]common.Address, len(entries)),
	}
	for _, e := range entries {
		r.AddToken(e.Token, e.Oracle)
	}
	return r
}

// AddToken inserts or overwrites the oracle for token. Authorization is the
// caller's responsibility.
func (r *TokenRegistry) AddToken(token, oracle common.Address) {
	r.oracles[token] = oracle
}

// GetOracle returns the oracle registered for token.
func (r *TokenRegistry) GetOracle(token common.Address) (common.Address, bool) {
	oracle, ok := r.oracles[token]
	return oracle, ok
}

// Lookup is GetOracle returning an UNSUPPORTED_TOKEN error for unknown tokens.
func (r *TokenRegistry) Lookup(token common.Address) (common.Address, error) {
	oracle, ok := r.oracles[token]
	if !ok {
		return common.Address{}, types.NewError(types.ErrUnsupportedToken, "token %s is not supported", token.Hex())
	}
	return oracle, nil
}

// IsSupported reports whether token has an oracle.
func (r *TokenRegistry) IsSupported(token common.Address) bool {
	_, ok := r.oracles[token]
	return ok
}

// Entries returns the table sorted by token address.
func (r *TokenRegistry) Entries() []types.TokenEntry {
	entries := make([]types.TokenEntry, 0, len(r.oracles))
	for token, oracle := range r.oracles {
		entries = append(entries, types.TokenEntry{Token: token, Oracle: oracle})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Token.Cmp(entries[j].Token) < 0
	})
	return entries
}

// Len returns the number of registered tokens.
func (r *TokenRegistry) Len() int {
	return len(r.oracles)
}
