// Package store persists the engine state: the token table, the pricing
// state record, the append-only item table, and the collection properties.
package store

import (
	"github.com/vitwit/avatarnft/types"
)

// Store is implemented by every backend. Reads of absent records return a
// nil value and a nil error.
type Store interface {
	WriteToken(entry types.TokenEntry) error
	ListTokens() ([]types.TokenEntry, error)

	WritePricingState(state types.PricingState) error
	ReadPricingState() (*types.PricingState, error)

	// CommitIssuance appends item and replaces the pricing state atomically.
	// Writing an id twice fails.
	CommitIssuance(item types.ItemRecord, state types.PricingState) error
	ReadItem(id uint64) (*types.ItemRecord, error)
	ListItems() ([]types.ItemRecord, error)

	WriteCollection(doc types.CollectionMetadataDocument) error
	ReadCollection() (*types.CollectionMetadataDocument, error)
	WriteWebpage(uri string) error
	ReadWebpage() (string, error)

	Close() error
}

// Open opens the backend selected by config.
func Open(config types.StoreConfig) (Store, error) {
	switch config.Driver {
	case "", "memory":
		return NewMemoryStore(), nil
	case "badger":
		return OpenBadger(config.Path)
	case "sqlite":
		return OpenSQLite(config.Path)
	default:
		return nil, types.NewError(types.ErrConfigError, "unknown store driver %q", config.Driver)
	}
}

func duplicateItem(id uint64) error {
	return types.NewError(types.ErrStoreError, "item %d already exists", id)
}

func storeError(op string, err error) error {
	return &types.Error{
		Code:    types.ErrStoreError,
		Message: op + ": " + err.Error(),
	}
}
