package store

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/types"
)

// MemoryStore keeps everything in process memory.
type MemoryStore struct {
	mu         sync.RWMutex
	tokens     map[common.Address]types.TokenEntry
	pricing    *types.PricingState
	items      map[uint64]types.ItemRecord
	collection *types.CollectionMetadataDocument
	webpage    string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tokens: make(map[common.Address]types.TokenEntry),
		items:  make(map[uint64]types.ItemRecord),
	}
}

func (m *MemoryStore) WriteToken(entry types.TokenEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[entry.Token] = entry
	return nil
}

func (m *MemoryStore) ListTokens() ([]types.TokenEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.TokenEntry, 0, len(m.tokens))
	for _, e := range m.tokens {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Token.Cmp(out[j].Token) < 0
	})
	return out, nil
}

func (m *MemoryStore) WritePricingState(state types.PricingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := state.Copy()
	m.pricing = &s
	return nil
}

func (m *MemoryStore) ReadPricingState() (*types.PricingState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.pricing == nil {
		return nil, nil
	}
	s := m.pricing.Copy()
	return &s, nil
}

func (m *MemoryStore) CommitIssuance(item types.ItemRecord, state types.PricingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[item.ID]; ok {
		return duplicateItem(item.ID)
	}
	m.items[item.ID] = item
	s := state.Copy()
	m.pricing = &s
	return nil
}

func (m *MemoryStore) ReadItem(id uint64) (*types.ItemRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	item, ok := m.items[id]
	if !ok {
		return nil, nil
	}
	return &item, nil
}

func (m *MemoryStore) ListItems() ([]types.ItemRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]types.ItemRecord, 0, len(m.items))
	for _, item := range m.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) WriteCollection(doc types.CollectionMetadataDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collection = &doc
	return nil
}

func (m *MemoryStore) ReadCollection() (*types.CollectionMetadataDocument, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.collection == nil {
		return nil, nil
	}
	doc := *m.collection
	return &doc, nil
}

func (m *MemoryStore) WriteWebpage(uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.webpage = uri
	return nil
}

func (m *MemoryStore) ReadWebpage() (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.webpage, nil
}

func (m *MemoryStore) Close() error {
	return nil
}
