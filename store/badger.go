package store

import (
	"encoding/binary"
	"encoding/json"

	"github.com/dgraph-io/badger/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/vitwit/avatarnft/types"
)

const (
	prefixTokenEntry  = "AVATARNFT:TOKEN:"
	prefixItemRecord  = "AVATARNFT:ITEM:"
	keyPricingState   = "AVATARNFT:PRICING"
	keyCollectionDoc  = "AVATARNFT:COLLECTION"
	keyCurrentWebpage = "AVATARNFT:WEBPAGE"
)

type BadgerStore struct {
	db *badger.DB
}

func OpenBadger(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, storeError("open badger", err)
	}
	return &BadgerStore{db: db}, nil
}

func (bs *BadgerStore) Close() error {
	return bs.db.Close()
}

func (bs *BadgerStore) WriteToken(entry types.TokenEntry) error {
	return bs.writeJSON(tokenKey(entry.Token), entry)
}

func (bs *BadgerStore) ListTokens() ([]types.TokenEntry, error) {
	var entries []types.TokenEntry
	err := bs.iterate([]byte(prefixTokenEntry), func(val []byte) error {
		var e types.TokenEntry
		if err := json.Unmarshal(val, &e); err != nil {
			return err
		}
		entries = append(entries, e)
		return nil
	})
	return entries, err
}

func (bs *BadgerStore) WritePricingState(state types.PricingState) error {
	return bs.writeJSON([]byte(keyPricingState), state)
}

func (bs *BadgerStore) ReadPricingState() (*types.PricingState, error) {
	var s types.PricingState
	found, err := bs.readJSON([]byte(keyPricingState), &s)
	if err != nil || !found {
		return nil, err
	}
	return &s, nil
}

func (bs *BadgerStore) CommitIssuance(item types.ItemRecord, state types.PricingState) error {
	itemVal, err := json.Marshal(item)
	if err != nil {
		return storeError("encode item", err)
	}
	stateVal, err := json.Marshal(state)
	if err != nil {
		return storeError("encode pricing state", err)
	}

	err = bs.db.Update(func(txn *badger.Txn) error {
		key := itemKey(item.ID)
		_, err := txn.Get(key)
		if err == nil {
			return duplicateItem(item.ID)
		} else if err != badger.ErrKeyNotFound {
			return err
		}
		if err := txn.Set(key, itemVal); err != nil {
			return err
		}
		return txn.Set([]byte(keyPricingState), stateVal)
	})
	if err != nil && !types.HasCode(err, types.ErrStoreError) {
		return storeError("commit issuance", err)
	}
	return err
}

func (bs *BadgerStore) ReadItem(id uint64) (*types.ItemRecord, error) {
	var item types.ItemRecord
	found, err := bs.readJSON(itemKey(id), &item)
	if err != nil || !found {
		return nil, err
	}
	return &item, nil
}

// ListItems returns items in id order; keys hold the id big-endian.
func (bs *BadgerStore) ListItems() ([]types.ItemRecord, error) {
	var items []types.ItemRecord
	err := bs.iterate([]byte(prefixItemRecord), func(val []byte) error {
		var item types.ItemRecord
		if err := json.Unmarshal(val, &item); err != nil {
			return err
		}
		items = append(items, item)
		return nil
	})
	return items, err
}

func (bs *BadgerStore) WriteCollection(doc types.CollectionMetadataDocument) error {
	return bs.writeJSON([]byte(keyCollectionDoc), doc)
}

func (bs *BadgerStore) ReadCollection() (*types.CollectionMetadataDocument, error) {
	var doc types.CollectionMetadataDocument
	found, err := bs.readJSON([]byte(keyCollectionDoc), &doc)
	if err != nil || !found {
		return nil, err
	}
	return &doc, nil
}

func (bs *BadgerStore) WriteWebpage(uri string) error {
	return bs.WriteProperty([]byte(keyCurrentWebpage), []byte(uri))
}

func (bs *BadgerStore) ReadWebpage() (string, error) {
	val, err := bs.ReadProperty([]byte(keyCurrentWebpage))
	return string(val), err
}

func (bs *BadgerStore) WriteProperty(key, val []byte) error {
	err := bs.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, val)
	})
	if err != nil {
		return storeError("write "+string(key), err)
	}
	return nil
}

func (bs *BadgerStore) ReadProperty(key []byte) ([]byte, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	item, err := txn.Get(key)
	if err == badger.ErrKeyNotFound {
		return nil, nil
	} else if err != nil {
		return nil, storeError("read "+string(key), err)
	}
	return item.ValueCopy(nil)
}

func (bs *BadgerStore) writeJSON(key []byte, v interface{}) error {
	val, err := json.Marshal(v)
	if err != nil {
		return storeError("encode "+string(key), err)
	}
	return bs.WriteProperty(key, val)
}

func (bs *BadgerStore) readJSON(key []byte, v interface{}) (bool, error) {
	val, err := bs.ReadProperty(key)
	if err != nil || val == nil {
		return false, err
	}
	if err := json.Unmarshal(val, v); err != nil {
		return false, storeError("decode "+string(key), err)
	}
	return true, nil
}

func (bs *BadgerStore) iterate(prefix []byte, fn func(val []byte) error) error {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		val, err := it.Item().ValueCopy(nil)
		if err != nil {
			return storeError("iterate", err)
		}
		if err := fn(val); err != nil {
			return storeError("decode", err)
		}
	}
	return nil
}

func tokenKey(token common.Address) []byte {
	return append([]byte(prefixTokenEntry), token.Bytes()...)
}

func itemKey(id uint64) []byte {
	key := make([]byte, len(prefixItemRecord)+8)
	copy(key, prefixItemRecord)
	binary.BigEndian.PutUint64(key[len(prefixItemRecord):], id)
	return key
}
