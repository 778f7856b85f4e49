package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/vitwit/avatarnft/types"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tokens (
	token  TEXT PRIMARY KEY,
	oracle TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS pricing_state (
	id                  INTEGER PRIMARY KEY CHECK (id = 1),
	issued_count        INTEGER NOT NULL,
	initial_fee         TEXT NOT NULL,
	increment_threshold INTEGER NOT NULL,
	current_fee         TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS items (
	id          INTEGER PRIMARY KEY,
	owner       TEXT NOT NULL,
	metadata    TEXT NOT NULL,
	token_uri   TEXT NOT NULL,
	payment_ref TEXT NOT NULL DEFAULT ''
);
CREATE UNIQUE INDEX IF NOT EXISTS items_payment_ref ON items (payment_ref) WHERE payment_ref <> '';
CREATE TABLE IF NOT EXISTS properties (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

const (
	propertyCollection = "collection"
	propertyWebpage    = "webpage"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, storeError("open sqlite", err)
	}
	// one writer keeps transactions serialized
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, storeError("create schema", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) WriteToken(entry types.TokenEntry) error {
	_, err := s.db.Exec(`
		INSERT INTO tokens (token, oracle) VALUES (?, ?)
		ON CONFLICT(token) DO UPDATE SET oracle = excluded.oracle
	`, entry.Token.Hex(), entry.Oracle.Hex())
	if err != nil {
		return storeError("write token", err)
	}
	return nil
}

func (s *SQLiteStore) ListTokens() ([]types.TokenEntry, error) {
	rows, err := s.db.Query(`SELECT token, oracle FROM tokens ORDER BY token`)
	if err != nil {
		return nil, storeError("query tokens", err)
	}
	defer rows.Close()

	var entries []types.TokenEntry
	for rows.Next() {
		var token, oracle string
		if err := rows.Scan(&token, &oracle); err != nil {
			return nil, storeError("scan token", err)
		}
		entries = append(entries, types.TokenEntry{
			Token:  common.HexToAddress(token),
			Oracle: common.HexToAddress(oracle),
		})
	}
	return entries, rows.Err()
}

func (s *SQLiteStore) WritePricingState(state types.PricingState) error {
	if err := writePricingState(s.db, state); err != nil {
		return storeError("write pricing state", err)
	}
	return nil
}

func (s *SQLiteStore) ReadPricingState() (*types.PricingState, error) {
	row := s.db.QueryRow(`
		SELECT issued_count, initial_fee, increment_threshold, current_fee
		FROM pricing_state WHERE id = 1
	`)

	var (
		issued, threshold int64
		initial, current  string
	)
	err := row.Scan(&issued, &initial, &threshold, &current)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, storeError("read pricing state", err)
	}

	initialFee, ok := new(big.Int).SetString(initial, 10)
	if !ok {
		return nil, types.NewError(types.ErrStoreError, "corrupt initial fee %q", initial)
	}
	currentFee, ok := new(big.Int).SetString(current, 10)
	if !ok {
		return nil, types.NewError(types.ErrStoreError, "corrupt current fee %q", current)
	}
	return &types.PricingState{
		IssuedCount:        uint64(issued),
		InitialFee:         initialFee,
		IncrementThreshold: uint64(threshold),
		CurrentFee:         currentFee,
	}, nil
}

func (s *SQLiteStore) CommitIssuance(item types.ItemRecord, state types.PricingState) error {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return storeError("encode item", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return storeError("begin", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO items (id, owner, metadata, token_uri, payment_ref) VALUES (?, ?, ?, ?, ?)`,
		int64(item.ID), item.Owner.Hex(), string(metadata), item.TokenURI, item.PaymentRef,
	)
	if isConstraintError(err) {
		return types.NewError(types.ErrStoreError, "item %d or its payment %q already exists", item.ID, item.PaymentRef)
	} else if err != nil {
		return storeError("insert item", err)
	}
	if err := writePricingState(tx, state); err != nil {
		return storeError("write pricing state", err)
	}
	if err := tx.Commit(); err != nil {
		return storeError("commit", err)
	}
	return nil
}

func (s *SQLiteStore) ReadItem(id uint64) (*types.ItemRecord, error) {
	row := s.db.QueryRow(`SELECT id, owner, metadata, token_uri, payment_ref FROM items WHERE id = ?`, int64(id))
	item, err := scanItem(row)
	if err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, storeError("read item", err)
	}
	return item, nil
}

func (s *SQLiteStore) ListItems() ([]types.ItemRecord, error) {
	rows, err := s.db.Query(`SELECT id, owner, metadata, token_uri, payment_ref FROM items ORDER BY id`)
	if err != nil {
		return nil, storeError("query items", err)
	}
	defer rows.Close()

	var items []types.ItemRecord
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storeError("scan item", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *SQLiteStore) WriteCollection(doc types.CollectionMetadataDocument) error {
	val, err := json.Marshal(doc)
	if err != nil {
		return storeError("encode collection", err)
	}
	return s.writeProperty(propertyCollection, string(val))
}

func (s *SQLiteStore) ReadCollection() (*types.CollectionMetadataDocument, error) {
	val, found, err := s.readProperty(propertyCollection)
	if err != nil || !found {
		return nil, err
	}
	var doc types.CollectionMetadataDocument
	if err := json.Unmarshal([]byte(val), &doc); err != nil {
		return nil, storeError("decode collection", err)
	}
	return &doc, nil
}

func (s *SQLiteStore) WriteWebpage(uri string) error {
	return s.writeProperty(propertyWebpage, uri)
}

func (s *SQLiteStore) ReadWebpage() (string, error) {
	val, _, err := s.readProperty(propertyWebpage)
	return val, err
}

func (s *SQLiteStore) writeProperty(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO properties (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return storeError("write "+key, err)
	}
	return nil
}

func (s *SQLiteStore) readProperty(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM properties WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	} else if err != nil {
		return "", false, storeError("read "+key, err)
	}
	return value, true, nil
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func writePricingState(db execer, state types.PricingState) error {
	if state.InitialFee == nil || state.CurrentFee == nil {
		return fmt.Errorf("pricing state is missing fees")
	}
	_, err := db.Exec(`
		INSERT INTO pricing_state (id, issued_count, initial_fee, increment_threshold, current_fee)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			issued_count = excluded.issued_count,
			initial_fee = excluded.initial_fee,
			increment_threshold = excluded.increment_threshold,
			current_fee = excluded.current_fee
	`, int64(state.IssuedCount), state.InitialFee.String(), int64(state.IncrementThreshold), state.CurrentFee.String())
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*types.ItemRecord, error) {
	var (
		id                                int64
		owner, meta, tokenURI, paymentRef string
	)
	if err := row.Scan(&id, &owner, &meta, &tokenURI, &paymentRef); err != nil {
		return nil, err
	}
	item := &types.ItemRecord{
		ID:         uint64(id),
		Owner:      common.HexToAddress(owner),
		TokenURI:   tokenURI,
		PaymentRef: paymentRef,
	}
	if err := json.Unmarshal([]byte(meta), &item.Metadata); err != nil {
		return nil, err
	}
	return item, nil
}

func isConstraintError(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
