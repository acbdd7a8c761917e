// Copyright 2025 Basis Protocol
//
// KV Adapter for CometBFT Database Integration
// Wraps CometBFT's embeddable dbm.DB so the tracker core's journal and
// note store can run against an embedded LevelDB/BoltDB/memDB without the
// core importing a concrete storage engine.

package kvdb

import (
	dbm "github.com/cometbft/cometbft-db"
)

// KVAdapter wraps a CometBFT dbm.DB and exposes the kv.Store interface.
type KVAdapter struct {
	db dbm.DB
}

// NewKVAdapter creates a new KVAdapter for the given underlying DB.
func NewKVAdapter(db dbm.DB) *KVAdapter {
	return &KVAdapter{db: db}
}

// Open opens (creating if necessary) a named dbm.DB of the given backend
// under dir and wraps it. backend is typically "goleveldb" or "memdb".
func Open(name, backend, dir string) (*KVAdapter, error) {
	db, err := dbm.NewDB(name, dbm.BackendType(backend), dir)
	if err != nil {
		return nil, err
	}
	return NewKVAdapter(db), nil
}

// Get implements kv.Store.Get
func (a *KVAdapter) Get(key []byte) ([]byte, error) {
	if a.db == nil {
		return nil, nil
	}
	v, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	// v may be nil if key not found - that's fine, callers treat nil as "not present".
	return v, nil
}

// Set implements kv.Store.Set
func (a *KVAdapter) Set(key, value []byte) error {
	if a.db == nil {
		return nil
	}
	// Use SetSync so every write is fsync'd before returning - the journal's
	// durability guarantee (see pkg/journal) depends on this.
	return a.db.SetSync(key, value)
}

// Delete implements kv.Store.Delete
func (a *KVAdapter) Delete(key []byte) error {
	if a.db == nil {
		return nil
	}
	return a.db.DeleteSync(key)
}

// Close releases the underlying database handle.
func (a *KVAdapter) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
