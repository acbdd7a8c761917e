// Copyright 2025 Basis Protocol

package ledger

import (
	"fmt"

	"github.com/basistracker/core/pkg/kv"
	"github.com/basistracker/core/pkg/principal"
)

// notePrefix namespaces every note key the way the donor's LedgerStore
// namespaces its system/anchor keys (pkg/ledger/store.go's
// keySysBlockPrefix/keyAnchorTargetPrefix convention).
var notePrefix = []byte("note:")

func noteStoreKey(key principal.NoteKey) []byte {
	return append(append([]byte{}, notePrefix...), key[:]...)
}

// NoteBackend is the storage contract TrackerState depends on for its
// note index: get-or-not-found, and upsert. Declared as an interface so
// an alternate backend (e.g. pkg/database's Postgres-backed NoteStore)
// can stand in for the default kv.Store-backed NoteStore below without
// TrackerState knowing the difference.
type NoteBackend interface {
	Get(key principal.NoteKey) (*Note, error)
	Put(key principal.NoteKey, note *Note) error
}

// NoteStore persists Notes in an abstract kv.Store, keyed by NoteKey.
// Single-writer per spec §5: the coordinator (TrackerState) is the sole
// writer; concurrent reads are safe since kv.Store implementations are
// expected to serve Get concurrently with Set (true of the cometbft-db
// adapter this module ships).
type NoteStore struct {
	kv kv.Store
}

// NewNoteStore wraps an abstract kv.Store as a NoteStore.
func NewNoteStore(store kv.Store) *NoteStore {
	return &NoteStore{kv: store}
}

// Get returns the note for (issuer, recipient)'s derived key, or
// ErrNoteNotFound if none has been written yet.
func (s *NoteStore) Get(key principal.NoteKey) (*Note, error) {
	raw, err := s.kv.Get(noteStoreKey(key))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if len(raw) == 0 {
		return nil, ErrNoteNotFound
	}
	var n Note
	if err := n.UnmarshalJSON(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return &n, nil
}

// Put persists note under its derived key.
func (s *NoteStore) Put(key principal.NoteKey, note *Note) error {
	raw, err := note.MarshalJSON()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	if err := s.kv.Set(noteStoreKey(key), raw); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFailure, err)
	}
	return nil
}
