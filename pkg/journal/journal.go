// Copyright 2025 Basis Protocol
//
// Package journal implements PersistentLog: an append-only TreeOperation
// journal plus periodic Checkpoints, used to reconstruct the in-memory
// AuthTree after restart. Grounded on the donor's pkg/ledger/store.go
// KV-key-prefix-plus-JSON-marshal idiom, generalized from block/anchor
// metadata to tree-operation sequencing.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/basistracker/core/pkg/authtree"
	"github.com/basistracker/core/pkg/kv"
)

// Sentinel errors.
var (
	// ErrCorruptJournal is fatal per spec §4.6/§6.6: the replayed root
	// does not match the last operation's recorded root_after.
	ErrCorruptJournal = errors.New("journal: replayed root does not match last recorded root_after")
)

var (
	keyMeta          = []byte("journal:meta")
	opPrefix         = []byte("journal:op:")
	checkpointPrefix = []byte("journal:checkpoint:")
)

func opKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return append(append([]byte{}, opPrefix...), b...)
}

func checkpointKey(id string) []byte {
	return append(append([]byte{}, checkpointPrefix...), []byte(id)...)
}

// meta is the small piece of global bookkeeping the journal needs:
// the next sequence number to assign, and the ordered list of
// checkpoint ids retained (oldest first), capped at l.keepCheckpoints.
type meta struct {
	NextSeq       uint64   `json:"next_seq"`
	CheckpointIDs []string `json:"checkpoint_ids"`
}

// Checkpoint is a snapshot of tree state at a given sequence number, per
// spec §3/§4.6. LastSeqIncluded is -1 when the checkpoint was taken
// before any operation was ever appended ("zero ops included"); 0 is a
// valid, distinct value meaning operation seq 0 itself was included, so
// the two cannot share a sentinel.
type Checkpoint struct {
	ID              string             `json:"id"`
	Timestamp       uint64             `json:"timestamp"`
	TreeRoot        authtree.Root      `json:"tree_root"`
	LastSeqIncluded int64              `json:"last_seq_included"`
	Entries         map[string][8]byte `json:"entries,omitempty"` // hex(key) -> value, present iff a full snapshot was taken
}

// DefaultKeepCheckpoints bounds how many checkpoints compact retains
// unless overridden by SetKeepCheckpoints, per spec §4.6 "keep last K
// checkpoints".
const DefaultKeepCheckpoints = 3

// Log is the PersistentLog: an append-only TreeOperation journal plus
// periodic Checkpoints, backed by an abstract kv.Store.
type Log struct {
	store           kv.Store
	keepCheckpoints int
}

// New wraps store as a Log, retaining DefaultKeepCheckpoints checkpoints
// unless SetKeepCheckpoints overrides it.
func New(store kv.Store) *Log {
	return &Log{store: store, keepCheckpoints: DefaultKeepCheckpoints}
}

// SetKeepCheckpoints overrides how many checkpoints compact retains, per
// cfg.CheckpointKeepCount (spec §4.6). A non-positive value is ignored.
func (l *Log) SetKeepCheckpoints(n int) {
	if n > 0 {
		l.keepCheckpoints = n
	}
}

func (l *Log) loadMeta() (meta, error) {
	raw, err := l.store.Get(keyMeta)
	if err != nil {
		return meta{}, fmt.Errorf("journal: load meta: %w", err)
	}
	if len(raw) == 0 {
		return meta{}, nil
	}
	var m meta
	if err := json.Unmarshal(raw, &m); err != nil {
		return meta{}, fmt.Errorf("journal: unmarshal meta: %w", err)
	}
	return m, nil
}

func (l *Log) saveMeta(m meta) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("journal: marshal meta: %w", err)
	}
	return l.store.Set(keyMeta, raw)
}

// Append assigns op the next sequence number and persists it durably.
// Implements the ledger.Journal interface.
func (l *Log) Append(op authtree.TreeOperation) error {
	m, err := l.loadMeta()
	if err != nil {
		return err
	}
	seq := m.NextSeq
	raw, err := encodeOperation(seq, op)
	if err != nil {
		return fmt.Errorf("journal: encode operation: %w", err)
	}
	if err := l.store.Set(opKey(seq), raw); err != nil {
		return fmt.Errorf("journal: write operation: %w", err)
	}
	m.NextSeq = seq + 1
	return l.saveMeta(m)
}

// Checkpoint records the tree's current state at its current sequence
// number. If snapshot is true, the full key/value set is embedded so
// Recover can skip replaying every operation since the beginning of time;
// otherwise only the root and sequence marker are recorded, and Recover
// falls back to replaying the whole journal from an empty tree.
func (l *Log) Checkpoint(tree *authtree.Tree, timestamp uint64, snapshot bool) (*Checkpoint, error) {
	m, err := l.loadMeta()
	if err != nil {
		return nil, err
	}
	cp := &Checkpoint{
		ID:              uuid.NewString(),
		Timestamp:       timestamp,
		TreeRoot:        tree.Root(),
		LastSeqIncluded: lastSeq(m),
	}
	if snapshot {
		entries := tree.Snapshot()
		cp.Entries = make(map[string][8]byte, len(entries))
		for k, v := range entries {
			cp.Entries[hexKey(k)] = v
		}
	}

	raw, err := json.Marshal(cp)
	if err != nil {
		return nil, fmt.Errorf("journal: marshal checkpoint: %w", err)
	}
	if err := l.store.Set(checkpointKey(cp.ID), raw); err != nil {
		return nil, fmt.Errorf("journal: write checkpoint: %w", err)
	}

	m.CheckpointIDs = append(m.CheckpointIDs, cp.ID)
	if err := l.saveMeta(m); err != nil {
		return nil, err
	}
	if err := l.compact(); err != nil {
		return cp, err
	}
	return cp, nil
}

// compact prunes checkpoints beyond l.keepCheckpoints, per spec §4.6
// "keep last K checkpoints". It never removes operation entries: spec
// marks that archival step as a MAY, and this module keeps every
// operation so Recover can always replay from scratch as a fallback.
func (l *Log) compact() error {
	m, err := l.loadMeta()
	if err != nil {
		return err
	}
	keep := l.keepCheckpoints
	if keep <= 0 {
		keep = DefaultKeepCheckpoints
	}
	for len(m.CheckpointIDs) > keep {
		oldest := m.CheckpointIDs[0]
		if err := l.store.Delete(checkpointKey(oldest)); err != nil {
			return fmt.Errorf("journal: prune checkpoint %s: %w", oldest, err)
		}
		m.CheckpointIDs = m.CheckpointIDs[1:]
	}
	return l.saveMeta(m)
}

// lastSeq returns the sequence number of the last operation included as
// of m, or -1 if no operation has ever been appended. -1 is a true
// sentinel distinct from 0 (which means operation seq 0 itself was
// included), since seq 0 is a valid, real sequence number.
func lastSeq(m meta) int64 {
	if m.NextSeq == 0 {
		return -1
	}
	return int64(m.NextSeq) - 1
}

func hexKey(k authtree.Key) string {
	const hextable = "0123456789abcdef"
	out := make([]byte, len(k)*2)
	for i, b := range k {
		out[i*2] = hextable[b>>4]
		out[i*2+1] = hextable[b&0x0f]
	}
	return string(out)
}
