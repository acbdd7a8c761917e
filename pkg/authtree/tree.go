// Copyright 2025 Basis Protocol
//
// Package authtree implements the authenticated AVL+ dictionary mapping
// NoteKey -> BE64(total_debt) whose root digest is posted on-chain and
// whose lookup proofs gate redemption. Node hashing follows the
// mutex-guarded-struct-with-Root()-accessor shape the donor uses for its
// transaction Merkle tree, generalized from a flat binary tree to a
// key/value authenticated dictionary.
package authtree

import (
	"bytes"
	"crypto/subtle"
	"errors"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"
)

// KeySize and ValueSize are fixed per spec: 32-byte tree keys, 8-byte
// values, keeping proofs compact.
const (
	KeySize   = 32
	ValueSize = 8
	RootSize  = 33
)

// Sentinel errors. InternalCorruption is fatal: it indicates a tree
// invariant was violated and triggers recovery at the coordinator level.
var (
	ErrKeyLengthMismatch   = errors.New("authtree: key must be 32 bytes")
	ErrValueLengthMismatch = errors.New("authtree: value must be 8 bytes")
	ErrKeyExists           = errors.New("authtree: key already present")
	ErrKeyNotFound         = errors.New("authtree: key not found")
	ErrInternalCorruption  = errors.New("authtree: internal tree invariant violated")
)

// Key is a fixed-length tree key (always a NoteKey in this module).
type Key [KeySize]byte

// Value is a fixed-length tree value (always BE64(total_debt) in this module).
type Value [ValueSize]byte

// Root is the 33-byte digest: 32-byte node hash plus 1-byte tree height.
type Root [RootSize]byte

// Bytes returns the 33-byte wire form.
func (r Root) Bytes() []byte { return r[:] }

// emptyNodeHash is the deterministic digest of the empty tree, computed
// once at package initialization, per spec §3 "not all-zero".
var emptyNodeHash = blake2b.Sum256([]byte("basistracker:authtree:empty-v1"))

// Position indicates which side of a branch a proof step's sibling sits
// on, mirroring the donor Merkle tree's Position/ProofNode shape.
type Position int

const (
	Left Position = iota
	Right
)

// node is the in-memory representation of one tree node. Internal nodes
// navigate on sepKey, the maximum key present in their left subtree.
type node struct {
	isLeaf bool

	key         Key
	value       Value
	hasNext     bool
	nextLeafKey Key

	left, right *node
	sepKey      Key

	height uint8
	hash   [32]byte
}

func newLeaf(key Key, value Value, next *Key) *node {
	n := &node{isLeaf: true, key: key, value: value}
	if next != nil {
		n.hasNext = true
		n.nextLeafKey = *next
	}
	n.hash = hashLeaf(key, value, next)
	return n
}

func newInternal(left, right *node, sepKey Key) *node {
	h := maxHeight(left.height, right.height) + 1
	return &node{
		left: left, right: right, sepKey: sepKey,
		height: h,
		hash:   hashInternal(h, left.hash, right.hash),
	}
}

func maxHeight(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

func hashLeaf(key Key, value Value, next *Key) [32]byte {
	buf := make([]byte, 0, 1+KeySize+ValueSize+KeySize)
	buf = append(buf, 0x00)
	buf = append(buf, key[:]...)
	buf = append(buf, value[:]...)
	if next != nil {
		buf = append(buf, next[:]...)
	} else {
		buf = append(buf, make([]byte, KeySize)...)
	}
	return blake2b.Sum256(buf)
}

func hashInternal(height uint8, left, right [32]byte) [32]byte {
	buf := make([]byte, 0, 2+32+32)
	buf = append(buf, 0x01, height)
	buf = append(buf, left[:]...)
	buf = append(buf, right[:]...)
	return blake2b.Sum256(buf)
}

// OpKind distinguishes a fresh key (Insert) from an existing key being
// replaced (Update) in a recorded TreeOperation.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
)

// TreeOperation is one journaled mutation, per spec §3 "operation journal".
type TreeOperation struct {
	Kind       OpKind
	Key        Key
	OldValue   *Value
	NewValue   Value
	RootBefore Root
	RootAfter  Root
	Witness    *LookupProof
}

// Tree is the authenticated AVL+ dictionary. It lives entirely in memory
// (per spec §9's resolver discussion — see resolver.go); durability is
// the caller's PersistentLog, not this type.
//
// The tree rebuilds a canonical balanced shape from the full sorted key
// set whenever it observes a mutation, rather than performing local
// per-insert rotations. This is a deliberate departure from a textbook
// incremental AVL implementation: genuine per-insert rotation does not
// guarantee that two trees holding the same key/value set converge on
// the same root regardless of insertion order (a four-key example
// already produces diverging shapes), which would violate the
// order-independence property §8 requires root() to satisfy. Rebuilding
// from the sorted key set is, by construction, a pure function of tree
// contents and nothing else, so that property holds exactly at the cost
// of O(n log n) work per mutation instead of O(log n). For the write
// volumes a two-party debt ledger sees this is an acceptable trade.
type Tree struct {
	mu      sync.Mutex
	entries map[Key]Value
	root    *node
	digest  Root
	dirty   bool
	pending []TreeOperation
}

// New returns an empty tree.
func New() *Tree {
	t := &Tree{entries: make(map[Key]Value)}
	t.rebuildLocked()
	return t
}

func (t *Tree) rebuildLocked() {
	if len(t.entries) == 0 {
		t.root = nil
		var r Root
		copy(r[:32], emptyNodeHash[:])
		t.digest = r
		t.dirty = false
		return
	}

	keys := make([]Key, 0, len(t.entries))
	for k := range t.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return bytes.Compare(keys[i][:], keys[j][:]) < 0 })

	leaves := make([]*node, len(keys))
	for i, k := range keys {
		var next *Key
		if i+1 < len(keys) {
			nk := keys[i+1]
			next = &nk
		}
		leaves[i] = newLeaf(k, t.entries[k], next)
	}

	root := buildBalanced(leaves)
	t.root = root
	var r Root
	copy(r[:32], root.hash[:])
	r[32] = root.height
	t.digest = r
	t.dirty = false
}

// buildBalanced recursively halves the sorted leaf sequence, producing a
// shape that depends only on the sorted order of keys present.
func buildBalanced(leaves []*node) *node {
	if len(leaves) == 1 {
		return leaves[0]
	}
	mid := (len(leaves) + 1) / 2
	left := buildBalanced(leaves[:mid])
	right := buildBalanced(leaves[mid:])
	return newInternal(left, right, leaves[mid-1].key)
}

func (t *Tree) ensureFreshLocked() {
	if t.dirty {
		t.rebuildLocked()
	}
}

// Root returns the current 33-byte root digest.
func (t *Tree) Root() Root {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureFreshLocked()
	return t.digest
}

// Lookup returns the value stored for key, if any. It does not require a
// fresh rebuild since it reads directly from the content map.
func (t *Tree) Lookup(key Key) (Value, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.entries[key]
	return v, ok
}

// Insert adds a brand-new key. It fails with ErrKeyExists if key is
// already present; callers needing create-or-replace semantics want
// Update instead.
func (t *Tree) Insert(key Key, value Value) (Root, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[key]; exists {
		return t.digest, ErrKeyExists
	}
	return t.mutateLocked(key, value, OpInsert)
}

// Update creates or replaces the value at key. Replaying the same (key,
// value) pair is idempotent: the root is unchanged and no operation is
// recorded.
func (t *Tree) Update(key Key, value Value) (Root, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	old, exists := t.entries[key]
	if exists && old == value {
		t.ensureFreshLocked()
		return t.digest, nil
	}
	kind := OpUpdate
	if !exists {
		kind = OpInsert
	}
	return t.mutateLocked(key, value, kind)
}

func (t *Tree) mutateLocked(key Key, value Value, kind OpKind) (Root, error) {
	t.ensureFreshLocked()
	before := t.digest
	var oldPtr *Value
	if old, exists := t.entries[key]; exists {
		oldCopy := old
		oldPtr = &oldCopy
	}

	t.entries[key] = value
	t.dirty = true
	t.rebuildLocked()
	after := t.digest

	witness, err := t.lookupProofLocked(key)
	if err != nil {
		return after, fmt.Errorf("%w: %v", ErrInternalCorruption, err)
	}

	t.pending = append(t.pending, TreeOperation{
		Kind: kind, Key: key, OldValue: oldPtr, NewValue: value,
		RootBefore: before, RootAfter: after, Witness: witness,
	})
	return after, nil
}

// LookupProof emits a witness that, combined with Root(), lets a verifier
// confirm key maps to its current value without holding the full tree.
func (t *Tree) LookupProof(key Key) (*LookupProof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureFreshLocked()
	return t.lookupProofLocked(key)
}

// RootAndProof returns the current root digest and a lookup witness for
// key in a single lock/unlock cycle, so both reflect exactly one tree
// state. Callers that need a (root, proof) pair consistent with each
// other (e.g. TrackerState.RedemptionProof, per spec §5's "the returned
// (total_debt, proof) corresponds to exactly one serialized tree state")
// must use this instead of separate Root()/LookupProof() calls, which
// can observe a mutation landing between the two.
func (t *Tree) RootAndProof(key Key) (Root, *LookupProof, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureFreshLocked()
	proof, err := t.lookupProofLocked(key)
	return t.digest, proof, err
}

func (t *Tree) lookupProofLocked(key Key) (*LookupProof, error) {
	value, ok := t.entries[key]
	if !ok {
		return nil, ErrKeyNotFound
	}

	var steps []ProofStep
	n := t.root
	for !n.isLeaf {
		if bytes.Compare(key[:], n.sepKey[:]) <= 0 {
			steps = append(steps, ProofStep{SiblingHash: n.right.hash, SiblingHeight: n.right.height, Position: Right})
			n = n.left
		} else {
			steps = append(steps, ProofStep{SiblingHash: n.left.hash, SiblingHeight: n.left.height, Position: Left})
			n = n.right
		}
	}
	if n.key != key {
		return nil, fmt.Errorf("navigation landed on the wrong leaf for key %x", key)
	}

	proof := &LookupProof{Key: key, Value: value, Path: steps}
	if n.hasNext {
		proof.HasNext = true
		proof.NextLeafKey = n.nextLeafKey
	}
	return proof, nil
}

// Prove returns every TreeOperation accumulated since the last call to
// Prove, clearing the pending batch. Each operation carries a witness
// proving its (key, new value) pair against RootAfter, so a verifier
// walking the batch in order can check the full sequence of assertions
// against a chain of before/after roots.
func (t *Tree) Prove() []TreeOperation {
	t.mu.Lock()
	defer t.mu.Unlock()
	ops := t.pending
	t.pending = nil
	return ops
}

// Size returns the number of keys currently stored.
func (t *Tree) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Snapshot returns a defensive copy of every (key, value) pair, for
// checkpointing. The copy does not share the live entries map.
func (t *Tree) Snapshot() map[Key]Value {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Key]Value, len(t.entries))
	for k, v := range t.entries {
		out[k] = v
	}
	return out
}

// LoadSnapshot replaces the tree's contents wholesale, discarding any
// pending operations. Used by PersistentLog checkpoint recovery.
func LoadSnapshot(entries map[Key]Value) *Tree {
	t := &Tree{entries: make(map[Key]Value, len(entries))}
	for k, v := range entries {
		t.entries[k] = v
	}
	t.rebuildLocked()
	return t
}
