// Copyright 2025 Basis Protocol
//
// Package reserve models the scanner-sourced reserve view of spec §3: for
// each issuer's reserve UTXO, the box id, collateral amount, creation
// height, tracker-NFT binding, and the reserve's own AVL+ tree mapping
// NoteKey to BE64(redeemed_so_far). Reserve state is authoritative
// on-chain; this package is the tracker's read-through cache of the last
// observed version, populated by whatever Scanner implementation the
// deployment wires in (out of scope here, per pkg/external).
package reserve

import (
	"errors"

	"github.com/basistracker/core/pkg/authtree"
)

// ErrDigestMismatch signals that a caller's cached view no longer matches
// the digest it was asked to be consistent with (see RedemptionEngine's
// ReserveSnapshotStale handling).
var ErrDigestMismatch = errors.New("reserve: cached tree digest does not match expected digest")

// View is one issuer's reserve state as last observed by the scanner.
type View struct {
	BoxID          []byte
	OwnerPubKey    []byte
	TrackerNFTID   []byte
	CollateralNano uint64
	CreationHeight uint64

	tree *authtree.Tree
}

// NewView wraps an already-populated reserve tree with its box metadata.
func NewView(tree *authtree.Tree, boxID, ownerPubKey, trackerNFTID []byte, collateralNano, creationHeight uint64) *View {
	return &View{
		BoxID:          boxID,
		OwnerPubKey:    ownerPubKey,
		TrackerNFTID:   trackerNFTID,
		CollateralNano: collateralNano,
		CreationHeight: creationHeight,
		tree:           tree,
	}
}

// Empty returns a view over an empty reserve tree, for an issuer whose
// reserve the scanner has not yet observed redeeming anything.
func Empty(boxID, ownerPubKey, trackerNFTID []byte, collateralNano, creationHeight uint64) *View {
	return NewView(authtree.New(), boxID, ownerPubKey, trackerNFTID, collateralNano, creationHeight)
}

// Digest returns the reserve tree's current root.
func (v *View) Digest() authtree.Root { return v.tree.Root() }

// LookupRedeemed reports the amount already redeemed against key, if any,
// alongside a witness proving that value against Digest(). found is false
// on the first redemption for this key: no witness is produced, matching
// spec §4.4's "if absent, omit the lookup proof" rule.
func (v *View) LookupRedeemed(key authtree.Key) (redeemed uint64, proof *authtree.LookupProof, found bool, err error) {
	proof, err = v.tree.LookupProof(key)
	if err == authtree.ErrKeyNotFound {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	var be8 [8]byte
	copy(be8[:], proof.Value[:])
	return be64ToUint64(be8), proof, true, nil
}

// Clone returns an independent copy of v whose tree can be mutated without
// affecting the original — RedemptionEngine performs its insert on a clone
// per spec §4.4 step 5, so a failed or abandoned redemption attempt never
// disturbs the cached view other callers may be reading concurrently.
func (v *View) Clone() *View {
	return &View{
		BoxID:          v.BoxID,
		OwnerPubKey:    v.OwnerPubKey,
		TrackerNFTID:   v.TrackerNFTID,
		CollateralNano: v.CollateralNano,
		CreationHeight: v.CreationHeight,
		tree:           authtree.LoadSnapshot(v.tree.Snapshot()),
	}
}

// ApplyRedemption updates key to BE64(newRedeemed) on v's own tree
// (callers wanting to preserve the pre-update view should Clone first),
// returning the resulting root and a witness proving the new value.
func (v *View) ApplyRedemption(key authtree.Key, newRedeemed uint64) (authtree.Root, *authtree.LookupProof, error) {
	root, err := v.tree.Update(key, authtree.Value(be64FromUint64(newRedeemed)))
	if err != nil {
		return root, nil, err
	}
	ops := v.tree.Prove()
	if len(ops) == 0 {
		// Value unchanged: Update is idempotent and recorded no operation,
		// but the witness is still needed for the caller's proof payload.
		proof, err := v.tree.LookupProof(key)
		return root, proof, err
	}
	return root, ops[len(ops)-1].Witness, nil
}

func be64ToUint64(b [8]byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func be64FromUint64(v uint64) [8]byte {
	var out [8]byte
	for i := 7; i >= 0; i-- {
		out[i] = byte(v)
		v >>= 8
	}
	return out
}
