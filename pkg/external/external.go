// Copyright 2025 Basis Protocol
//
// Package external declares the collaborator interfaces the tracker core
// depends on but never implements: the blockchain Scanner and the
// HostChainClient used to submit commitment transactions.
// Both are deliberately interfaces-only; wiring a concrete Ergo node
// client or scanner process is out of scope for this module, the same
// way the donor's pkg/execution collaborators were split from the
// business logic that calls them.
package external

import (
	"context"

	"github.com/basistracker/core/pkg/authtree"
)

// CommitmentBox describes the current on-chain tracker commitment UTXO as
// the scanner observes it.
type CommitmentBox struct {
	BoxID          []byte
	TrackerPubKey  []byte
	Root           authtree.Root
	TrackerNFTID   []byte
	CreationHeight uint64
}

// ReserveBox describes a reserve UTXO bound to this tracker via its
// tracker-NFT id.
type ReserveBox struct {
	BoxID          []byte
	OwnerPubKey    []byte
	ReserveRoot    authtree.Root
	TrackerNFTID   []byte
	CollateralNano uint64
	CreationHeight uint64
}

// Scanner observes host-chain state on the tracker's behalf: the current
// commitment box and any reserve boxes bound to this tracker. Neither
// RedemptionEngine nor CommitmentPublisher calls it: the engine is handed a
// reserve.View by its caller, and the publisher reads TrackerState directly.
type Scanner interface {
	// LatestCommitment returns the most recently observed tracker
	// commitment box, or an error if none has ever been seen.
	LatestCommitment(ctx context.Context) (*CommitmentBox, error)

	// ReserveFor returns the reserve box of the issuer of the given
	// NoteKey, or an error if no matching reserve is known.
	ReserveFor(ctx context.Context, noteKey [32]byte) (*ReserveBox, error)

	// CurrentHeight returns the scanner's most recently observed block
	// height, used for the emergency-mode 2160-block timeout check.
	CurrentHeight(ctx context.Context) (uint64, error)
}

// UnsignedTx is an opaque, host-chain-specific unsigned transaction built
// by CommitmentPublisher and handed to HostChainClient for submission. Its internal representation belongs to the host-chain
// client implementation, not to this core.
type UnsignedTx struct {
	Payload []byte
}

// HostChainClient submits unsigned transactions built by the core to the
// host chain. Every call carries ctx so the caller (CommitmentPublisher)
// can bound or cancel the request.
type HostChainClient interface {
	Submit(ctx context.Context, tx *UnsignedTx) (txID []byte, err error)
}
