// Copyright 2025 Basis Protocol
//
// Package redemption implements RedemptionEngine, spec §4.4: the
// assembly of the (total_debt lookup proof, reserve lookup and insert
// proofs, tracker signature) payload the on-chain reserve contract
// consumes; the issuer's signature is added by the caller. Structurally grounded on the donor's
// ExecutionCommitmentBuilder (pkg/execution/commitment_builder.go): a
// builder type holding no mutable state of its own, exposing one method
// that assembles a commitment/payload from inputs supplied by its
// caller. None of the donor's Ethereum-specific content (function
// selectors, ABI encoding) carries over — only that structural shape.
package redemption

import (
	"github.com/basistracker/core/pkg/authtree"
	"github.com/basistracker/core/pkg/ledger"
	"github.com/basistracker/core/pkg/principal"
	"github.com/basistracker/core/pkg/reserve"
	"github.com/basistracker/core/pkg/schnorr"
)

// EmergencyBlockThreshold is the 3-day (3 x 720 blocks/day) timeout spec
// §4.4 fixes before emergency redemption becomes eligible.
const EmergencyBlockThreshold = 2160

// Engine assembles redemption payloads against a TrackerState and a
// caller-supplied reserve view. It holds no mutable state of its own:
// each call reads the coordinator's current tree and signs with its key,
// the same "inputs in, commitment out" shape as the donor's
// ExecutionCommitmentBuilder.
type Engine struct {
	tracker *ledger.TrackerState
}

// NewEngine constructs a RedemptionEngine over the given coordinator.
func NewEngine(tracker *ledger.TrackerState) *Engine {
	return &Engine{tracker: tracker}
}

// Payload is the assembled redemption context, per spec §6.2/§6.5. The
// issuer's own signature is not produced here (spec §4.4 step 7: "the
// issuer's signature is obtained externally and embedded by the
// caller") and so has no field in this struct.
type Payload struct {
	TotalDebt       uint64
	AlreadyRedeemed uint64
	NewRedeemed     uint64

	TrackerLookupProof *authtree.LookupProof
	TrackerStateDigest authtree.Root

	// ReserveLookupProof is nil on a first redemption for this pair, per
	// spec §4.4 step 2 ("if absent, omit the lookup proof").
	ReserveLookupProof *authtree.LookupProof
	ReserveInsertProof *authtree.LookupProof
	ReserveRootBefore  authtree.Root
	ReserveRootAfter   authtree.Root

	// TrackerSig is nil when Emergency is true and the tracker signer was
	// unreachable: per spec §4.4, the engine never forges a signature: the
	// caller must supply 65 zero bytes on the wire in that case.
	TrackerSig []byte
	Emergency  bool
}

// Prepare assembles a redemption payload for the given (issuer,
// recipient) pair and requested amount against view, a caller-supplied
// snapshot of the reserve's on-chain AVL+ tree (populated by whatever
// Scanner implementation the deployment wires in; see pkg/external — for
// an issuer the scanner has never observed redeeming anything, pass
// reserve.Empty()). Per spec §4.4 step 2, the reserve *lookup* proof is
// omitted on a first redemption, but an insert proof is always produced.
//
// view is never mutated: ApplyRedemption runs against an internal clone
// so a failed or rejected request never disturbs the caller's cached view
// (see reserve.View.Clone).
func (e *Engine) Prepare(issuerRaw, recipientRaw []byte, amount uint64, emergency bool, view *reserve.View) (*Payload, error) {
	totalDebt, trackerProof, root, err := e.tracker.RedemptionProof(issuerRaw, recipientRaw)
	if err != nil {
		if err == ledger.ErrNoteNotFound {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}

	_, _, noteKey, err := principal.ValidatePair(issuerRaw, recipientRaw)
	if err != nil {
		return nil, err
	}
	var treeKey authtree.Key
	copy(treeKey[:], noteKey[:])

	reserveRootBefore := view.Digest()
	alreadyRedeemed, reserveLookupProof, found, err := view.LookupRedeemed(treeKey)
	if err != nil {
		return nil, err
	}
	if !found {
		alreadyRedeemed = 0
		reserveLookupProof = nil
	}

	if amount == 0 || amount > totalDebt-alreadyRedeemed {
		return nil, ErrInsufficientDebt
	}
	newRedeemed := alreadyRedeemed + amount

	payload := &Payload{
		TotalDebt:          totalDebt,
		AlreadyRedeemed:    alreadyRedeemed,
		NewRedeemed:        newRedeemed,
		TrackerLookupProof: trackerProof,
		TrackerStateDigest: root,
		ReserveLookupProof: reserveLookupProof,
		ReserveRootBefore:  reserveRootBefore,
		Emergency:          emergency,
	}

	clone := view.Clone()
	newRoot, insertProof, err := clone.ApplyRedemption(treeKey, newRedeemed)
	if err != nil {
		return nil, err
	}
	payload.ReserveInsertProof = insertProof
	payload.ReserveRootAfter = newRoot

	msg := redemptionMessage(noteKey, totalDebt, emergency)
	sig, err := e.tracker.Sign(msg)
	if err != nil {
		if !emergency {
			return nil, ErrTrackerUnavailable
		}
		payload.TrackerSig = nil
	} else {
		payload.TrackerSig = sig
	}

	return payload, nil
}

func redemptionMessage(key principal.NoteKey, totalDebt uint64, emergency bool) []byte {
	if emergency {
		return schnorr.EmergencyRedemptionMessage(key, totalDebt)
	}
	return schnorr.NoteMessage(key, totalDebt)
}

// EmergencyEligible reports whether emergency redemption may be
// requested: the tracker commitment has gone unobserved for at least
// EmergencyBlockThreshold blocks since the tracker-NFT's creation
// height, per spec §4.4.
func EmergencyEligible(currentHeight, trackerNFTCreationHeight uint64) bool {
	return currentHeight >= trackerNFTCreationHeight &&
		currentHeight-trackerNFTCreationHeight >= EmergencyBlockThreshold
}

// VerifyReserveDigest checks that view's current digest matches expected
// (the digest the chain currently commits to, as last observed by the
// scanner). A mismatch means a redemption landed between a prepare call
// and submission; the resolution is ErrReserveSnapshotStale, per spec §9's
// open question on reserve-tree snapshot staleness.
func VerifyReserveDigest(view *reserve.View, expected authtree.Root) error {
	if view.Digest() != expected {
		return ErrReserveSnapshotStale
	}
	return nil
}
