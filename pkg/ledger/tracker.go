// Copyright 2025 Basis Protocol
//
// TrackerState is the debt ledger coordinator: the single writer spec §5
// describes, owning the AuthTree and the note index and serializing every
// mutating operation through its mutex.
package ledger

import (
	"errors"
	"fmt"
	"sync"

	"github.com/basistracker/core/pkg/authtree"
	"github.com/basistracker/core/pkg/metrics"
	"github.com/basistracker/core/pkg/principal"
	"github.com/basistracker/core/pkg/schnorr"
)

// DefaultSkewSeconds is the forward clock-skew tolerance spec §9 fixes at
// 60 seconds (see DESIGN.md's Open Question resolution).
const DefaultSkewSeconds = 60

// Journal is the append-only operation log TrackerState hands every tree
// mutation to, so it can be replayed on restart. Implemented by
// pkg/journal; declared here (rather than imported) so pkg/ledger has no
// dependency on pkg/journal's durability mechanics.
type Journal interface {
	Append(op authtree.TreeOperation) error
}

// noopJournal discards operations. Useful for tests and for callers that
// accept the durability tradeoff of an in-memory-only tracker.
type noopJournal struct{}

func (noopJournal) Append(authtree.TreeOperation) error { return nil }

// TrackerState is the coordinator described in spec §4.2/§9: the
// AuthTree, the note index, and the tracker's own signing key, all
// process-wide singletons with bounded lifetimes, passed here explicitly
// rather than reached via package globals.
type TrackerState struct {
	mu          sync.Mutex
	tree        *authtree.Tree
	notes       NoteBackend
	journal     Journal
	signer      *schnorr.KeyManager
	skewSeconds uint64
	metrics     *metrics.Registry

	poisonErr error // set on a Consistency-class failure; see Fatal().
}

// SetMetrics attaches a metrics.Registry the coordinator reports
// accepted/rejected notes and tree-generation observations to. Optional:
// a coordinator with no attached registry silently skips instrumentation.
func (t *TrackerState) SetMetrics(m *metrics.Registry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.metrics = m
}

// rejectTag maps one of this package's own sentinel errors to a short
// label for the notesRejected metric, without importing pkg/taxonomy
// (which itself depends on pkg/ledger's sentinels, so the dependency
// would be circular the other way around).
func rejectTag(err error) string {
	switch {
	case errors.Is(err, ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, ErrFutureTimestamp):
		return "future_timestamp"
	case errors.Is(err, ErrNonMonotonicTimestamp):
		return "non_monotonic_timestamp"
	case errors.Is(err, ErrNonMonotonicDebt):
		return "non_monotonic_debt"
	case errors.Is(err, ErrBadIssuerSig):
		return "bad_issuer_sig"
	case errors.Is(err, ErrStoreFailure):
		return "store_failure"
	case errors.Is(err, ErrTreeFailure):
		return "tree_failure"
	default:
		return "other"
	}
}

// NewTrackerState constructs a coordinator over an existing tree (e.g.
// one just recovered by PersistentLog replay), a note store, a journal,
// and the tracker's signing key manager.
func NewTrackerState(tree *authtree.Tree, notes NoteBackend, journal Journal, signer *schnorr.KeyManager) *TrackerState {
	if journal == nil {
		journal = noopJournal{}
	}
	return &TrackerState{
		tree:        tree,
		notes:       notes,
		journal:     journal,
		signer:      signer,
		skewSeconds: DefaultSkewSeconds,
	}
}

// SetSkewSeconds overrides the default forward-clock-skew bound. Spec §9
// requires implementers who change this to document the chosen bound;
// this module's default and override both live here, in one place.
func (t *TrackerState) SetSkewSeconds(s uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.skewSeconds = s
}

// Fatal reports the Consistency-class error that poisoned the
// coordinator, if any. Once set, every later AddNote returns the same
// error without retrying. main.go does not call Fatal: a poisoned
// coordinator does not stop the process, it only rejects further AddNote
// calls until restart.
func (t *TrackerState) Fatal() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.poisonErr
}

// AddNote validates and applies a new IOU, per spec §4.2.
func (t *TrackerState) AddNote(issuerRaw, recipientRaw []byte, newTotal, timestamp, now uint64, issuerSig []byte) (root authtree.Root, trackerSig []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	defer func() {
		if err != nil {
			t.metrics.NoteRejected(rejectTag(err))
		} else {
			t.metrics.NoteAccepted()
		}
	}()

	var zero authtree.Root
	if t.poisonErr != nil {
		return zero, nil, t.poisonErr
	}

	issuer, recipient, noteKey, err := principal.ValidatePair(issuerRaw, recipientRaw)
	if err != nil {
		return zero, nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	if timestamp > now+t.skewSeconds {
		return zero, nil, ErrFutureTimestamp
	}

	existing, err := t.notes.Get(noteKey)
	switch {
	case err == nil:
		if newTotal <= existing.TotalDebt {
			return zero, nil, ErrNonMonotonicDebt
		}
		if timestamp <= existing.Timestamp {
			return zero, nil, ErrNonMonotonicTimestamp
		}
	case err == ErrNoteNotFound:
		// first note for this pair
	default:
		return zero, nil, err
	}

	msg := schnorr.NoteMessage(noteKey, newTotal)
	issuerPub, err := schnorr.PublicKeyFromBytes(issuer[:])
	if err != nil {
		return zero, nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	if !schnorr.Verify(issuerPub, msg, issuerSig) {
		return zero, nil, ErrBadIssuerSig
	}

	var treeKey authtree.Key
	copy(treeKey[:], noteKey[:])
	root, err = t.tree.Update(treeKey, authtree.Value(BE64(newTotal)))
	if err != nil {
		return zero, nil, fmt.Errorf("%w: %v", ErrTreeFailure, err)
	}

	trackerSig, err = t.signer.Sign(msg)
	if err != nil {
		return zero, nil, fmt.Errorf("%w: %v", ErrTreeFailure, err)
	}

	ops := t.tree.Prove()
	for _, op := range ops {
		if err := t.journal.Append(op); err != nil {
			t.poisonErr = fmt.Errorf("%w: journal append failed, tree and store may have diverged: %v", ErrStoreFailure, err)
			return zero, nil, t.poisonErr
		}
	}

	note := &Note{
		Issuer: issuer, Recipient: recipient,
		TotalDebt: newTotal, Timestamp: timestamp,
	}
	copy(note.IssuerSig[:], issuerSig)
	copy(note.TrackerSig[:], trackerSig)
	if err := t.notes.Put(noteKey, note); err != nil {
		t.poisonErr = fmt.Errorf("%w: note persisted tree mutation but not the note record: %v", ErrStoreFailure, err)
		return zero, nil, t.poisonErr
	}

	return root, trackerSig, nil
}

// GetNote is a read-only accessor; it performs no monotonicity checks and
// has no side effects.
func (t *TrackerState) GetNote(issuerRaw, recipientRaw []byte) (*Note, error) {
	_, _, noteKey, err := principal.ValidatePair(issuerRaw, recipientRaw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return t.notes.Get(noteKey)
}

// RedemptionProof returns the current total_debt and a tracker-lookup
// witness against a snapshot of the current root, per spec §4.2.
func (t *TrackerState) RedemptionProof(issuerRaw, recipientRaw []byte) (uint64, *authtree.LookupProof, authtree.Root, error) {
	_, _, noteKey, err := principal.ValidatePair(issuerRaw, recipientRaw)
	if err != nil {
		var zero authtree.Root
		return 0, nil, zero, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	var treeKey authtree.Key
	copy(treeKey[:], noteKey[:])

	root, proof, err := t.tree.RootAndProof(treeKey)
	if err == authtree.ErrKeyNotFound {
		return 0, nil, root, ErrNoteNotFound
	}
	if err != nil {
		return 0, nil, root, fmt.Errorf("%w: %v", ErrTreeFailure, err)
	}

	var be8 [8]byte
	copy(be8[:], proof.Value[:])
	totalDebt := be64ToUint64(be8)
	return totalDebt, proof, root, nil
}

func be64ToUint64(b [8]byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// StateCommitment is the pure accessor of spec §4.2: the tracker's own
// public key and the current root digest.
func (t *TrackerState) StateCommitment() ([]byte, authtree.Root) {
	return t.signer.PublicKey().Bytes(), t.tree.Root()
}

// Sign produces a tracker attestation over msg using the coordinator's own
// signing key. RedemptionEngine uses this for the redemption-message
// signature, outside the AddNote path.
func (t *TrackerState) Sign(msg []byte) ([]byte, error) {
	return t.signer.Sign(msg)
}
