// Copyright 2025 Basis Protocol

package ledger

import (
	"fmt"
	"testing"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/basistracker/core/pkg/authtree"
	"github.com/basistracker/core/pkg/kvdb"
	"github.com/basistracker/core/pkg/principal"
	"github.com/basistracker/core/pkg/schnorr"
)

type testPrincipal struct {
	sk *schnorr.PrivateKey
}

func newTestPrincipal(t *testing.T) testPrincipal {
	t.Helper()
	sk, err := schnorr.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return testPrincipal{sk: sk}
}

func (p testPrincipal) pub() []byte { return p.sk.PublicKey().Bytes() }

// signIOU signs the NoteMessage an issuer owes for (issuer, recipientRaw,
// totalDebt), returning the derived note key and the issuer signature.
func signIOU(t *testing.T, issuer testPrincipal, recipientRaw []byte, totalDebt uint64) (principal.NoteKey, []byte) {
	t.Helper()
	_, _, noteKey, err := principal.ValidatePair(issuer.pub(), recipientRaw)
	if err != nil {
		t.Fatalf("validate pair: %v", err)
	}
	msg := schnorr.NoteMessage(noteKey, totalDebt)
	sig, err := schnorr.Sign(issuer.sk, msg)
	if err != nil {
		t.Fatalf("sign iou: %v", err)
	}
	return noteKey, sig
}

func newTestTracker(t *testing.T) *TrackerState {
	t.Helper()
	store := kvdb.NewKVAdapter(dbm.NewMemDB())
	signerSK, err := schnorr.GenerateKey()
	if err != nil {
		t.Fatalf("generate tracker key: %v", err)
	}
	km := schnorr.NewKeyManagerFromKey(signerSK)
	return NewTrackerState(authtree.New(), NewNoteStore(store), nil, km)
}

func TestAddNoteFirstIOU(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	_, sig := signIOU(t, issuer, recipient.pub(), 1000)

	root, trackerSig, err := ts.AddNote(issuer.pub(), recipient.pub(), 1000, 1700000000, 1700000000, sig)
	if err != nil {
		t.Fatalf("add_note: %v", err)
	}
	if len(trackerSig) != 65 {
		t.Fatalf("tracker sig length = %d", len(trackerSig))
	}

	note, err := ts.GetNote(issuer.pub(), recipient.pub())
	if err != nil {
		t.Fatalf("get_note: %v", err)
	}
	if note.TotalDebt != 1000 {
		t.Fatalf("total_debt = %d, want 1000", note.TotalDebt)
	}

	_, commitRoot := ts.StateCommitment()
	if commitRoot != root {
		t.Fatal("state_commitment root does not match add_note's returned root")
	}
}

func TestAddNoteMonotonicUpdateThenRejectsRegression(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	_, sig1 := signIOU(t, issuer, recipient.pub(), 1000)
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 1000, 1700000000, 1700000000, sig1); err != nil {
		t.Fatalf("first add_note: %v", err)
	}

	_, sig2 := signIOU(t, issuer, recipient.pub(), 1500)
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 1500, 1700000060, 1700000060, sig2); err != nil {
		t.Fatalf("second add_note: %v", err)
	}

	_, sig3 := signIOU(t, issuer, recipient.pub(), 1200)
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 1200, 1700000120, 1700000120, sig3); err != ErrNonMonotonicDebt {
		t.Fatalf("error = %v, want ErrNonMonotonicDebt", err)
	}

	note, err := ts.GetNote(issuer.pub(), recipient.pub())
	if err != nil {
		t.Fatalf("get_note: %v", err)
	}
	if note.TotalDebt != 1500 {
		t.Fatalf("total_debt = %d, want 1500 (rejected update must not apply)", note.TotalDebt)
	}
}

func TestAddNoteRejectsNonMonotonicTimestamp(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	_, sig1 := signIOU(t, issuer, recipient.pub(), 1000)
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 1000, 1700000100, 1700000100, sig1); err != nil {
		t.Fatalf("first add_note: %v", err)
	}

	_, sig2 := signIOU(t, issuer, recipient.pub(), 2000)
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 2000, 1700000050, 1700000100, sig2); err != ErrNonMonotonicTimestamp {
		t.Fatalf("error = %v, want ErrNonMonotonicTimestamp", err)
	}
}

func TestAddNoteRejectsFutureTimestamp(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	_, sig := signIOU(t, issuer, recipient.pub(), 100)
	now := uint64(1700000000)
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 100, now+DefaultSkewSeconds+1, now, sig); err != ErrFutureTimestamp {
		t.Fatalf("error = %v, want ErrFutureTimestamp", err)
	}
}

func TestAddNoteAcceptsTimestampAtSkewBoundary(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	_, sig := signIOU(t, issuer, recipient.pub(), 100)
	now := uint64(1700000000)
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 100, now+DefaultSkewSeconds, now, sig); err != nil {
		t.Fatalf("add_note at skew boundary: %v", err)
	}
}

func TestAddNoteRejectsBadSignature(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	_, sig := signIOU(t, issuer, recipient.pub(), 100)
	sig[0] ^= 0x01
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 100, 1700000000, 1700000000, sig); err != ErrBadIssuerSig {
		t.Fatalf("error = %v, want ErrBadIssuerSig", err)
	}
}

func TestGetNoteNotFound(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	if _, err := ts.GetNote(issuer.pub(), recipient.pub()); err != ErrNoteNotFound {
		t.Fatalf("error = %v, want ErrNoteNotFound", err)
	}
}

func TestRedemptionProofRoundTrips(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	_, sig := signIOU(t, issuer, recipient.pub(), 1500)
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 1500, 1700000000, 1700000000, sig); err != nil {
		t.Fatalf("add_note: %v", err)
	}

	total, proof, root, err := ts.RedemptionProof(issuer.pub(), recipient.pub())
	if err != nil {
		t.Fatalf("redemption_proof: %v", err)
	}
	if total != 1500 {
		t.Fatalf("total_debt = %d, want 1500", total)
	}
	if !authtree.VerifyLookup(root, proof) {
		t.Fatal("tracker lookup proof did not verify against the reported root")
	}
}

func TestRedemptionProofNotFound(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	if _, _, _, err := ts.RedemptionProof(issuer.pub(), recipient.pub()); err != ErrNoteNotFound {
		t.Fatalf("error = %v, want ErrNoteNotFound", err)
	}
}

// TestRedemptionProofConsistentUnderConcurrentAddNote drives AddNote and
// RedemptionProof concurrently against the same pair and asserts that
// every returned (total_debt, proof, root) triple always verifies
// together, per spec §5: "the returned (total_debt, proof) corresponds
// to exactly one serialized tree state". A RedemptionProof built from
// Root() and LookupProof() as two separate lock/unlock cycles could
// observe an intervening AddNote between the two and return a proof
// that does not verify against the reported root.
func TestRedemptionProofConsistentUnderConcurrentAddNote(t *testing.T) {
	ts := newTestTracker(t)
	issuer := newTestPrincipal(t)
	recipient := newTestPrincipal(t)

	_, sig := signIOU(t, issuer, recipient.pub(), 1)
	if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), 1, 1700000000, 1700000000, sig); err != nil {
		t.Fatalf("seed add_note: %v", err)
	}

	const rounds = 200
	done := make(chan error, 1)
	go func() {
		for i := uint64(2); i <= rounds+1; i++ {
			_, sig := signIOU(t, issuer, recipient.pub(), i)
			if _, _, err := ts.AddNote(issuer.pub(), recipient.pub(), i, 1700000000+i, 1700000000+i, sig); err != nil {
				done <- fmt.Errorf("add_note %d: %w", i, err)
				return
			}
		}
		done <- nil
	}()

	for i := 0; i < rounds; i++ {
		total, proof, root, err := ts.RedemptionProof(issuer.pub(), recipient.pub())
		if err != nil {
			t.Fatalf("redemption_proof: %v", err)
		}
		if !authtree.VerifyLookup(root, proof) {
			t.Fatalf("proof did not verify against its own returned root at total_debt=%d", total)
		}
	}

	if err := <-done; err != nil {
		t.Fatal(err)
	}
}
