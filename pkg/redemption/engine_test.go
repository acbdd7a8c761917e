// Copyright 2025 Basis Protocol

package redemption

import (
	"testing"

	dbm "github.com/cometbft/cometbft-db"

	"github.com/basistracker/core/pkg/authtree"
	"github.com/basistracker/core/pkg/kvdb"
	"github.com/basistracker/core/pkg/ledger"
	"github.com/basistracker/core/pkg/principal"
	"github.com/basistracker/core/pkg/reserve"
	"github.com/basistracker/core/pkg/schnorr"
)

type testIssuer struct{ sk *schnorr.PrivateKey }

func newIssuer(t *testing.T) testIssuer {
	t.Helper()
	sk, err := schnorr.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return testIssuer{sk: sk}
}

func newTestTracker(t *testing.T) (*ledger.TrackerState, testIssuer, []byte) {
	t.Helper()
	store := kvdb.NewKVAdapter(dbm.NewMemDB())
	signerSK, err := schnorr.GenerateKey()
	if err != nil {
		t.Fatalf("generate tracker key: %v", err)
	}
	km := schnorr.NewKeyManagerFromKey(signerSK)
	ts := ledger.NewTrackerState(authtree.New(), ledger.NewNoteStore(store), nil, km)

	issuer := newIssuer(t)
	recipient := newIssuer(t)
	noteKey, sig := signIOU(t, issuer, recipient.sk.PublicKey().Bytes(), 1500)
	if _, _, err := ts.AddNote(issuer.sk.PublicKey().Bytes(), recipient.sk.PublicKey().Bytes(), 1500, 1700000000, 1700000000, sig); err != nil {
		t.Fatalf("add note: %v", err)
	}
	_ = noteKey
	return ts, issuer, recipient.sk.PublicKey().Bytes()
}

func signIOU(t *testing.T, issuer testIssuer, recipientRaw []byte, totalDebt uint64) (principal.NoteKey, []byte) {
	t.Helper()
	_, _, noteKey, err := principal.ValidatePair(issuer.sk.PublicKey().Bytes(), recipientRaw)
	if err != nil {
		t.Fatalf("validate pair: %v", err)
	}
	msg := schnorr.NoteMessage(noteKey, totalDebt)
	sig, err := schnorr.Sign(issuer.sk, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return noteKey, sig
}

// TestPrepareFirstRedemption exercises scenario S3: first redemption
// omits the reserve lookup proof and produces a 500-unit insert proof
// from the empty reserve digest.
func TestPrepareFirstRedemption(t *testing.T) {
	ts, issuer, recipientRaw := newTestTracker(t)
	engine := NewEngine(ts)
	view := reserve.Empty([]byte("box1"), issuer.sk.PublicKey().Bytes(), []byte("nft"), 10000, 100)

	payload, err := engine.Prepare(issuer.sk.PublicKey().Bytes(), recipientRaw, 500, false, view)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if payload.TotalDebt != 1500 {
		t.Fatalf("total debt = %d, want 1500", payload.TotalDebt)
	}
	if payload.ReserveLookupProof != nil {
		t.Fatalf("expected no reserve lookup proof on first redemption")
	}
	if payload.NewRedeemed != 500 {
		t.Fatalf("new redeemed = %d, want 500", payload.NewRedeemed)
	}
	if !authtree.VerifyLookup(payload.ReserveRootAfter, payload.ReserveInsertProof) {
		t.Fatalf("reserve insert proof does not verify against post-state root")
	}
	if payload.TrackerSig == nil {
		t.Fatalf("expected tracker signature in non-emergency mode")
	}
}

// TestPrepareSubsequentRedemption exercises scenario S4.
func TestPrepareSubsequentRedemption(t *testing.T) {
	ts, issuer, recipientRaw := newTestTracker(t)
	engine := NewEngine(ts)
	view := reserve.Empty([]byte("box1"), issuer.sk.PublicKey().Bytes(), []byte("nft"), 10000, 100)

	first, err := engine.Prepare(issuer.sk.PublicKey().Bytes(), recipientRaw, 500, false, view)
	if err != nil {
		t.Fatalf("prepare first: %v", err)
	}

	_, _, noteKey, err := principal.ValidatePair(issuer.sk.PublicKey().Bytes(), recipientRaw)
	if err != nil {
		t.Fatalf("validate pair: %v", err)
	}
	var treeKey authtree.Key
	copy(treeKey[:], noteKey[:])
	if _, _, err := view.ApplyRedemption(treeKey, first.NewRedeemed); err != nil {
		t.Fatalf("settle first redemption on scanner view: %v", err)
	}

	second, err := engine.Prepare(issuer.sk.PublicKey().Bytes(), recipientRaw, 400, false, view)
	if err != nil {
		t.Fatalf("prepare second: %v", err)
	}
	if second.AlreadyRedeemed != 500 {
		t.Fatalf("already redeemed = %d, want 500", second.AlreadyRedeemed)
	}
	if second.ReserveLookupProof == nil {
		t.Fatalf("expected reserve lookup proof on subsequent redemption")
	}
	if second.NewRedeemed != 900 {
		t.Fatalf("new redeemed = %d, want 900", second.NewRedeemed)
	}

	if _, err := engine.Prepare(issuer.sk.PublicKey().Bytes(), recipientRaw, 1100, false, view); err != ErrInsufficientDebt {
		t.Fatalf("expected ErrInsufficientDebt for over-request, got %v", err)
	}
}

// TestPrepareExactRemainingAccepted covers the boundary behavior of
// spec §8: amount == total_debt - already_redeemed is accepted, and one
// unit more is rejected.
func TestPrepareExactRemainingAccepted(t *testing.T) {
	ts, issuer, recipientRaw := newTestTracker(t)
	engine := NewEngine(ts)
	view := reserve.Empty([]byte("box1"), issuer.sk.PublicKey().Bytes(), []byte("nft"), 10000, 100)

	if _, err := engine.Prepare(issuer.sk.PublicKey().Bytes(), recipientRaw, 1500, false, view); err != nil {
		t.Fatalf("exact-remaining redemption should be accepted: %v", err)
	}

	view2 := reserve.Empty([]byte("box1"), issuer.sk.PublicKey().Bytes(), []byte("nft"), 10000, 100)
	if _, err := engine.Prepare(issuer.sk.PublicKey().Bytes(), recipientRaw, 1501, false, view2); err != ErrInsufficientDebt {
		t.Fatalf("expected ErrInsufficientDebt for one unit over, got %v", err)
	}
}

func TestPrepareNoteNotFound(t *testing.T) {
	ts, issuer, _ := newTestTracker(t)
	engine := NewEngine(ts)
	view := reserve.Empty([]byte("box1"), issuer.sk.PublicKey().Bytes(), []byte("nft"), 10000, 100)
	stranger := newIssuer(t)

	if _, err := engine.Prepare(issuer.sk.PublicKey().Bytes(), stranger.sk.PublicKey().Bytes(), 1, false, view); err != ErrNoteNotFound {
		t.Fatalf("expected ErrNoteNotFound, got %v", err)
	}
}

func TestEmergencyEligible(t *testing.T) {
	if EmergencyEligible(100+2159, 100) {
		t.Fatalf("2159 blocks since creation should not be eligible")
	}
	if !EmergencyEligible(100+2160, 100) {
		t.Fatalf("2160 blocks since creation should be eligible")
	}
}

func TestPrepareEmergencyMessageEncoding(t *testing.T) {
	ts, issuer, recipientRaw := newTestTracker(t)
	engine := NewEngine(ts)
	view := reserve.Empty([]byte("box1"), issuer.sk.PublicKey().Bytes(), []byte("nft"), 10000, 100)

	payload, err := engine.Prepare(issuer.sk.PublicKey().Bytes(), recipientRaw, 500, true, view)
	if err != nil {
		t.Fatalf("prepare emergency: %v", err)
	}
	if !payload.Emergency {
		t.Fatalf("expected Emergency flag set")
	}
	if payload.TrackerSig == nil {
		t.Fatalf("tracker is reachable in this test; expected a real signature")
	}

	pubBytes, _ := ts.StateCommitment()
	trackerPub, err := schnorr.PublicKeyFromBytes(pubBytes)
	if err != nil {
		t.Fatalf("tracker public key: %v", err)
	}
	_, _, noteKey, err := principal.ValidatePair(issuer.sk.PublicKey().Bytes(), recipientRaw)
	if err != nil {
		t.Fatalf("validate pair: %v", err)
	}
	if !schnorr.Verify(trackerPub, schnorr.EmergencyRedemptionMessage(noteKey, 1500), payload.TrackerSig) {
		t.Fatalf("tracker signature does not cover the emergency redemption message")
	}
}
