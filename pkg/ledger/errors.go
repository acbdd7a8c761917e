// Copyright 2025 Basis Protocol

package ledger

import "errors"

// Failure modes for TrackerState.AddNote, per spec §4.2. Each is a
// distinct sentinel so callers can switch on kind, matching the donor's
// one-sentinel-per-failure-mode convention (pkg/ledger/errors.go,
// pkg/database/errors.go).
var (
	ErrInvalidKey            = errors.New("ledger: invalid principal key")
	ErrFutureTimestamp       = errors.New("ledger: timestamp exceeds now + skew")
	ErrNonMonotonicTimestamp = errors.New("ledger: timestamp does not strictly increase")
	ErrNonMonotonicDebt      = errors.New("ledger: total_debt does not strictly increase")
	ErrBadIssuerSig          = errors.New("ledger: issuer signature does not verify")
	ErrStoreFailure          = errors.New("ledger: durable store failure")
	ErrTreeFailure           = errors.New("ledger: authenticated tree failure")
	ErrNoteNotFound          = errors.New("ledger: no note for this principal pair")
)
