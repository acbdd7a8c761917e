// Copyright 2025 Basis Protocol
//
// Package taxonomy maps the sentinel errors scattered across the core's
// packages to the five-way failure taxonomy of spec §7: Validation,
// Cryptographic, Consistency, Resource, and Protocol. One sentinel per
// distinct failure mode lives next to the code that raises it (the
// donor's pkg/database/errors.go / pkg/execution/errors.go convention);
// this package is the single place that knows what each one means for
// process-lifecycle purposes, so the coordinator can decide "abort" from
// "report to caller" without importing every package's internals.
package taxonomy

import (
	"errors"

	"github.com/basistracker/core/pkg/authtree"
	"github.com/basistracker/core/pkg/journal"
	"github.com/basistracker/core/pkg/ledger"
	"github.com/basistracker/core/pkg/principal"
	"github.com/basistracker/core/pkg/redemption"
	"github.com/basistracker/core/pkg/reserve"
	"github.com/basistracker/core/pkg/schnorr"
)

// Tag is one of the five failure classes spec §7 names.
type Tag string

const (
	Validation    Tag = "validation"
	Cryptographic Tag = "cryptographic"
	Consistency   Tag = "consistency"
	Resource      Tag = "resource"
	Protocol      Tag = "protocol"
	Unknown       Tag = "unknown"
)

// Fatal reports whether a tag's propagation policy is to abort the
// process, per spec §7: "Consistency errors always abort... Resource
// errors abort only if they prevent durability". This package cannot
// distinguish a durability-blocking Resource failure from a merely
// transient one by tag alone — TrackerState.Fatal() already carries that
// distinction for the store/journal path (see pkg/ledger's poisonErr) —
// so Fatal here answers only for Consistency, the unconditional case.
func (t Tag) Fatal() bool { return t == Consistency }

// Classify walks err's chain against every sentinel this module defines
// and returns the taxonomy tag it belongs to. An error not recognized by
// any package (e.g. a bare os error from outside the core) classifies as
// Unknown, which callers should treat like Resource: surfaced, not fatal.
func Classify(err error) Tag {
	if err == nil {
		return Unknown
	}

	switch {
	case errors.Is(err, principal.ErrWrongLength),
		errors.Is(err, principal.ErrBadPrefix),
		errors.Is(err, principal.ErrNotOnCurve),
		errors.Is(err, principal.ErrIdentityPoint),
		errors.Is(err, principal.ErrSamePrincipal),
		errors.Is(err, ledger.ErrInvalidKey),
		errors.Is(err, ledger.ErrFutureTimestamp),
		errors.Is(err, ledger.ErrNonMonotonicTimestamp),
		errors.Is(err, ledger.ErrNonMonotonicDebt),
		errors.Is(err, authtree.ErrKeyLengthMismatch),
		errors.Is(err, authtree.ErrValueLengthMismatch),
		errors.Is(err, authtree.ErrKeyExists):
		return Validation

	case errors.Is(err, ledger.ErrBadIssuerSig),
		errors.Is(err, schnorr.ErrInvalidScalar),
		errors.Is(err, schnorr.ErrInvalidPoint),
		errors.Is(err, schnorr.ErrLengthMismatch),
		errors.Is(err, schnorr.ErrNonceGeneration):
		return Cryptographic

	case errors.Is(err, authtree.ErrInternalCorruption),
		errors.Is(err, journal.ErrCorruptJournal):
		return Consistency

	case errors.Is(err, ledger.ErrStoreFailure),
		errors.Is(err, ledger.ErrTreeFailure),
		errors.Is(err, redemption.ErrTrackerUnavailable):
		return Resource

	case errors.Is(err, ledger.ErrNoteNotFound),
		errors.Is(err, authtree.ErrKeyNotFound),
		errors.Is(err, redemption.ErrNoteNotFound),
		errors.Is(err, redemption.ErrInsufficientDebt),
		errors.Is(err, redemption.ErrReserveSnapshotStale),
		errors.Is(err, reserve.ErrDigestMismatch):
		return Protocol

	default:
		return Unknown
	}
}
