// Copyright 2025 Basis Protocol

package redemption

import "errors"

// Sentinel errors for the four failure modes spec §4.4 names.
var (
	ErrNoteNotFound       = errors.New("redemption: no note exists for this issuer/recipient pair")
	ErrInsufficientDebt   = errors.New("redemption: requested amount exceeds total_debt minus already_redeemed")
	ErrTrackerUnavailable = errors.New("redemption: tracker signer unreachable")
	ErrReserveSnapshotStale = errors.New("redemption: cached reserve digest does not match the chain's current commitment")
)
