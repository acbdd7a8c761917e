// Copyright 2025 Basis Protocol
//
// HashHex is the short commitment-id CommitmentPublisher logs alongside
// each successful publish, so operators can correlate a log line against
// the register contents submitted to the host chain without printing the
// full 33-byte root and public key on every tick. Trimmed from the
// donor's governance-proof canonical-commitment package
// (pkg/commitment/commitment.go): the RFC8785-ish canonical-JSON helpers
// and ComputeBundleID/ComputeGovernanceMerkleRoot/ComputeLegCommitment
// (governance-proof-specific, no analogue in a two-party debt ledger)
// were dropped — see DESIGN.md.

package commitment

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashHex returns the hex-encoded SHA-256 digest of the concatenation of
// parts, used as a short correlation id for a published commitment.
func HashHex(parts ...[]byte) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	return hex.EncodeToString(h.Sum(nil))
}