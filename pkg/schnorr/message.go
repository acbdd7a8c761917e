// Copyright 2025 Basis Protocol

package schnorr

import (
	"encoding/binary"

	"github.com/basistracker/core/pkg/principal"
)

// NoteMessage builds the message a debt note's issuer and tracker
// signatures both cover: NoteKey(issuer, recipient) ‖ BE64(totalDebt).
func NoteMessage(key principal.NoteKey, totalDebt uint64) []byte {
	msg := make([]byte, 0, principal.NoteKeySize+8)
	msg = append(msg, key[:]...)
	msg = binary.BigEndian.AppendUint64(msg, totalDebt)
	return msg
}

// EmergencyRedemptionMessage builds the extended message used for the
// emergency-redemption signature path: NoteKey ‖ BE64(totalDebt) ‖ BE64(0).
// The trailing zero word is what distinguishes an emergency-mode signature
// from a normal one; it carries no other meaning.
func EmergencyRedemptionMessage(key principal.NoteKey, totalDebt uint64) []byte {
	msg := NoteMessage(key, totalDebt)
	msg = binary.BigEndian.AppendUint64(msg, 0)
	return msg
}
