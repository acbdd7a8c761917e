// Copyright 2025 Basis Protocol

package external

import "encoding/hex"

// IOUNoteJSON is the wire format of an issuer-submitted IOU, per spec
// §6.1. Fields are hex strings on the wire; the tracker HTTP/RPC façade
// this core is designed to sit behind decodes them before calling
// TrackerState.AddNote.
type IOUNoteJSON struct {
	IssuerPubkey    string `json:"issuer_pubkey"`
	RecipientPubkey string `json:"recipient_pubkey"`
	Amount          uint64 `json:"amount"`
	Timestamp       uint64 `json:"timestamp"`
	Signature       string `json:"signature"`
}

// Decode parses the hex-encoded fields into raw bytes, performing no
// further validation: principal.ValidatePair and schnorr.Verify are the
// authorities on whether the result is well-formed.
func (n IOUNoteJSON) Decode() (issuer, recipient, signature []byte, err error) {
	if issuer, err = hex.DecodeString(n.IssuerPubkey); err != nil {
		return nil, nil, nil, err
	}
	if recipient, err = hex.DecodeString(n.RecipientPubkey); err != nil {
		return nil, nil, nil, err
	}
	if signature, err = hex.DecodeString(n.Signature); err != nil {
		return nil, nil, nil, err
	}
	return issuer, recipient, signature, nil
}

// RedemptionPrepareResponse is the wire format of a redemption-prepare
// reply, per spec §6.2.
type RedemptionPrepareResponse struct {
	TotalDebt          uint64  `json:"total_debt"`
	AlreadyRedeemed    *uint64 `json:"already_redeemed"`
	TrackerLookupProof string  `json:"tracker_lookup_proof"`
	ReserveLookupProof *string `json:"reserve_lookup_proof"`
	ReserveInsertProof string  `json:"reserve_insert_proof"`
	TrackerSig         string  `json:"tracker_sig"`
	TrackerStateDigest string  `json:"tracker_state_digest"`
	BlockHeight        uint64  `json:"block_height"`
}
