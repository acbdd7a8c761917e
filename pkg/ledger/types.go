// Copyright 2025 Basis Protocol

package ledger

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/basistracker/core/pkg/principal"
)

// Note is the durable record of one (issuer, recipient) debt pair, per
// spec §3 "Debt note". Exactly one Note exists per ordered pair; it is
// created on the first accepted IOU and thereafter only updated.
type Note struct {
	Issuer     principal.Key
	Recipient  principal.Key
	TotalDebt  uint64
	Timestamp  uint64
	IssuerSig  [65]byte
	TrackerSig [65]byte
}

// noteJSON is the on-disk JSON shape, hex-encoding every fixed-size byte
// array the way the wire format of spec §6.1 does.
type noteJSON struct {
	Issuer     string `json:"issuer_pubkey"`
	Recipient  string `json:"recipient_pubkey"`
	TotalDebt  uint64 `json:"total_debt"`
	Timestamp  uint64 `json:"timestamp"`
	IssuerSig  string `json:"issuer_sig"`
	TrackerSig string `json:"tracker_sig"`
}

func (n *Note) MarshalJSON() ([]byte, error) {
	return json.Marshal(noteJSON{
		Issuer:     hex.EncodeToString(n.Issuer[:]),
		Recipient:  hex.EncodeToString(n.Recipient[:]),
		TotalDebt:  n.TotalDebt,
		Timestamp:  n.Timestamp,
		IssuerSig:  hex.EncodeToString(n.IssuerSig[:]),
		TrackerSig: hex.EncodeToString(n.TrackerSig[:]),
	})
}

func (n *Note) UnmarshalJSON(data []byte) error {
	var j noteJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	issuer, err := hex.DecodeString(j.Issuer)
	if err != nil || len(issuer) != principal.KeySize {
		return fmt.Errorf("ledger: bad issuer key in stored note")
	}
	recipient, err := hex.DecodeString(j.Recipient)
	if err != nil || len(recipient) != principal.KeySize {
		return fmt.Errorf("ledger: bad recipient key in stored note")
	}
	issuerSig, err := hex.DecodeString(j.IssuerSig)
	if err != nil || len(issuerSig) != 65 {
		return fmt.Errorf("ledger: bad issuer signature in stored note")
	}
	trackerSig, err := hex.DecodeString(j.TrackerSig)
	if err != nil || len(trackerSig) != 65 {
		return fmt.Errorf("ledger: bad tracker signature in stored note")
	}
	copy(n.Issuer[:], issuer)
	copy(n.Recipient[:], recipient)
	copy(n.IssuerSig[:], issuerSig)
	copy(n.TrackerSig[:], trackerSig)
	n.TotalDebt = j.TotalDebt
	n.Timestamp = j.Timestamp
	return nil
}

// BE64 encodes v as an 8-byte big-endian value, the tree's fixed value
// width per spec §3 "Tracker AVL+ tree".
func BE64(v uint64) [8]byte {
	var out [8]byte
	binary.BigEndian.PutUint64(out[:], v)
	return out
}
