// Copyright 2025 Basis Protocol

package redemption

import (
	"encoding/hex"

	"github.com/basistracker/core/pkg/authtree"
	"github.com/basistracker/core/pkg/external"
)

// ToWireResponse converts an assembled Payload into the hex-string wire
// shape of spec §6.2, given the block height the scanner last observed
// (the response's block_height field, not computed by this package).
func (p *Payload) ToWireResponse(blockHeight uint64) external.RedemptionPrepareResponse {
	resp := external.RedemptionPrepareResponse{
		TotalDebt:          p.TotalDebt,
		TrackerLookupProof: hex.EncodeToString(authtree.EncodeLookupProof(p.TrackerLookupProof)),
		ReserveInsertProof: hex.EncodeToString(authtree.EncodeLookupProof(p.ReserveInsertProof)),
		TrackerStateDigest: hex.EncodeToString(p.TrackerStateDigest.Bytes()),
		BlockHeight:        blockHeight,
	}
	if p.ReserveLookupProof != nil {
		ar := p.AlreadyRedeemed
		resp.AlreadyRedeemed = &ar
		lp := hex.EncodeToString(authtree.EncodeLookupProof(p.ReserveLookupProof))
		resp.ReserveLookupProof = &lp
	}
	if p.TrackerSig != nil {
		resp.TrackerSig = hex.EncodeToString(p.TrackerSig)
	} else {
		resp.TrackerSig = hex.EncodeToString(make([]byte, 65))
	}
	return resp
}
