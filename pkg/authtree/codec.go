// Copyright 2025 Basis Protocol
//
// Wire encoding for proofs and operation batches. Fixed-width binary
// fields throughout, matching the KeySize/ValueSize/RootSize constants
// rather than a self-describing format — the witness this module
// produces is internally consistent, not a byte-for-byte reimplementation
// of the host chain's native scorex-crypto AVL+ proof format, which this
// module does not attempt to replicate (see DESIGN.md).
package authtree

import (
	"encoding/binary"
	"fmt"
)

// EncodeLookupProof serializes a LookupProof to bytes suitable for the
// hex-encoded wire fields of spec §6.2 (tracker_lookup_proof etc).
func EncodeLookupProof(p *LookupProof) []byte {
	buf := make([]byte, 0, KeySize+ValueSize+1+KeySize+2+len(p.Path)*(32+1+1))
	buf = append(buf, p.Key[:]...)
	buf = append(buf, p.Value[:]...)
	if p.HasNext {
		buf = append(buf, 0x01)
		buf = append(buf, p.NextLeafKey[:]...)
	} else {
		buf = append(buf, 0x00)
		buf = append(buf, make([]byte, KeySize)...)
	}
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(p.Path)))
	for _, step := range p.Path {
		buf = append(buf, step.SiblingHash[:]...)
		buf = append(buf, step.SiblingHeight)
		buf = append(buf, byte(step.Position))
	}
	return buf
}

// DecodeLookupProof is the inverse of EncodeLookupProof.
func DecodeLookupProof(data []byte) (*LookupProof, error) {
	const headerLen = KeySize + ValueSize + 1 + KeySize + 2
	if len(data) < headerLen {
		return nil, fmt.Errorf("authtree: proof too short: %d bytes", len(data))
	}
	p := &LookupProof{}
	off := 0
	copy(p.Key[:], data[off:off+KeySize])
	off += KeySize
	copy(p.Value[:], data[off:off+ValueSize])
	off += ValueSize
	hasNext := data[off]
	off++
	var next Key
	copy(next[:], data[off:off+KeySize])
	off += KeySize
	if hasNext == 0x01 {
		p.HasNext = true
		p.NextLeafKey = next
	}
	pathLen := binary.BigEndian.Uint16(data[off : off+2])
	off += 2

	const stepLen = 32 + 1 + 1
	want := off + int(pathLen)*stepLen
	if len(data) != want {
		return nil, fmt.Errorf("authtree: proof length mismatch: have %d, want %d", len(data), want)
	}
	p.Path = make([]ProofStep, pathLen)
	for i := range p.Path {
		var step ProofStep
		copy(step.SiblingHash[:], data[off:off+32])
		off += 32
		step.SiblingHeight = data[off]
		off++
		step.Position = Position(data[off])
		off++
		p.Path[i] = step
	}
	return p, nil
}
