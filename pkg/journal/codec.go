// Copyright 2025 Basis Protocol

package journal

import (
	"encoding/binary"
	"fmt"

	"github.com/basistracker/core/pkg/authtree"
)

// encodeOperation serializes one journal record: seq ‖ kind ‖ key ‖
// hasOld ‖ oldValue ‖ newValue ‖ rootBefore ‖ rootAfter ‖ witnessLen ‖ witness.
func encodeOperation(seq uint64, op authtree.TreeOperation) ([]byte, error) {
	witness := authtree.EncodeLookupProof(op.Witness)

	buf := make([]byte, 0, 8+1+authtree.KeySize+1+authtree.ValueSize*2+authtree.RootSize*2+4+len(witness))
	buf = binary.BigEndian.AppendUint64(buf, seq)
	buf = append(buf, byte(op.Kind))
	buf = append(buf, op.Key[:]...)
	if op.OldValue != nil {
		buf = append(buf, 0x01)
		buf = append(buf, op.OldValue[:]...)
	} else {
		buf = append(buf, 0x00)
		buf = append(buf, make([]byte, authtree.ValueSize)...)
	}
	buf = append(buf, op.NewValue[:]...)
	buf = append(buf, op.RootBefore[:]...)
	buf = append(buf, op.RootAfter[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(witness)))
	buf = append(buf, witness...)
	return buf, nil
}

// decodeOperation is the inverse of encodeOperation, returning the
// sequence number alongside the reconstructed operation.
func decodeOperation(data []byte) (uint64, authtree.TreeOperation, error) {
	const headerLen = 8 + 1 + authtree.KeySize + 1 + authtree.ValueSize + authtree.ValueSize + authtree.RootSize*2 + 4
	if len(data) < headerLen {
		return 0, authtree.TreeOperation{}, fmt.Errorf("journal: operation record too short: %d bytes", len(data))
	}
	off := 0
	seq := binary.BigEndian.Uint64(data[off : off+8])
	off += 8

	var op authtree.TreeOperation
	op.Kind = authtree.OpKind(data[off])
	off++
	copy(op.Key[:], data[off:off+authtree.KeySize])
	off += authtree.KeySize

	hasOld := data[off]
	off++
	var oldVal authtree.Value
	copy(oldVal[:], data[off:off+authtree.ValueSize])
	off += authtree.ValueSize
	if hasOld == 0x01 {
		op.OldValue = &oldVal
	}

	copy(op.NewValue[:], data[off:off+authtree.ValueSize])
	off += authtree.ValueSize
	copy(op.RootBefore[:], data[off:off+authtree.RootSize])
	off += authtree.RootSize
	copy(op.RootAfter[:], data[off:off+authtree.RootSize])
	off += authtree.RootSize

	witnessLen := binary.BigEndian.Uint32(data[off : off+4])
	off += 4
	if len(data) != off+int(witnessLen) {
		return 0, authtree.TreeOperation{}, fmt.Errorf("journal: operation record length mismatch")
	}
	witness, err := authtree.DecodeLookupProof(data[off:])
	if err != nil {
		return 0, authtree.TreeOperation{}, fmt.Errorf("journal: decode witness: %w", err)
	}
	op.Witness = witness
	return seq, op, nil
}
