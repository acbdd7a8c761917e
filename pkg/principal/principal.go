// Copyright 2025 Basis Protocol
//
// Package principal handles the identity primitives shared by every other
// tracker component: validating compressed secp256k1 public keys and
// deriving the fixed-length tree key a (issuer, recipient) pair is filed
// under.
package principal

import (
	"bytes"
	"errors"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/blake2b"
)

// KeySize is the length of a compressed secp256k1 public key.
const KeySize = 33

// NoteKeySize is the length of the tree key derived from a principal pair.
const NoteKeySize = 32

// Sentinel errors for principal key validation.
var (
	ErrWrongLength   = errors.New("principal: key must be 33 bytes")
	ErrBadPrefix     = errors.New("principal: leading byte must be 0x02 or 0x03")
	ErrNotOnCurve    = errors.New("principal: key does not decompress to a curve point")
	ErrIdentityPoint = errors.New("principal: key decompresses to the identity point")
	ErrSamePrincipal = errors.New("principal: issuer and recipient must differ")
)

// Key is a validated 33-byte compressed secp256k1 public key.
type Key [KeySize]byte

// Parse validates raw as a compressed secp256k1 public key: leading byte in
// {0x02, 0x03}, x-coordinate within the field, and the decompressed point is
// on the curve and not the point at infinity.
func Parse(raw []byte) (Key, error) {
	var k Key
	if len(raw) != KeySize {
		return k, ErrWrongLength
	}
	if raw[0] != 0x02 && raw[0] != 0x03 {
		return k, ErrBadPrefix
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return k, ErrNotOnCurve
	}
	if pub.X().IsZero() && pub.Y().IsZero() {
		return k, ErrIdentityPoint
	}
	copy(k[:], raw)
	return k, nil
}

// Bytes returns the 33-byte compressed form.
func (k Key) Bytes() []byte { return k[:] }

// Equal reports whether two keys are byte-identical.
func (k Key) Equal(other Key) bool { return bytes.Equal(k[:], other[:]) }

// NoteKey is the 32-byte Blake2b-256 digest of issuer‖recipient: the fixed
// length key every (issuer, recipient) pair is stored under in the tracker
// AVL+ tree and in the on-chain reserve tree.
type NoteKey [NoteKeySize]byte

// DeriveNoteKey computes Blake2b-256(issuer‖recipient). It does not itself
// enforce issuer != recipient; callers validating a fresh note must check
// that separately (see ErrSamePrincipal).
func DeriveNoteKey(issuer, recipient Key) NoteKey {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for an oversized key argument; nil never does.
		panic(err)
	}
	h.Write(issuer[:])
	h.Write(recipient[:])
	var out NoteKey
	copy(out[:], h.Sum(nil))
	return out
}

// ValidatePair validates both principal keys and that they differ, returning
// the derived note key on success.
func ValidatePair(issuerRaw, recipientRaw []byte) (issuer, recipient Key, key NoteKey, err error) {
	issuer, err = Parse(issuerRaw)
	if err != nil {
		return issuer, recipient, key, err
	}
	recipient, err = Parse(recipientRaw)
	if err != nil {
		return issuer, recipient, key, err
	}
	if issuer.Equal(recipient) {
		return issuer, recipient, key, ErrSamePrincipal
	}
	key = DeriveNoteKey(issuer, recipient)
	return issuer, recipient, key, nil
}
