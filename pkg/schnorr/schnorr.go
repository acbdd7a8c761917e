// Copyright 2025 Basis Protocol
//
// Package schnorr implements the Schnorr signature scheme over secp256k1
// used to authenticate debt notes and tracker attestations. The message
// construction and verification equation are fixed by the host chain's
// native AVL-tree/Schnorr verifier: a 33-byte commitment point concatenated
// with a 32-byte scalar, challenge hashed with Blake2b-256 over
// a‖msg‖pk in exactly that order. Any implementation that reorders those
// three fields produces signatures the chain silently rejects.
package schnorr

import (
	"crypto/rand"
	"errors"
	"io"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/blake2b"
)

// SignatureSize is the wire size of a Schnorr signature: a 33-byte
// compressed commitment point followed by a 32-byte big-endian scalar.
const SignatureSize = 65

// Sentinel errors for key and signature parsing.
var (
	ErrInvalidScalar   = errors.New("schnorr: scalar out of range or zero")
	ErrInvalidPoint    = errors.New("schnorr: point is not a valid curve point")
	ErrLengthMismatch  = errors.New("schnorr: signature must be 65 bytes")
	ErrNonceGeneration = errors.New("schnorr: failed to sample nonce")
)

// PrivateKey is a secp256k1 scalar in [1, n).
type PrivateKey struct {
	inner *secp256k1.PrivateKey
}

// PublicKey is a compressed secp256k1 point.
type PublicKey struct {
	inner *secp256k1.PublicKey
}

// Signature is a parsed 65-byte Schnorr signature: A (commitment point) ‖ Z (scalar).
type Signature struct {
	A [33]byte
	Z [32]byte
}

// GenerateKey samples a new random private key using a CSPRNG. The
// underlying library performs rejection sampling so the result is always
// in [1, n).
func GenerateKey() (*PrivateKey, error) {
	sk, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &PrivateKey{inner: sk}, nil
}

// PrivateKeyFromBytes parses a 32-byte big-endian scalar. It returns
// ErrInvalidScalar for input that is not 32 bytes long and for a scalar
// that is zero.
func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	if len(b) != 32 {
		return nil, ErrInvalidScalar
	}
	sk := secp256k1.PrivKeyFromBytes(b)
	if sk.Key.IsZero() {
		return nil, ErrInvalidScalar
	}
	return &PrivateKey{inner: sk}, nil
}

// Bytes returns the 32-byte big-endian scalar.
func (sk *PrivateKey) Bytes() []byte {
	b := sk.inner.Serialize()
	return b[:]
}

// PublicKey derives the compressed public key pk = sk·G.
func (sk *PrivateKey) PublicKey() *PublicKey {
	return &PublicKey{inner: sk.inner.PubKey()}
}

// PublicKeyFromBytes parses a 33-byte compressed point, rejecting points
// not on the curve.
func PublicKeyFromBytes(b []byte) (*PublicKey, error) {
	pk, err := secp256k1.ParsePubKey(b)
	if err != nil {
		return nil, ErrInvalidPoint
	}
	return &PublicKey{inner: pk}, nil
}

// Bytes returns the 33-byte compressed point.
func (pk *PublicKey) Bytes() []byte {
	return pk.inner.SerializeCompressed()
}

// ParseSignature splits a 65-byte wire signature into its commitment point
// and scalar without validating either against the curve.
func ParseSignature(sig []byte) (*Signature, error) {
	if len(sig) != SignatureSize {
		return nil, ErrLengthMismatch
	}
	var s Signature
	copy(s.A[:], sig[:33])
	copy(s.Z[:], sig[33:65])
	return &s, nil
}

// Bytes returns the 65-byte wire form a‖z.
func (s *Signature) Bytes() []byte {
	out := make([]byte, SignatureSize)
	copy(out[:33], s.A[:])
	copy(out[33:], s.Z[:])
	return out
}

// challenge computes e = Blake2b-256(a ‖ msg ‖ pk) reduced mod the group
// order. The field ordering is load-bearing: it must match the on-chain
// verifier byte-for-byte.
func challenge(a, msg, pk []byte) secp256k1.ModNScalar {
	h, err := blake2b.New256(nil)
	if err != nil {
		panic(err)
	}
	h.Write(a)
	h.Write(msg)
	h.Write(pk)
	digest := h.Sum(nil)

	var e secp256k1.ModNScalar
	e.SetByteSlice(digest)
	return e
}

// Sign produces a 65-byte signature over msg following the scheme fixed by
// §4.3: sample nonce k, commit a = k·G, derive e from Blake2b-256(a‖msg‖pk),
// output a ‖ BE32(k + e·sk mod n).
func Sign(sk *PrivateKey, msg []byte) ([]byte, error) {
	return sign(sk, msg, rand.Reader)
}

// sign is the randomness-injectable core of Sign, split out for deterministic
// tests.
func sign(sk *PrivateKey, msg []byte, rng io.Reader) ([]byte, error) {
	k, a, err := nonceCommitment(rng)
	if err != nil {
		return nil, err
	}

	pkBytes := sk.PublicKey().Bytes()
	e := challenge(a, msg, pkBytes)

	var ez secp256k1.ModNScalar
	ez.Mul2(&e, &sk.inner.Key)
	var z secp256k1.ModNScalar
	z.Add2(&k, &ez)

	zBytes := z.Bytes()
	sig := make([]byte, 0, SignatureSize)
	sig = append(sig, a...)
	sig = append(sig, zBytes[:]...)
	return sig, nil
}

// nonceCommitment samples a random nonce k in [1, n) by rejection sampling
// (32 random bytes per attempt, discarding zero or out-of-range values, up
// to 256 attempts) and returns both k and its 33-byte compressed
// commitment a = k·G.
func nonceCommitment(rng io.Reader) (secp256k1.ModNScalar, []byte, error) {
	buf := make([]byte, 32)
	for i := 0; i < 256; i++ {
		if _, err := io.ReadFull(rng, buf); err != nil {
			return secp256k1.ModNScalar{}, nil, ErrNonceGeneration
		}
		var k secp256k1.ModNScalar
		overflow := k.SetByteSlice(buf)
		if overflow || k.IsZero() {
			continue
		}
		var r secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(&k, &r)
		r.ToAffine()
		a := secp256k1.NewPublicKey(&r.X, &r.Y)
		return k, a.SerializeCompressed(), nil
	}
	return secp256k1.ModNScalar{}, nil, ErrNonceGeneration
}

// Verify checks that sig is a valid Schnorr signature over msg by pk:
// parses a (must be on curve, not identity) and z (must be < n), recomputes
// e, and accepts iff z·G == a + e·pk.
func Verify(pk *PublicKey, msg, sig []byte) bool {
	s, err := ParseSignature(sig)
	if err != nil {
		return false
	}

	aPub, err := secp256k1.ParsePubKey(s.A[:])
	if err != nil {
		return false
	}

	var z secp256k1.ModNScalar
	if overflow := z.SetByteSlice(s.Z[:]); overflow {
		return false
	}

	pkBytes := pk.Bytes()
	e := challenge(s.A[:], msg, pkBytes)

	var lhs secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&z, &lhs)
	lhs.ToAffine()

	var aJ, pkJ, ePk, rhs secp256k1.JacobianPoint
	aPub.AsJacobian(&aJ)
	pk.inner.AsJacobian(&pkJ)
	secp256k1.ScalarMultNonConst(&e, &pkJ, &ePk)
	secp256k1.AddNonConst(&aJ, &ePk, &rhs)
	rhs.ToAffine()

	lhs.X.Normalize()
	lhs.Y.Normalize()
	rhs.X.Normalize()
	rhs.Y.Normalize()
	return lhs.X.Equals(&rhs.X) && lhs.Y.Equals(&rhs.Y)
}
