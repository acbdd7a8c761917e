// Copyright 2025 Basis Protocol

package schnorr

import (
	"bytes"
	"testing"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	sk, err := GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	pk := sk.PublicKey()

	msg := []byte("issuer owes recipient 1000")
	sig, err := Sign(sk, msg)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if len(sig) != SignatureSize {
		t.Fatalf("signature length = %d, want %d", len(sig), SignatureSize)
	}
	if !Verify(pk, msg, sig) {
		t.Fatal("verify rejected a genuine signature")
	}
}

func TestVerifyRejectsMutatedMessage(t *testing.T) {
	sk, _ := GenerateKey()
	pk := sk.PublicKey()
	msg := []byte("total_debt=1000")
	sig, _ := Sign(sk, msg)

	mutated := append([]byte(nil), msg...)
	mutated[0] ^= 0x01
	if Verify(pk, mutated, sig) {
		t.Fatal("verify accepted a mutated message")
	}
}

func TestVerifyRejectsMutatedSignature(t *testing.T) {
	sk, _ := GenerateKey()
	pk := sk.PublicKey()
	msg := []byte("total_debt=1000")
	sig, _ := Sign(sk, msg)

	mutated := append([]byte(nil), sig...)
	mutated[64] ^= 0x01
	if Verify(pk, msg, mutated) {
		t.Fatal("verify accepted a mutated signature")
	}
}

func TestVerifyRejectsWrongKey(t *testing.T) {
	sk1, _ := GenerateKey()
	sk2, _ := GenerateKey()
	msg := []byte("total_debt=1000")
	sig, _ := Sign(sk1, msg)

	if Verify(sk2.PublicKey(), msg, sig) {
		t.Fatal("verify accepted signature under the wrong key")
	}
}

func TestVerifyRejectsShortSignature(t *testing.T) {
	sk, _ := GenerateKey()
	if Verify(sk.PublicKey(), []byte("m"), []byte{0x01, 0x02}) {
		t.Fatal("verify accepted a too-short signature")
	}
}

func TestPrivateKeyRoundTripsThroughBytes(t *testing.T) {
	sk, _ := GenerateKey()
	raw := sk.Bytes()
	sk2, err := PrivateKeyFromBytes(raw)
	if err != nil {
		t.Fatalf("PrivateKeyFromBytes: %v", err)
	}
	if !bytes.Equal(sk2.PublicKey().Bytes(), sk.PublicKey().Bytes()) {
		t.Fatal("public key mismatch after round trip")
	}
}

func TestPublicKeyRoundTripsThroughBytes(t *testing.T) {
	sk, _ := GenerateKey()
	pkBytes := sk.PublicKey().Bytes()
	pk2, err := PublicKeyFromBytes(pkBytes)
	if err != nil {
		t.Fatalf("PublicKeyFromBytes: %v", err)
	}
	msg := []byte("m")
	sig, _ := Sign(sk, msg)
	if !Verify(pk2, msg, sig) {
		t.Fatal("verify failed against round-tripped public key")
	}
}
