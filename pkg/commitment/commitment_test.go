// Copyright 2025 Basis Protocol

package commitment

import "testing"

func TestHashHexDeterministicAndPartSensitive(t *testing.T) {
	a := HashHex([]byte("pubkey"), []byte("root"), []byte("nft"))
	b := HashHex([]byte("pubkey"), []byte("root"), []byte("nft"))
	if a != b {
		t.Fatalf("HashHex not deterministic: %s != %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("len(HashHex(...)) = %d, want 64 hex chars", len(a))
	}

	c := HashHex([]byte("pubkey"), []byte("root"), []byte("different-nft"))
	if a == c {
		t.Fatal("HashHex did not change when an input part changed")
	}
}
