// Copyright 2025 Basis Protocol

package authtree

import (
	"math/rand"
	"testing"
)

func keyFromByte(b byte) Key {
	var k Key
	k[0] = b
	k[31] = b
	return k
}

func valueFromUint64(v uint64) Value {
	var out Value
	for i := 0; i < 8; i++ {
		out[7-i] = byte(v >> (8 * i))
	}
	return out
}

func TestEmptyTreeRootIsDeterministicAndNotZero(t *testing.T) {
	t1 := New()
	t2 := New()
	r1 := t1.Root()
	r2 := t2.Root()
	if r1 != r2 {
		t.Fatalf("two empty trees have different roots: %x vs %x", r1, r2)
	}
	var zero Root
	if r1 == zero {
		t.Fatal("empty tree digest must not be all-zero")
	}
}

func TestUpdateCreatesAndReplaces(t *testing.T) {
	tr := New()
	k := keyFromByte(1)
	before := tr.Root()
	if _, err := tr.Update(k, valueFromUint64(100)); err != nil {
		t.Fatalf("update: %v", err)
	}
	after := tr.Root()
	if after == before {
		t.Fatal("root did not change after first update")
	}
	if v, ok := tr.Lookup(k); !ok || v != valueFromUint64(100) {
		t.Fatalf("lookup after insert = %v, %v", v, ok)
	}

	if _, err := tr.Update(k, valueFromUint64(200)); err != nil {
		t.Fatalf("update replace: %v", err)
	}
	if v, ok := tr.Lookup(k); !ok || v != valueFromUint64(200) {
		t.Fatalf("lookup after replace = %v, %v", v, ok)
	}
}

func TestUpdateIsIdempotentOnSameValue(t *testing.T) {
	tr := New()
	k := keyFromByte(7)
	if _, err := tr.Update(k, valueFromUint64(42)); err != nil {
		t.Fatalf("update: %v", err)
	}
	root1 := tr.Root()
	if _, err := tr.Update(k, valueFromUint64(42)); err != nil {
		t.Fatalf("update replay: %v", err)
	}
	root2 := tr.Root()
	if root1 != root2 {
		t.Fatal("replaying the same (key, value) changed the root")
	}
}

func TestInsertRejectsExistingKey(t *testing.T) {
	tr := New()
	k := keyFromByte(3)
	if _, err := tr.Insert(k, valueFromUint64(1)); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if _, err := tr.Insert(k, valueFromUint64(2)); err != ErrKeyExists {
		t.Fatalf("second insert error = %v, want ErrKeyExists", err)
	}
}

func TestRootIsOrderIndependent(t *testing.T) {
	keys := make([]Key, 0, 20)
	for i := 0; i < 20; i++ {
		keys = append(keys, keyFromByte(byte(i)))
	}

	buildWithOrder := func(order []int) Root {
		tr := New()
		for _, idx := range order {
			if _, err := tr.Update(keys[idx], valueFromUint64(uint64(idx)*7+1)); err != nil {
				t.Fatalf("update: %v", err)
			}
		}
		return tr.Root()
	}

	forward := make([]int, len(keys))
	for i := range forward {
		forward[i] = i
	}
	forwardRoot := buildWithOrder(forward)

	for trial := 0; trial < 5; trial++ {
		shuffled := append([]int(nil), forward...)
		rand.New(rand.NewSource(int64(trial))).Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		root := buildWithOrder(shuffled)
		if root != forwardRoot {
			t.Fatalf("trial %d: root depends on insertion order: got %x, want %x", trial, root, forwardRoot)
		}
	}
}

func TestLookupProofVerifies(t *testing.T) {
	tr := New()
	var keys []Key
	for i := 0; i < 16; i++ {
		k := keyFromByte(byte(i * 3))
		keys = append(keys, k)
		if _, err := tr.Update(k, valueFromUint64(uint64(i))); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	root := tr.Root()

	for i, k := range keys {
		proof, err := tr.LookupProof(k)
		if err != nil {
			t.Fatalf("lookup proof for key %d: %v", i, err)
		}
		if !VerifyLookup(root, proof) {
			t.Fatalf("proof for key %d did not verify", i)
		}
	}
}

func TestLookupProofRejectsWrongValue(t *testing.T) {
	tr := New()
	k := keyFromByte(9)
	if _, err := tr.Update(k, valueFromUint64(5)); err != nil {
		t.Fatalf("update: %v", err)
	}
	root := tr.Root()
	proof, err := tr.LookupProof(k)
	if err != nil {
		t.Fatalf("lookup proof: %v", err)
	}
	proof.Value = valueFromUint64(6)
	if VerifyLookup(root, proof) {
		t.Fatal("verify accepted a tampered value")
	}
}

func TestLookupProofRejectsWrongRoot(t *testing.T) {
	tr := New()
	k := keyFromByte(9)
	if _, err := tr.Update(k, valueFromUint64(5)); err != nil {
		t.Fatalf("update: %v", err)
	}
	proof, err := tr.LookupProof(k)
	if err != nil {
		t.Fatalf("lookup proof: %v", err)
	}
	if _, err := tr.Update(keyFromByte(10), valueFromUint64(1)); err != nil {
		t.Fatalf("second update: %v", err)
	}
	staleRoot := tr.Root()
	if VerifyLookup(staleRoot, proof) {
		t.Fatal("verify accepted a proof against the wrong root")
	}
}

func TestLookupNotFound(t *testing.T) {
	tr := New()
	if _, err := tr.LookupProof(keyFromByte(1)); err != ErrKeyNotFound {
		t.Fatalf("error = %v, want ErrKeyNotFound", err)
	}
}

func TestProveDrainsPendingOperations(t *testing.T) {
	tr := New()
	if _, err := tr.Update(keyFromByte(1), valueFromUint64(1)); err != nil {
		t.Fatalf("update: %v", err)
	}
	if _, err := tr.Update(keyFromByte(2), valueFromUint64(2)); err != nil {
		t.Fatalf("update: %v", err)
	}
	ops := tr.Prove()
	if len(ops) != 2 {
		t.Fatalf("len(ops) = %d, want 2", len(ops))
	}
	if ops[0].RootAfter != ops[1].RootBefore {
		t.Fatal("operation batch is not a contiguous root chain")
	}
	if empty := tr.Prove(); len(empty) != 0 {
		t.Fatalf("second Prove() returned %d ops, want 0", len(empty))
	}
}

func TestEncodeDecodeLookupProofRoundTrips(t *testing.T) {
	tr := New()
	for i := 0; i < 8; i++ {
		if _, err := tr.Update(keyFromByte(byte(i)), valueFromUint64(uint64(i))); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	root := tr.Root()
	proof, err := tr.LookupProof(keyFromByte(3))
	if err != nil {
		t.Fatalf("lookup proof: %v", err)
	}
	encoded := EncodeLookupProof(proof)
	decoded, err := DecodeLookupProof(encoded)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !VerifyLookup(root, decoded) {
		t.Fatal("round-tripped proof did not verify")
	}
}

func TestSnapshotRoundTripsThroughLoadSnapshot(t *testing.T) {
	tr := New()
	for i := 0; i < 10; i++ {
		if _, err := tr.Update(keyFromByte(byte(i)), valueFromUint64(uint64(i*11))); err != nil {
			t.Fatalf("update: %v", err)
		}
	}
	want := tr.Root()
	snap := tr.Snapshot()
	restored := LoadSnapshot(snap)
	if got := restored.Root(); got != want {
		t.Fatalf("restored root = %x, want %x", got, want)
	}
}
