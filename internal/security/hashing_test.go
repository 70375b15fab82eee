package security

import "testing"

func TestHasher_HashAndVerify(t *testing.T) {
	h := NewHasher(4) // min cost for test speed
	digest, err := h.Hash([]byte("correct horse battery staple"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if digest == "" || digest == "correct horse battery staple" {
		t.Fatal("digest empty or equal to plaintext")
	}
	if !h.Verify(digest, []byte("correct horse battery staple")) {
		t.Error("Verify with correct password: want true")
	}
	if h.Verify(digest, []byte("wrong password")) {
		t.Error("Verify with wrong password: want false")
	}
}

func TestHasher_SaltPerCall(t *testing.T) {
	h := NewHasher(4)
	a, err := h.Hash([]byte("same password"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	b, err := h.Hash([]byte("same password"))
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if a == b {
		t.Error("two hashes of the same password should differ")
	}
}

func TestHasher_MalformedDigest(t *testing.T) {
	h := NewHasher(4)
	if h.Verify("not-a-bcrypt-digest", []byte("anything")) {
		t.Error("malformed digest must verify as false")
	}
	if h.Verify("", []byte("anything")) {
		t.Error("empty digest must verify as false")
	}
}

func TestNewHasher_CostClamping(t *testing.T) {
	if h := NewHasher(0); h.Cost < 4 {
		t.Errorf("zero cost: got %d", h.Cost)
	}
	if h := NewHasher(99); h.Cost > 31 {
		t.Errorf("excess cost: got %d", h.Cost)
	}
}
