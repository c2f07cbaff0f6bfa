package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestHashersRoundTrip(t *testing.T) {
	for _, algo := range []string{"bcrypt", "argon2id"} {
		t.Run(algo, func(t *testing.T) {
			h, err := NewHasher(algo, bcrypt.MinCost)
			if err != nil {
				t.Fatalf("NewHasher: %v", err)
			}
			d1, err := h.Hash("P@ssw0rd$2023X")
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}
			d2, err := h.Hash("P@ssw0rd$2023X")
			if err != nil {
				t.Fatalf("Hash: %v", err)
			}
			if d1 == d2 {
				t.Fatal("expected salted digests to differ")
			}
			if !h.Compare("P@ssw0rd$2023X", d1) {
				t.Fatal("expected password to match digest")
			}
			if h.Compare("P@ssw0rd$2023Y", d1) {
				t.Fatal("expected wrong password to fail")
			}
			if h.Compare("P@ssw0rd$2023X", "") {
				t.Fatal("expected empty digest to fail")
			}
		})
	}
}

func TestBcryptCostBounds(t *testing.T) {
	if _, err := NewBcryptHasher(bcrypt.MaxCost + 1); err == nil {
		t.Fatal("expected out-of-range cost to fail")
	}
	h, err := NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("NewBcryptHasher: %v", err)
	}
	digest, _ := h.Hash("P@ssw0rd$2023X")
	cost, err := bcrypt.Cost([]byte(digest))
	if err != nil || cost != bcrypt.MinCost {
		t.Fatalf("digest cost=%d err=%v, want %d", cost, err, bcrypt.MinCost)
	}
}

func TestArgon2DigestFormat(t *testing.T) {
	digest, err := Argon2Hasher{}.Hash("P@ssw0rd$2023X")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if !strings.HasPrefix(digest, "$argon2id$v=19$m=65536,t=2,p=1$") {
		t.Fatalf("unexpected digest format: %s", digest)
	}
	if (Argon2Hasher{}).Compare("P@ssw0rd$2023X", "$argon2i$v=19$m=1,t=1,p=1$AA$AA") {
		t.Fatal("expected foreign variant to be rejected")
	}
}

func TestNewHasherUnknown(t *testing.T) {
	if _, err := NewHasher("md5", 0); err == nil {
		t.Fatal("expected unsupported algorithm error")
	}
}
