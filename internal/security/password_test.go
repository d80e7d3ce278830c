package security

import "testing"

func TestHashPasswordVerifies(t *testing.T) {
	salt, err := NewSalt()
	if err != nil {
		t.Fatalf("new salt: %v", err)
	}
	hash := HashPassword("hunter2", salt)

	if !VerifyPassword("hunter2", salt, hash) {
		t.Fatal("expected correct password to verify")
	}
	if VerifyPassword("wrong", salt, hash) {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestHashPasswordSaltChangesHash(t *testing.T) {
	saltA, _ := NewSalt()
	saltB, _ := NewSalt()
	if HashPassword("hunter2", saltA) == nil {
		t.Fatal("nil hash")
	}
	ha := HashPassword("hunter2", saltA)
	hb := HashPassword("hunter2", saltB)
	if string(ha) == string(hb) {
		t.Fatal("expected different salts to produce different hashes")
	}
}

func TestNewTokenUnique(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	b, err := NewToken()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens")
	}
	if len(a) != 32 {
		t.Fatalf("expected 32 hex chars, got %d", len(a))
	}
}
