package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// TestHashAndVerifyPassword round-trips a password through bcrypt
func TestHashAndVerifyPassword(t *testing.T) {
	// Minimum cost keeps the test fast
	p := NewPasswordManager(bcrypt.MinCost, 8)

	hash, err := p.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hashing failed: %v", err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal the plaintext")
	}

	if !p.VerifyPassword("correct horse battery", hash) {
		t.Error("the original password should verify")
	}
	if p.VerifyPassword("wrong password", hash) {
		t.Error("a different password must not verify")
	}
}

// TestHashPasswordLengthLimits enforces the length bounds
func TestHashPasswordLengthLimits(t *testing.T) {
	p := NewPasswordManager(bcrypt.MinCost, 8)

	if _, err := p.HashPassword("short"); err == nil {
		t.Error("passwords under the minimum length should be rejected")
	}
	if _, err := p.HashPassword(strings.Repeat("x", MaxPasswordLength+1)); err == nil {
		t.Error("passwords over the maximum length should be rejected")
	}
}

// TestHashRefreshToken is deterministic and hides the input
func TestHashRefreshToken(t *testing.T) {
	first := HashRefreshToken("refresh-abc")
	second := HashRefreshToken("refresh-abc")
	other := HashRefreshToken("refresh-xyz")

	if first != second {
		t.Error("hashing the same token twice should match")
	}
	if first == other {
		t.Error("different tokens must hash differently")
	}
	if len(first) != 64 {
		t.Errorf("hash length = %d, want 64 hex characters", len(first))
	}
}
