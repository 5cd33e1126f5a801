package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultBcryptCost = 12
	MinPasswordLength = 8

	// bcrypt silently truncates past 72 bytes, cap well before that matters
	MaxPasswordLength = 128
)

// PasswordManager hashes and verifies operator passwords
type PasswordManager struct {
	cost      int
	minLength int
}

// NewPasswordManager creates a password manager. Out-of-range arguments fall
// back to the package defaults.
func NewPasswordManager(cost, minLength int) *PasswordManager {
	if cost < bcrypt.MinCost {
		cost = DefaultBcryptCost
	}
	if minLength < MinPasswordLength {
		minLength = MinPasswordLength
	}
	return &PasswordManager{cost: cost, minLength: minLength}
}

// HashPassword returns the bcrypt hash of password, enforcing length bounds
func (p *PasswordManager) HashPassword(password string) (string, error) {
	if len(password) < p.minLength {
		return "", fmt.Errorf("password must be at least %d characters", p.minLength)
	}
	if len(password) > MaxPasswordLength {
		return "", fmt.Errorf("password exceeds %d characters", MaxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash
func (p *PasswordManager) VerifyPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashRefreshToken returns the hex SHA-256 of a refresh token. Only the hash
// is stored, so a leaked store cannot replay tokens.
func HashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
