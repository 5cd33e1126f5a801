package auth

import (
	"errors"
	"testing"
	"time"
)

func testClaims() OperatorClaims {
	return OperatorClaims{
		OperatorID: "op-123",
		Name:       "desk",
		Role:       "admin",
	}
}

// TestAccessTokenRoundTrip signs a token and validates its claims
func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)

	token, err := m.GenerateAccessToken(testClaims())
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("validation failed: %v", err)
	}
	if claims.OperatorID != "op-123" {
		t.Errorf("operator id = %q, want op-123", claims.OperatorID)
	}
	if claims.Role != "admin" {
		t.Errorf("role = %q, want admin", claims.Role)
	}
}

// TestValidateRejectsExpiredToken maps expiry onto ErrTokenExpired
func TestValidateRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager("test-secret", -time.Minute, 24*time.Hour)

	token, err := m.GenerateAccessToken(testClaims())
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	if _, err := m.ValidateAccessToken(token); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("validation returned %v, want ErrTokenExpired", err)
	}
}

// TestValidateRejectsWrongSecret refuses tokens signed with another key
func TestValidateRejectsWrongSecret(t *testing.T) {
	signer := NewJWTManager("secret-a", 15*time.Minute, 24*time.Hour)
	verifier := NewJWTManager("secret-b", 15*time.Minute, 24*time.Hour)

	token, err := signer.GenerateAccessToken(testClaims())
	if err != nil {
		t.Fatalf("token generation failed: %v", err)
	}

	if _, err := verifier.ValidateAccessToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("validation returned %v, want ErrInvalidToken", err)
	}
}

// TestValidateRejectsGarbage refuses strings that are not tokens at all
func TestValidateRejectsGarbage(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)

	if _, err := m.ValidateAccessToken("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("validation returned %v, want ErrInvalidToken", err)
	}
}

// TestGenerateTokenPair returns both tokens with the bearer metadata
func TestGenerateTokenPair(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)

	pair, err := m.GenerateTokenPair(testClaims())
	if err != nil {
		t.Fatalf("pair generation failed: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Error("token pair should carry both tokens")
	}
	if pair.TokenType != "Bearer" {
		t.Errorf("token type = %q, want Bearer", pair.TokenType)
	}
	if pair.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Errorf("expires in = %d, want 900", pair.ExpiresIn)
	}
}

// TestRefreshTokensAreUnique checks the refresh tokens do not repeat
func TestRefreshTokensAreUnique(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute, 24*time.Hour)

	first, err := m.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("refresh token generation failed: %v", err)
	}
	second, err := m.GenerateRefreshToken()
	if err != nil {
		t.Fatalf("refresh token generation failed: %v", err)
	}
	if first == second {
		t.Error("consecutive refresh tokens must differ")
	}
}
