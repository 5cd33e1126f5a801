// Package auth secures the engine's HTTP control surface with JWT bearer
// tokens and bcrypt-hashed operator passwords.
package auth

// OperatorClaims are the identity claims embedded in access tokens
type OperatorClaims struct {
	OperatorID string `json:"operator_id"`
	Name       string `json:"name"`
	Role       string `json:"role"` // "viewer" or "admin"
}

// TokenPair bundles an access token with its refresh token
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

// AuthError is a coded authentication error
type AuthError struct {
	Code    string
	Message string
}

func (e AuthError) Error() string {
	return e.Message
}

var (
	ErrInvalidToken = AuthError{Code: "invalid_token", Message: "token is invalid"}
	ErrTokenExpired = AuthError{Code: "token_expired", Message: "token has expired"}
	ErrUnauthorized = AuthError{Code: "unauthorized", Message: "authentication required"}
	ErrForbidden    = AuthError{Code: "forbidden", Message: "insufficient permissions"}
)
