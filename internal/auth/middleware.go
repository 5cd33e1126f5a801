package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	ContextKeyOperatorID = "operator_id"
	ContextKeyRole       = "operator_role"
	ContextKeyClaims     = "operator_claims"
)

func abortUnauthorized(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   code,
		"message": message,
	})
}

// Middleware validates the bearer token on every request and stashes the
// operator identity in the request context.
func Middleware(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			abortUnauthorized(c, ErrUnauthorized.Code, "missing authorization header")
			return
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "bearer") {
			abortUnauthorized(c, ErrUnauthorized.Code, "invalid authorization header format")
			return
		}

		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			var authErr AuthError
			if !errors.As(err, &authErr) {
				authErr = ErrInvalidToken
			}
			abortUnauthorized(c, authErr.Code, authErr.Message)
			return
		}

		c.Set(ContextKeyOperatorID, claims.OperatorID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyClaims, claims)
		c.Next()
	}
}

// RequireAdmin guards mutating endpoints (pause, resume, run-cycle) behind
// the admin role. Must run after Middleware.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(ContextKeyRole)
		if !ok || role.(string) != "admin" {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   ErrForbidden.Code,
				"message": "admin access required",
			})
			return
		}
		c.Next()
	}
}

// GetOperatorID returns the authenticated operator's ID, or empty
func GetOperatorID(c *gin.Context) string {
	if id, ok := c.Get(ContextKeyOperatorID); ok {
		return id.(string)
	}
	return ""
}

// GetClaims returns the full operator claims, or nil when unauthenticated
func GetClaims(c *gin.Context) *OperatorClaims {
	if claims, ok := c.Get(ContextKeyClaims); ok {
		return claims.(*OperatorClaims)
	}
	return nil
}
