package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	Email string
	// SessionID becomes the jti and keys the Redis session record. Generated when empty.
	SessionID string
}

// AccessTokenClaims represents the typed JWT issued to dashboard operators.
type AccessTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionID returns the jti carried by the token.
func (c *AccessTokenClaims) SessionID() string {
	if c == nil {
		return ""
	}
	return c.ID
}
