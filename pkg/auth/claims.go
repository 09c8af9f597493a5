package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

// AccessTokenPayload captures the data available when minting an admin JWT.
type AccessTokenPayload struct {
	Email string
	// JTI doubles as the redis session id so tokens can be revoked.
	JTI string
}

// AccessTokenClaims represents the typed JWT issued to the admin dashboard.
type AccessTokenClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionID returns the jti used to key the stored admin session.
func (c *AccessTokenClaims) SessionID() string {
	return c.ID
}
