package models

import "github.com/golang-jwt/jwt/v5"

// User is the account behind the current credential.
type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// TokenResponse is what both /api/token and /api/users return.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type,omitempty"`
}

// TokenClaims are the claims carried by the backend-issued credential.
// They are decoded for display only; the backend stays the authority.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"id,omitempty"`
	Username string `json:"username,omitempty"`
}

// GetUserID returns the subject, falling back to the username claim.
func (c *TokenClaims) GetUserID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.Username
}
