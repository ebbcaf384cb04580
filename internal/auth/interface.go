// Package auth verifies the backend-issued credential against a JWKS
// endpoint. The backend stays the authority; verification is informational.
package auth

import (
	"context"

	"projectdesk/internal/domain/models"
)

// JWTVerifier defines the interface for JWT token verification.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or has an invalid signature.
	VerifyToken(ctx context.Context, tokenString string) (*models.TokenClaims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
