package auth

import (
	"fmt"
	"time"

	"github.com/desertthunder/cinex/internal/shared"
	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access token fields cinex reads.
//
// The signature is never verified here; only the backend holds the key. Nothing in the session
// state machine depends on these values.
type Claims struct {
	TokenType string `json:"token_type"`
	UserID    int    `json:"user_id"`
	jwt.RegisteredClaims
}

// ParseClaims decodes a JWT access token without verifying it.
func ParseClaims(access string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(access, claims); err != nil {
		return nil, fmt.Errorf("%w: access token is not a JWT: %v", shared.ErrDecode, err)
	}
	return claims, nil
}

// Expiry reports when the current access token expires. ok is false when signed out or when the
// token carries no readable exp claim.
func (s *Session) Expiry() (exp time.Time, ok bool) {
	tok := s.Token()
	if tok == nil {
		return time.Time{}, false
	}
	claims, err := ParseClaims(tok.AccessToken)
	if err != nil || claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
