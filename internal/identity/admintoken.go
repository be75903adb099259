// Package identity issues and verifies the operator tokens that guard
// privileged registry endpoints.
package identity

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AdminTokenClaims are the JWT claims for a Starkeep operator token.
type AdminTokenClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"` // always "admin"
}

// AdminTokenIssuer issues and verifies operator JWTs signed with the
// configured admin secret (HS256).
type AdminTokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewAdminTokenIssuer creates an AdminTokenIssuer.
//
//	secret    — the shared admin secret; also the HMAC signing key.
//	issuerURL — the "iss" claim value; matches the registry's base URL.
//	ttl       — token lifetime (default: 1 hour).
func NewAdminTokenIssuer(secret, issuerURL string, ttl time.Duration) *AdminTokenIssuer {
	if ttl == 0 {
		ttl = time.Hour
	}
	return &AdminTokenIssuer{secret: []byte(secret), issuer: issuerURL, ttl: ttl}
}

// Issue creates a signed operator token.
func (a *AdminTokenIssuer) Issue() (string, error) {
	now := time.Now().UTC()
	claims := AdminTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   "starkeep-admin",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
			ID:        uuid.New().String(),
		},
		Role: "admin",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates an operator token, returning its claims.
func (a *AdminTokenIssuer) Verify(tokenStr string) (*AdminTokenClaims, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&AdminTokenClaims{},
		func(tok *jwt.Token) (any, error) {
			if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
			}
			return a.secret, nil
		},
		jwt.WithIssuer(a.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("verify admin token: %w", err)
	}
	claims, ok := token.Claims.(*AdminTokenClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid admin token claims")
	}
	if claims.Role != "admin" {
		return nil, fmt.Errorf("not an admin token")
	}
	return claims, nil
}
