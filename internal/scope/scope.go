package scope

import (
	"context"
	"fmt"
	"log"

	"github.com/golang-jwt/jwt/v5"
)

// TokenParser extracts the user scope from the remote service's
// bearer token. Tokens are only parsed here, never issued.
type TokenParser struct {
	Secret []byte
	Issuer string
}

type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// ScopeID returns the stable identity the token belongs to: the
// user_id claim when present, else the subject.
func (p TokenParser) ScopeID(tokenString string) (string, error) {
	tok, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		// enforce HS256
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return p.Secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return "", fmt.Errorf("invalid token claims")
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", fmt.Errorf("token carries no scope identity")
}

// Marker persists the last seen scope id. *store.Store satisfies it.
type Marker interface {
	ScopeMarker(ctx context.Context) (string, error)
	SetScopeMarker(ctx context.Context, scope string) error
}

// Guard detects identity switches: when the observed scope differs
// from the persisted marker, every cached category is reset before
// the new marker is recorded.
type Guard struct {
	Marker  Marker
	OnReset func(ctx context.Context) error
}

// Check compares the observed scope against the stored marker and
// triggers a full reset on mismatch. Returns whether a switch was
// detected.
func (g *Guard) Check(ctx context.Context, scopeID string) (bool, error) {
	if scopeID == "" {
		return false, nil
	}

	current, err := g.Marker.ScopeMarker(ctx)
	if err != nil {
		return false, fmt.Errorf("scope: read marker: %w", err)
	}
	if current == scopeID {
		return false, nil
	}

	if current != "" {
		log.Printf("[scope] identity switch detected, resetting caches")
		if g.OnReset != nil {
			if err := g.OnReset(ctx); err != nil {
				return false, fmt.Errorf("scope: reset: %w", err)
			}
		}
	}

	if err := g.Marker.SetScopeMarker(ctx, scopeID); err != nil {
		return false, fmt.Errorf("scope: write marker: %w", err)
	}
	return current != "", nil
}
