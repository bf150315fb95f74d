package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/jwtauth/v5"

	"github.com/flightkoy/questboard/internal/questboard"
)

var ErrInvalidToken = errors.New("invalid token")

// Identity is who a bearer token speaks for.
type Identity struct {
	UserName string
	Role     questboard.Role
}

func (i Identity) IsAdmin() bool { return i.Role == questboard.RoleAdmin }

// Tokens signs and verifies HS256 bearer tokens with sub and role claims.
type Tokens struct {
	ja  *jwtauth.JWTAuth
	ttl time.Duration
}

func NewTokens(secret []byte, ttl time.Duration) *Tokens {
	return &Tokens{
		ja:  jwtauth.New("HS256", secret, nil),
		ttl: ttl,
	}
}

func (t *Tokens) Issue(userName string, role questboard.Role) (string, error) {
	claims := map[string]any{
		"sub":  userName,
		"role": string(role),
	}
	jwtauth.SetIssuedNow(claims)
	if t.ttl != 0 {
		jwtauth.SetExpiryIn(claims, t.ttl)
	}
	_, token, err := t.ja.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return token, nil
}

// Verifier finds a token in the Authorization header or the jwt cookie,
// verifies it and stores the result in the request context.
func (t *Tokens) Verifier() func(http.Handler) http.Handler {
	return jwtauth.Verifier(t.ja)
}

// FromContext returns the identity verified by Verifier.
func FromContext(ctx context.Context) (Identity, error) {
	token, claims, err := jwtauth.FromContext(ctx)
	if err != nil || token == nil {
		return Identity{}, ErrInvalidToken
	}
	return IdentityFromClaims(claims)
}

func IdentityFromClaims(claims map[string]any) (Identity, error) {
	sub, _ := claims["sub"].(string)
	role, _ := claims["role"].(string)
	if sub == "" {
		return Identity{}, fmt.Errorf("%w: sub claim is missing", ErrInvalidToken)
	}
	switch questboard.Role(role) {
	case questboard.RolePlayer, questboard.RoleAdmin:
	default:
		return Identity{}, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, role)
	}
	return Identity{UserName: sub, Role: questboard.Role(role)}, nil
}
