package auth

import (
	"context"
	"errors"
	"strings"
)

// Principal methods.
const (
	MethodAPIKey   = "apikey"
	MethodFirebase = "firebase"
)

// Principal is the authenticated caller. OwnerID scopes every profile
// operation.
type Principal struct {
	OwnerID string
	Method  string
}

// Error types for authentication failures.
var (
	// ErrNoToken indicates missing Authorization header.
	ErrNoToken = errors.New("missing authorization header")

	// ErrInvalidToken indicates an unknown key or an invalid token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrTokenExpired indicates the token has expired.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenRevoked indicates the token has been revoked.
	ErrTokenRevoked = errors.New("token revoked")

	// ErrUserDisabled indicates the user account is disabled.
	ErrUserDisabled = errors.New("user disabled")

	// ErrUnavailable indicates the credential store or the Firebase
	// public keys could not be reached. It results in HTTP 503.
	ErrUnavailable = errors.New("authentication backend unavailable")
)

// Verifier resolves a bearer credential to a Principal.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*Principal, error)
}

// ExtractBearerToken extracts the token from Authorization header.
func ExtractBearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrNoToken
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
		return "", ErrInvalidToken
	}
	return parts[1], nil
}

type principalContextKey struct{}

// WithPrincipal stores p in ctx.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal.
// Returns nil if the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
