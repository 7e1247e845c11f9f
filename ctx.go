package grants

import (
	"context"
	"time"

	"github.com/goliatone/go-router"
)

var credentialCtxKey = &contextKey{"credential"}
var claimsCtxKey = &contextKey{"claims"}

type contextKey struct {
	name string
}

// WithCredentialContext sets the authenticated Credential in the given context
func WithCredentialContext(r context.Context, record *Credential) context.Context {
	return context.WithValue(r, credentialCtxKey, record)
}

// CredentialFromContext finds the authenticated credential in the context.
func CredentialFromContext(ctx context.Context) (*Credential, bool) {
	raw, ok := ctx.Value(credentialCtxKey).(*Credential)
	return raw, ok
}

// WithClaimsContext sets the GrantClaims in the given context
func WithClaimsContext(r context.Context, claims *GrantClaims) context.Context {
	return context.WithValue(r, claimsCtxKey, claims)
}

// ClaimsFromContext extracts the GrantClaims from the standard context
func ClaimsFromContext(ctx context.Context) (*GrantClaims, bool) {
	raw, ok := ctx.Value(claimsCtxKey).(*GrantClaims)
	return raw, ok
}

// GetRouterClaims extracts the GrantClaims from the router context locals
func GetRouterClaims(ctx router.Context, key string) (*GrantClaims, bool) {
	if key == "" {
		key = "claims"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	claims, ok := raw.(*GrantClaims)
	return claims, ok
}

// HasSecureStatus is a convenience check for handlers that require a live
// elevated-trust window, such as password or email changes.
func HasSecureStatus(ctx context.Context) bool {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return false
	}
	return claims.SecureStatusActive(time.Now())
}
