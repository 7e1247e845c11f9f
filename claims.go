package grants

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKind selects the configuration a token is minted and verified under.
type TokenKind string

const (
	// TokenKindAccess is the short-lived token carried on API requests.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh is the long-lived token delivered via cookie.
	TokenKindRefresh TokenKind = "refresh"
	// TokenKindResetPassword is the single-use token for password resets.
	TokenKindResetPassword TokenKind = "reset_password"
)

// GrantClaims is the claims payload this package defines. The kind tag is
// embedded so a token verifies only under the kind it was minted for.
type GrantClaims struct {
	jwt.RegisteredClaims
	UID            string           `json:"uid,omitempty"`
	Roles          []string         `json:"roles,omitempty"`
	Kind           TokenKind        `json:"knd,omitempty"`
	SecureStatusAt *jwt.NumericDate `json:"sst,omitempty"`
}

// UserID returns the user ID
func (c *GrantClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// UserUUID parses the subject as a UUID.
func (c *GrantClaims) UserUUID() (uuid.UUID, error) {
	return uuid.Parse(c.UserID())
}

// HasRole checks membership in the roles snapshot.
func (c *GrantClaims) HasRole(role string) bool {
	return rolesContain(c.Roles, role)
}

// HasAnyRole reports whether the snapshot holds at least one of the given
// roles.
func (c *GrantClaims) HasAnyRole(roles ...string) bool {
	return rolesIntersect(c.Roles, roles)
}

// SecureStatusActive reports whether the elevated-trust window is still open
// at the given instant. Tokens without elevation always report false.
func (c *GrantClaims) SecureStatusActive(now time.Time) bool {
	if c.SecureStatusAt == nil {
		return false
	}
	return now.Before(c.SecureStatusAt.Time)
}

// Expires returns the expiration time
func (c *GrantClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *GrantClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// ensureTokenID backfills a fresh jti. Single-use tokens such as password
// resets rely on it; collaborators track consumed ids.
func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
