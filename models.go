package grants

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credential is the account record the grant flow authenticates against.
// PasswordHash never serializes: external representations must not carry it.
type Credential struct {
	bun.BaseModel `bun:"table:credentials,alias:crd"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Handle        string     `bun:"handle,notnull,unique" json:"handle,omitempty"`
	FirstName     string     `bun:"first_name" json:"first_name,omitempty"`
	LastName      string     `bun:"last_name" json:"last_name,omitempty"`
	FullName      string     `bun:"full_name" json:"full_name,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	Roles         []UserRole `bun:"roles,notnull" json:"roles,omitempty"`
	IsSuspended   bool       `bun:"is_suspended" json:"is_suspended,omitempty"`
	SuspendedAt   *time.Time `bun:"suspended_at,nullzero" json:"suspended_at,omitempty"`
	LastActiveAt  *time.Time `bun:"last_active_at,nullzero" json:"last_active_at,omitempty"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt     *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`

	// rawPassword holds a pending cleartext password until Save hashes it.
	// It is deliberately unexported so neither bun nor JSON can touch it.
	rawPassword        string
	rawPasswordChanged bool
}

// SetPassword stages a new cleartext password. The hash transform runs once,
// during Save, and fails the save when the staged value is empty.
func (c *Credential) SetPassword(raw string) *Credential {
	c.rawPassword = raw
	c.rawPasswordChanged = true
	return c
}

// PasswordChanged reports whether a staged password awaits hashing.
func (c *Credential) PasswordChanged() bool {
	return c.rawPasswordChanged
}

// HasRole checks membership in the credential's role set.
func (c *Credential) HasRole(role UserRole) bool {
	return rolesContain(c.Roles, role)
}

// HasAnyRole reports whether the credential holds at least one of the given
// roles. An empty argument list never matches.
func (c *Credential) HasAnyRole(roles ...UserRole) bool {
	return rolesIntersect(c.Roles, roles)
}

// AddRole appends a role to the membership set. Idempotent.
func (c *Credential) AddRole(role UserRole) *Credential {
	if !c.HasRole(role) {
		c.Roles = append(c.Roles, role)
	}
	return c
}

// Claims builds the token claims view of this credential: id plus a snapshot
// of roles at issuance time. Tokens never re-read roles from storage.
func (c *Credential) Claims() *GrantClaims {
	roles := make([]string, len(c.Roles))
	copy(roles, c.Roles)

	return &GrantClaims{
		UID:   c.ID.String(),
		Roles: roles,
	}
}

// EnsureDefaults backfills the id and baseline role for new records.
func (c *Credential) EnsureDefaults() {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	if len(c.Roles) == 0 {
		c.Roles = []UserRole{RoleUser}
	}
}

// NormalizeNames applies the canonicalization transform to the display name
// fields and recomputes the derived full name. Safe to apply repeatedly.
func (c *Credential) NormalizeNames() {
	c.FirstName = CleanName(c.FirstName)
	c.LastName = CleanName(c.LastName)
	c.FullName = FullName(c.FirstName, c.LastName)
}

// Suspend marks the credential as blocked for all authentication.
func (c *Credential) Suspend() *Credential {
	c.IsSuspended = true
	now := time.Now()
	c.SuspendedAt = &now
	return c
}

// Reinstate lifts a suspension.
func (c *Credential) Reinstate() *Credential {
	c.IsSuspended = false
	c.SuspendedAt = nil
	return c
}
