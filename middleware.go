package grants

import (
	"strings"
	"sync"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// Authenticate returns middleware that attaches a principal to the request
// lifecycle: it extracts a bearer token from the Authorization header,
// verifies it as an access token, resolves the credential, and stores both
// claims and credential for downstream guards. Suspension is not enforced
// here; that gate belongs to EnsureAuthenticated.
func Authenticate(grantor *Grantor, cfg *Config, opts ...AuthOption) router.MiddlewareFunc {
	options := authOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			raw := bearerToken(c, cfg.GetAuthScheme())
			if raw == "" {
				if options.optional {
					return c.Next()
				}
				return ErrNotAuthenticated
			}

			claims, err := grantor.tokens.Verify(TokenKindAccess, raw)
			if err != nil {
				if options.optional {
					return c.Next()
				}
				return errors.Wrap(err, ErrNotAuthenticated.Category, ErrNotAuthenticated.Message).
					WithTextCode(ErrNotAuthenticated.TextCode).
					WithCode(ErrNotAuthenticated.Code)
			}

			id, err := claims.UserUUID()
			if err != nil {
				return ErrNotAuthenticated
			}

			record, err := grantor.store.FindByID(c.Context(), id)
			if err != nil {
				if errors.IsNotFound(err) {
					return ErrNotAuthenticated
				}
				return errors.Wrap(err, errors.CategoryInternal, "failed to resolve authenticated credential")
			}

			ctx := WithClaimsContext(c.Context(), claims)
			ctx = WithCredentialContext(ctx, record)
			c.SetContext(ctx)
			c.Locals(cfg.GetContextKey(), claims)

			return c.Next()
		}
	}
}

type authOptions struct {
	optional bool
}

// AuthOption configures the Authenticate middleware.
type AuthOption func(*authOptions)

// WithOptionalAuth lets unauthenticated requests proceed without a principal
// instead of failing. Downstream guards still reject them.
func WithOptionalAuth() AuthOption {
	return func(o *authOptions) {
		o.optional = true
	}
}

func bearerToken(c router.Context, scheme string) string {
	header := c.Header("Authorization")
	if header == "" {
		return ""
	}

	if scheme == "" {
		return strings.TrimSpace(header)
	}

	prefix := scheme + " "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}

	return strings.TrimSpace(header[len(prefix):])
}

// EnsureAuthenticated returns a guard requiring a principal attached earlier
// in the request lifecycle. With no roles it is an authentication-only
// check; with roles the principal must hold at least one of them. Suspension
// takes precedence over role checks.
func EnsureAuthenticated(roles ...UserRole) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			record, ok := CredentialFromContext(c.Context())
			if !ok || record == nil {
				return ErrNotAuthenticated
			}

			if record.IsSuspended {
				return ErrUserSuspended
			}

			if len(roles) > 0 && !record.HasAnyRole(roles...) {
				return ErrNotAuthorized.Clone().WithMetadata(map[string]any{
					"required_roles": roles,
				})
			}

			return c.Next()
		}
	}
}

// OwnerPrincipal is the conventional owner key naming the authenticated
// credential itself.
const OwnerPrincipal = "me"

// OwnerRefResolver extracts the owner-reference identifier from a preloaded
// item. The boolean reports whether the item carries the expected property.
type OwnerRefResolver func(item any) (string, bool)

// UserOwned is the conventional owning-user accessor. Resources that belong
// to a credential implement it to participate in ownership checks without
// registry configuration.
type UserOwned interface {
	GetUserID() uuid.UUID
}

var ownerRefMu sync.RWMutex
var ownerRefRegistry = map[string]OwnerRefResolver{
	"user_id": userOwnerRef,
}

// defaultOwnerProps maps owner keys to their conventional owner-reference
// property when the guard is built without an explicit one.
var defaultOwnerProps = map[string]string{
	OwnerPrincipal: "user_id",
	"user":         "user_id",
	"credential":   "user_id",
}

// RegisterOwnerRef registers an accessor under a property key so guards can
// resolve owner references without reflection.
func RegisterOwnerRef(propKey string, resolver OwnerRefResolver) {
	ownerRefMu.Lock()
	defer ownerRefMu.Unlock()
	ownerRefRegistry[propKey] = resolver
}

func lookupOwnerRef(propKey string) (OwnerRefResolver, bool) {
	ownerRefMu.RLock()
	defer ownerRefMu.RUnlock()
	resolver, ok := ownerRefRegistry[propKey]
	return resolver, ok
}

type belongsToGuard struct {
	itemKey     string
	ownerKey    string
	propKey     string
	resolver    OwnerRefResolver
	bypassRoles []UserRole
}

// BelongsToOption configures the ownership guard at setup time.
type BelongsToOption func(*belongsToGuard)

// WithOwnerProp selects the registered accessor for the given property key.
func WithOwnerProp(propKey string) BelongsToOption {
	return func(g *belongsToGuard) {
		g.propKey = propKey
	}
}

// WithOwnerRefResolver supplies the accessor directly, bypassing the registry.
func WithOwnerRefResolver(resolver OwnerRefResolver) BelongsToOption {
	return func(g *belongsToGuard) {
		g.resolver = resolver
	}
}

// WithBypassRoles lets principals holding any of the given roles pass the
// guard regardless of ownership.
func WithBypassRoles(roles ...UserRole) BelongsToOption {
	return func(g *belongsToGuard) {
		g.bypassRoles = roles
	}
}

// BelongsTo builds a guard comparing a preloaded item's owner reference
// against a preloaded owner's identity. Both are read from request locals;
// the owner key OwnerPrincipal resolves to the authenticated credential.
//
// Misconfiguration is a setup-time error: an empty key, an unregistered
// property key, or an owner key with no conventional property and no
// explicit accessor all fail here, never at request time.
func BelongsTo(itemKey, ownerKey string, opts ...BelongsToOption) (router.MiddlewareFunc, error) {
	guard := &belongsToGuard{
		itemKey:  itemKey,
		ownerKey: ownerKey,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(guard)
		}
	}

	if guard.itemKey == "" || guard.ownerKey == "" {
		return nil, errors.New("belongsTo guard requires item and owner keys", errors.CategoryInternal).
			WithTextCode("GUARD_MISCONFIGURED")
	}

	if guard.resolver == nil {
		propKey := guard.propKey
		if propKey == "" {
			conventional, ok := defaultOwnerProps[guard.ownerKey]
			if !ok {
				return nil, errors.New("belongsTo guard has no owner property for key", errors.CategoryInternal).
					WithTextCode("GUARD_MISCONFIGURED").
					WithMetadata(map[string]any{"owner_key": guard.ownerKey})
			}
			propKey = conventional
		}

		resolver, ok := lookupOwnerRef(propKey)
		if !ok {
			return nil, errors.New("belongsTo guard has no accessor registered for property", errors.CategoryInternal).
				WithTextCode("GUARD_MISCONFIGURED").
				WithMetadata(map[string]any{"prop_key": propKey})
		}
		guard.resolver = resolver
	}

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return guard.handle
	}, nil
}

func (g *belongsToGuard) handle(c router.Context) error {
	principal, _ := CredentialFromContext(c.Context())

	if len(g.bypassRoles) > 0 && principal != nil && principal.HasAnyRole(g.bypassRoles...) {
		return c.Next()
	}

	ownerID, err := g.resolveOwner(c, principal)
	if err != nil {
		return err
	}

	item := c.Locals(g.itemKey)
	if item == nil {
		return ErrServer.Clone().WithMetadata(map[string]any{
			"reason":   "item not preloaded",
			"item_key": g.itemKey,
		})
	}

	ref, ok := g.resolver(item)
	if !ok {
		return ErrServer.Clone().WithMetadata(map[string]any{
			"reason":   "item has no owner reference",
			"item_key": g.itemKey,
		})
	}

	if ref != ownerID {
		return ErrNotAuthorized
	}

	return c.Next()
}

func (g *belongsToGuard) resolveOwner(c router.Context, principal *Credential) (string, error) {
	if g.ownerKey == OwnerPrincipal {
		if principal == nil {
			return "", ErrServer.Clone().WithMetadata(map[string]any{
				"reason": "principal not attached",
			})
		}
		return principal.ID.String(), nil
	}

	owner := c.Locals(g.ownerKey)
	if owner == nil {
		return "", ErrServer.Clone().WithMetadata(map[string]any{
			"reason":    "owner not preloaded",
			"owner_key": g.ownerKey,
		})
	}

	id, ok := ownerIdentity(owner)
	if !ok {
		return "", ErrServer.Clone().WithMetadata(map[string]any{
			"reason":    "owner carries no identity",
			"owner_key": g.ownerKey,
		})
	}

	return id, nil
}

// ownerIdentity normalizes an owner reference: it may be a raw identifier or
// a populated object carrying one.
func ownerIdentity(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, v != ""
	case uuid.UUID:
		return v.String(), v != uuid.Nil
	case *uuid.UUID:
		if v == nil {
			return "", false
		}
		return v.String(), *v != uuid.Nil
	case *Credential:
		if v == nil {
			return "", false
		}
		return v.ID.String(), v.ID != uuid.Nil
	case UserOwned:
		id := v.GetUserID()
		return id.String(), id != uuid.Nil
	case map[string]any:
		if id, ok := v["id"]; ok {
			return ownerIdentity(id)
		}
		return "", false
	default:
		return "", false
	}
}

// userOwnerRef is the conventional owning-user accessor: structs implement
// UserOwned, generic records expose a user_id entry.
func userOwnerRef(item any) (string, bool) {
	switch it := item.(type) {
	case UserOwned:
		id := it.GetUserID()
		return id.String(), id != uuid.Nil
	case map[string]any:
		if v, ok := it["user_id"]; ok {
			return ownerIdentity(v)
		}
		return "", false
	default:
		return "", false
	}
}
