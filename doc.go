// Package grants issues and verifies identity tokens for HTTP applications
// and enforces role- and ownership-based access control.
//
// Grant flow:
//   - Grantor orchestrates grant requests over three interchangeable
//     verification strategies: password, refreshToken, and bearer. Each
//     strategy resolves a credential; policy (suspension, roles) is applied
//     by the orchestrator and the guards, never inside a strategy.
//   - TokenService mints and verifies per-kind tokens (access, refresh,
//     reset_password), each with its own expiration, issuer, and audience
//     drawn from an immutable Config built once at startup.
//   - A password grant may request a short secure-status elevation window;
//     refresh and bearer grants can never renew it without re-proving the
//     password.
//
// Credentials:
//   - Credential records carry a salted bcrypt password hash (never
//     serialized), a role set with membership semantics, and a suspension
//     flag that blocks authentication regardless of credential validity.
//   - Save runs a fixed transform pipeline: normalize names, derive the
//     full name, hash the password when it changed, then persist.
//   - GenerateHandle derives a unique human-usable handle from name and
//     email data, best-effort: the unique index arbitrates races and
//     callers retry with a fresh random draw.
//
// Guards:
//   - Authenticate attaches a principal from a bearer token. After that,
//     EnsureAuthenticated gates on roles and BelongsTo compares a preloaded
//     resource's owner reference against the principal, with optional
//     role-based bypass. Owner references resolve through explicit
//     registered accessors, not reflection.
package grants
