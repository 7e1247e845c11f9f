package grants

import (
	"strings"

	"github.com/goliatone/go-errors"
)

// Sentinel errors for the grant flow. Handlers branch on these rather than
// inspecting cause chains; the orchestrator wraps underlying failures so the
// boundary only ever sees this taxonomy.
var (
	// ErrNotAuthenticated means no valid principal could be established.
	ErrNotAuthenticated = errors.New("not authenticated", errors.CategoryAuth).
				WithTextCode("NOT_AUTHENTICATED").
				WithCode(errors.CodeUnauthorized)

	// ErrNotAuthorized means the principal lacks permission for the resource.
	ErrNotAuthorized = errors.New("not authorized", errors.CategoryAuthz).
				WithTextCode("NOT_AUTHORIZED").
				WithCode(errors.CodeForbidden)

	// ErrUserSuspended means the principal resolved but the account is blocked.
	// Suspension takes precedence over every other success path.
	ErrUserSuspended = errors.New("user account suspended", errors.CategoryAuthz).
				WithTextCode("USER_SUSPENDED").
				WithCode(errors.CodeForbidden)

	// ErrTokenExpired is returned when a token is outside its validity window.
	ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
			WithTextCode("TOKEN_EXPIRED").
			WithCode(errors.CodeUnauthorized)

	// ErrTokenMalformed is returned when a token cannot be parsed.
	ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
				WithTextCode("TOKEN_MALFORMED").
				WithCode(errors.CodeUnauthorized)

	// ErrTokenWrongKind is returned when a token verifies but was minted for
	// a different kind, e.g. a refresh token presented as a bearer token.
	ErrTokenWrongKind = errors.New("token kind mismatch", errors.CategoryAuth).
				WithTextCode("TOKEN_WRONG_KIND").
				WithCode(errors.CodeUnauthorized)

	// ErrTokenSignatureInvalid is returned on signature mismatch.
	ErrTokenSignatureInvalid = errors.New("token signature mismatch", errors.CategoryAuth).
					WithTextCode("TOKEN_SIGNATURE_INVALID").
					WithCode(errors.CodeUnauthorized)

	// ErrTokenKindNotConfigured means Issue or Verify was called for a kind
	// that has no registered expiration, issuer, or audience.
	ErrTokenKindNotConfigured = errors.New("token kind not configured", errors.CategoryInternal).
					WithTextCode("TOKEN_KIND_NOT_CONFIGURED").
					WithCode(errors.CodeInternal)

	// ErrMismatchedHashAndPassword is returned when a password does not match
	// the stored hash. The password strategy treats it as a no-match.
	ErrMismatchedHashAndPassword = errors.New("mismatched hash and password", errors.CategoryAuth).
					WithTextCode("PASSWORD_MISMATCH").
					WithCode(errors.CodeUnauthorized)

	// ErrPasswordRequired is raised when a save would persist an empty
	// password hash.
	ErrPasswordRequired = errors.New("password is required", errors.CategoryValidation).
				WithTextCode("PASSWORD_REQUIRED").
				WithMetadata(map[string]any{"field": "password"})

	// ErrPasswordHashInvalid means the stored hash is not a valid bcrypt
	// digest. This is a data integrity fault, never caused by caller input.
	ErrPasswordHashInvalid = errors.New("stored password hash is invalid", errors.CategoryInternal).
				WithTextCode("PASSWORD_HASH_INVALID").
				WithCode(errors.CodeInternal)

	// ErrHandleExhausted means every generated handle candidate was taken.
	// Callers may retry with a fresh random draw.
	ErrHandleExhausted = errors.New("handle generation exhausted candidates", errors.CategoryOperation).
				WithTextCode("HANDLE_EXHAUSTED")

	// ErrGrantTypeUnknown means the request named a grant type with no
	// registered strategy. The boundary decides the fallback behavior.
	ErrGrantTypeUnknown = errors.New("unknown grant type", errors.CategoryBadInput).
				WithTextCode("GRANT_TYPE_UNKNOWN")

	// ErrServer signals an internal precondition violation such as a guard
	// running without its preloaded context. Log loudly, leak nothing.
	ErrServer = errors.New("internal server error", errors.CategoryInternal).
			WithTextCode("SERVER_ERROR").
			WithCode(errors.CodeInternal)
)

// IsNoMatch reports whether an error maps to the not-authenticated outcome.
func IsNoMatch(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrMismatchedHashAndPassword) || errors.IsNotFound(err)
}

// IsTokenExpiredError will check for expired tokens, including legacy
// string-matched errors from upstream JWT libraries.
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for malformed token errors.
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}
