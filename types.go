package grants

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// TokenService issues and verifies signed tokens per kind. Each kind carries
// its own expiration, issuer, and audience from the immutable Config.
type TokenService interface {
	Issue(kind TokenKind, claims *GrantClaims) (string, error)
	Verify(kind TokenKind, raw string) (*GrantClaims, error)
	Expiration(kind TokenKind) (int, error)
}

// CredentialStore is the persistence capability the grant flow consumes.
type CredentialStore interface {
	GetByHandle(ctx context.Context, handle string) (*Credential, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Credential, error)
	FindByHandles(ctx context.Context, handles []string) ([]string, error)
	Save(ctx context.Context, record *Credential) (*Credential, error)
}

// ActivityTracker is implemented by stores that record advisory activity
// timestamps. Failures are logged, never surfaced to the caller.
type ActivityTracker interface {
	TouchLastActive(ctx context.Context, id uuid.UUID) error
}

// Strategy resolves a credential from grant input. A nil credential with a
// nil error means no-match: invalid credentials are a normal outcome, not a
// fault. Strategies never apply authorization policy such as suspension.
type Strategy interface {
	Attempt(ctx context.Context, creds Credentials) (*Credential, error)
}

// Credentials is the strategy input. Each strategy reads the fields it needs.
type Credentials struct {
	Handle   string
	Password string
	Token    string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] GRANTS "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] GRANTS "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] GRANTS "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] GRANTS "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
