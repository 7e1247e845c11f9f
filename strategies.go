package grants

import (
	"context"

	"github.com/goliatone/go-errors"
)

// GrantType selects the verification strategy for a grant request. New grant
// types are added by registering a new Strategy variant, never by matching
// arbitrary strings at runtime.
type GrantType string

const (
	// GrantPassword exchanges a handle and password for tokens.
	GrantPassword GrantType = "password"
	// GrantRefreshToken exchanges a refresh token for a fresh access token.
	GrantRefreshToken GrantType = "refreshToken"
	// GrantBearer re-validates an access token.
	GrantBearer GrantType = "bearer"
)

// passwordStrategy resolves a credential by handle and password comparison.
// A missing handle or a mismatched password is a no-match, never a fault.
type passwordStrategy struct {
	store CredentialStore
}

func (s passwordStrategy) Attempt(ctx context.Context, creds Credentials) (*Credential, error) {
	record, err := s.store.GetByHandle(ctx, creds.Handle)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to retrieve credential during verification")
	}

	if err := ComparePasswordAndHash(creds.Password, record.PasswordHash); err != nil {
		if errors.Is(err, ErrMismatchedHashAndPassword) {
			return nil, nil
		}
		return nil, err
	}

	return record, nil
}

// tokenStrategy resolves a credential from a verified token of a fixed kind.
// Refresh and bearer grants differ only in the kind they verify under.
type tokenStrategy struct {
	kind   TokenKind
	tokens TokenService
	store  CredentialStore
}

func (s tokenStrategy) Attempt(ctx context.Context, creds Credentials) (*Credential, error) {
	claims, err := s.tokens.Verify(s.kind, creds.Token)
	if err != nil {
		return nil, err
	}

	id, err := claims.UserUUID()
	if err != nil {
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, "token subject is not a valid id").
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	record, err := s.store.FindByID(ctx, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to resolve token subject")
	}

	return record, nil
}
