package grants_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-grants"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredential(t *testing.T, password string) *grants.Credential {
	t.Helper()

	hash, err := grants.HashPasswordCost(password, 4)
	require.NoError(t, err)

	return &grants.Credential{
		ID:           uuid.New(),
		Handle:       "ada",
		Email:        "ada@example.com",
		PasswordHash: hash,
		Roles:        []grants.UserRole{grants.RoleUser},
	}
}

func newTestGrantor(t *testing.T, store grants.CredentialStore) (*grants.Grantor, grants.TokenService) {
	t.Helper()

	cfg := testConfig(t)
	tokens := grants.NewTokenService(cfg, nil)
	return grants.NewGrantor(store, tokens, cfg), tokens
}

func TestGrant_PasswordSuccess(t *testing.T) {
	record := testCredential(t, "sekret")
	store := newStubStore(record)
	grantor, tokens := newTestGrantor(t, store)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantPassword,
		Handle:    "ada",
		Password:  "sekret",
	})
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.NotEmpty(t, result.AccessToken)
	assert.Empty(t, result.RefreshToken, "no refresh token unless remembered")
	assert.Same(t, record, result.Credential)

	claims, err := tokens.Verify(grants.TokenKindAccess, result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, record.ID.String(), claims.UserID())
	assert.True(t, claims.HasRole(grants.RoleUser))
	assert.Nil(t, claims.SecureStatusAt, "elevation must be requested explicitly")

	assert.Contains(t, store.touched, record.ID, "successful grants record activity")
}

func TestGrant_PasswordMismatch(t *testing.T) {
	store := newStubStore(testCredential(t, "sekret"))
	grantor, _ := newTestGrantor(t, store)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantPassword,
		Handle:    "ada",
		Password:  "wrong",
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, grants.ErrNotAuthenticated)
}

func TestGrant_UnknownHandle(t *testing.T) {
	store := newStubStore()
	grantor, _ := newTestGrantor(t, store)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantPassword,
		Handle:    "nobody",
		Password:  "sekret",
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, grants.ErrNotAuthenticated)
}

func TestGrant_SuspendedTakesPrecedence(t *testing.T) {
	record := testCredential(t, "sekret")
	record.Suspend()
	store := newStubStore(record)
	grantor, _ := newTestGrantor(t, store)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantPassword,
		Handle:    "ada",
		Password:  "sekret",
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, grants.ErrUserSuspended)
	assert.Empty(t, store.touched, "suspended grants never record activity")
}

func TestGrant_SecureStatusOnPasswordGrant(t *testing.T) {
	record := testCredential(t, "sekret")
	store := newStubStore(record)
	grantor, tokens := newTestGrantor(t, store)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType:    grants.GrantPassword,
		Handle:       "ada",
		Password:     "sekret",
		SecureStatus: true,
		Remember:     true,
	})
	require.NoError(t, err)

	claims, err := tokens.Verify(grants.TokenKindAccess, result.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, claims.SecureStatusAt)
	assert.True(t, claims.SecureStatusActive(time.Now()))
	assert.False(t, claims.SecureStatusActive(time.Now().Add(11*time.Minute)),
		"window closes after the configured duration")

	// The refresh token minted alongside carries no elevation.
	refreshClaims, err := tokens.Verify(grants.TokenKindRefresh, result.RefreshToken)
	require.NoError(t, err)
	assert.Nil(t, refreshClaims.SecureStatusAt)
}

func TestGrant_SecureStatusIgnoredOnRefreshGrant(t *testing.T) {
	record := testCredential(t, "sekret")
	store := newStubStore(record)
	grantor, tokens := newTestGrantor(t, store)

	refresh, err := tokens.Issue(grants.TokenKindRefresh, record.Claims())
	require.NoError(t, err)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType:    grants.GrantRefreshToken,
		Token:        refresh,
		SecureStatus: true,
	})
	require.NoError(t, err)

	claims, err := tokens.Verify(grants.TokenKindAccess, result.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, claims.SecureStatusAt, "elevation requires re-proving the password")
}

func TestGrant_RefreshTokenSuccess(t *testing.T) {
	record := testCredential(t, "sekret")
	store := newStubStore(record)
	grantor, tokens := newTestGrantor(t, store)

	refresh, err := tokens.Issue(grants.TokenKindRefresh, record.Claims())
	require.NoError(t, err)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantRefreshToken,
		Token:     refresh,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.AccessToken)
}

func TestGrant_RefreshRejectsAccessToken(t *testing.T) {
	record := testCredential(t, "sekret")
	store := newStubStore(record)
	grantor, tokens := newTestGrantor(t, store)

	access, err := tokens.Issue(grants.TokenKindAccess, record.Claims())
	require.NoError(t, err)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantRefreshToken,
		Token:     access,
	})
	assert.Nil(t, result)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, "NOT_AUTHENTICATED", richErr.TextCode)
}

func TestGrant_BearerSuccess(t *testing.T) {
	record := testCredential(t, "sekret")
	store := newStubStore(record)
	grantor, tokens := newTestGrantor(t, store)

	access, err := tokens.Issue(grants.TokenKindAccess, record.Claims())
	require.NoError(t, err)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantBearer,
		Token:     access,
	})
	require.NoError(t, err)
	assert.Same(t, record, result.Credential)
}

func TestGrant_TokenSubjectGone(t *testing.T) {
	record := testCredential(t, "sekret")
	store := newStubStore() // subject not in store
	grantor, tokens := newTestGrantor(t, store)

	refresh, err := tokens.Issue(grants.TokenKindRefresh, record.Claims())
	require.NoError(t, err)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantRefreshToken,
		Token:     refresh,
	})
	assert.Nil(t, result)
	assert.ErrorIs(t, err, grants.ErrNotAuthenticated)
}

func TestGrant_UnknownGrantType(t *testing.T) {
	store := newStubStore()
	grantor, _ := newTestGrantor(t, store)

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantType("apiKey"),
	})
	assert.Nil(t, result)
	require.Error(t, err)

	var richErr *errors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, "GRANT_TYPE_UNKNOWN", richErr.TextCode)
	assert.Equal(t, "apiKey", richErr.Metadata["grant_type"])
}

func TestGrant_CustomStrategy(t *testing.T) {
	record := testCredential(t, "sekret")
	store := newStubStore(record)
	grantor, _ := newTestGrantor(t, store)

	grantor.WithStrategy(grants.GrantType("apiKey"), strategyFunc(func(ctx context.Context, creds grants.Credentials) (*grants.Credential, error) {
		if creds.Token == "valid-key" {
			return record, nil
		}
		return nil, nil
	}))

	result, err := grantor.Grant(context.Background(), grants.GrantRequest{
		GrantType: grants.GrantType("apiKey"),
		Token:     "valid-key",
	})
	require.NoError(t, err)
	assert.Same(t, record, result.Credential)
}

type strategyFunc func(ctx context.Context, creds grants.Credentials) (*grants.Credential, error)

func (f strategyFunc) Attempt(ctx context.Context, creds grants.Credentials) (*grants.Credential, error) {
	return f(ctx, creds)
}

func TestGrantRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     grants.GrantRequest
		wantErr bool
	}{
		{"password ok", grants.GrantRequest{GrantType: grants.GrantPassword, Handle: "ada", Password: "pw"}, false},
		{"password missing handle", grants.GrantRequest{GrantType: grants.GrantPassword, Password: "pw"}, true},
		{"password missing password", grants.GrantRequest{GrantType: grants.GrantPassword, Handle: "ada"}, true},
		{"refresh ok", grants.GrantRequest{GrantType: grants.GrantRefreshToken, Token: "tok"}, false},
		{"refresh missing token", grants.GrantRequest{GrantType: grants.GrantRefreshToken}, true},
		{"bearer ok", grants.GrantRequest{GrantType: grants.GrantBearer, Token: "tok"}, false},
		{"missing grant type", grants.GrantRequest{Handle: "ada", Password: "pw"}, true},
		{"unknown grant type", grants.GrantRequest{GrantType: grants.GrantType("nope"), Token: "tok"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
