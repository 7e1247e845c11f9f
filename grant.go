package grants

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// GrantRequest is the inbound grant payload. Strategy-specific credentials
// ride alongside the common flags.
type GrantRequest struct {
	GrantType    GrantType `json:"grant_type"`
	Handle       string    `json:"handle"`
	Password     string    `json:"password"`
	Token        string    `json:"token"`
	Remember     bool      `json:"remember"`
	SecureStatus bool      `json:"secure_status"`
}

// Validate checks the shape of the request before any strategy runs.
func (r GrantRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(
			&r.GrantType,
			validation.Required,
			validation.In(GrantPassword, GrantRefreshToken, GrantBearer),
		),
	)
	if err != nil {
		return err
	}

	switch r.GrantType {
	case GrantPassword:
		return validation.ValidateStruct(&r,
			validation.Field(&r.Handle, validation.Required),
			validation.Field(&r.Password, validation.Required),
		)
	case GrantRefreshToken, GrantBearer:
		return validation.ValidateStruct(&r,
			validation.Field(&r.Token, validation.Required),
		)
	}

	return nil
}

// GrantResult is what a successful grant produces. The refresh token is only
// present when the caller asked to be remembered; cookie delivery is the
// HTTP boundary's job.
type GrantResult struct {
	AccessToken  string
	RefreshToken string
	Credential   *Credential
}

// Grantor orchestrates a grant request: strategy selection, verification,
// the suspension gate, claims building, and token minting. It never writes
// to the response or the database directly.
type Grantor struct {
	store      CredentialStore
	tokens     TokenService
	cfg        *Config
	logger     Logger
	strategies map[GrantType]Strategy
}

// NewGrantor wires the three built-in strategies against the given store and
// token service.
func NewGrantor(store CredentialStore, tokens TokenService, cfg *Config) *Grantor {
	return &Grantor{
		store:  store,
		tokens: tokens,
		cfg:    cfg,
		logger: defLogger{},
		strategies: map[GrantType]Strategy{
			GrantPassword:     passwordStrategy{store: store},
			GrantRefreshToken: tokenStrategy{kind: TokenKindRefresh, tokens: tokens, store: store},
			GrantBearer:       tokenStrategy{kind: TokenKindAccess, tokens: tokens, store: store},
		},
	}
}

func (g *Grantor) WithLogger(logger Logger) *Grantor {
	g.logger = logger
	return g
}

// WithStrategy registers or replaces the strategy for a grant type.
func (g *Grantor) WithStrategy(grantType GrantType, strategy Strategy) *Grantor {
	g.strategies[grantType] = strategy
	return g
}

// TokenService returns the TokenService instance used by this Grantor.
func (g *Grantor) TokenService() TokenService {
	return g.tokens
}

// Grant runs the request through its strategy and mints tokens.
//
// Failure mapping is uniform so the boundary never inspects cause chains:
// no-match and token failures become ErrNotAuthenticated (wrapping the
// cause), and a suspended credential becomes ErrUserSuspended no matter how
// valid the presented credentials were.
func (g *Grantor) Grant(ctx context.Context, req GrantRequest) (*GrantResult, error) {
	strategy, ok := g.strategies[req.GrantType]
	if !ok {
		return nil, ErrGrantTypeUnknown.Clone().WithMetadata(map[string]any{
			"grant_type": string(req.GrantType),
		})
	}

	record, err := strategy.Attempt(ctx, req.Credentials())
	if err != nil {
		g.logger.Info("Unable to verify %s grant: %v", req.GrantType, err)
		return nil, errors.Wrap(err, ErrNotAuthenticated.Category, ErrNotAuthenticated.Message).
			WithTextCode(ErrNotAuthenticated.TextCode).
			WithCode(ErrNotAuthenticated.Code)
	}

	if record == nil {
		g.logger.Info("No credential matched %s grant", req.GrantType)
		return nil, ErrNotAuthenticated
	}

	if record.IsSuspended {
		g.logger.Warn("Grant blocked, credential %s is suspended", record.ID)
		return nil, ErrUserSuspended
	}

	claims := record.Claims()

	// Elevation requires re-proving the password: refresh and bearer grants
	// can never silently renew a secure-status window.
	if req.SecureStatus && req.GrantType == GrantPassword {
		elevatedUntil := time.Now().Add(g.cfg.GetSecureStatusWindow())
		claims.SecureStatusAt = jwt.NewNumericDate(elevatedUntil)
	}

	accessToken, err := g.tokens.Issue(TokenKindAccess, claims)
	if err != nil {
		return nil, err
	}

	result := &GrantResult{
		AccessToken: accessToken,
		Credential:  record,
	}

	if req.Remember {
		refreshToken, err := g.tokens.Issue(TokenKindRefresh, record.Claims())
		if err != nil {
			return nil, err
		}
		result.RefreshToken = refreshToken
	}

	g.touchLastActive(ctx, record)

	return result, nil
}

// Credentials projects the request onto the strategy input.
func (r GrantRequest) Credentials() Credentials {
	return Credentials{
		Handle:   r.Handle,
		Password: r.Password,
		Token:    r.Token,
	}
}

// touchLastActive records advisory activity. Best effort only.
func (g *Grantor) touchLastActive(ctx context.Context, record *Credential) {
	tracker, ok := g.store.(ActivityTracker)
	if !ok {
		return
	}

	if err := tracker.TouchLastActive(ctx, record.ID); err != nil {
		g.logger.Warn("Unable to track activity for credential %s: %v", record.ID, err)
	}
}
