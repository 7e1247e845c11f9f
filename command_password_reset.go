package grants

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// InitializePasswordResetMessage starts a reset flow for the account behind
// a handle. Outbound email composition is a collaborator concern: the
// response carries the token and its validity for the notifier to render.
type InitializePasswordResetMessage struct {
	Handle     string `json:"handle"`
	OnResponse func(resp *InitializePasswordResetResponse)
}

func (p InitializePasswordResetMessage) Type() string { return "credential.password_reset" }

type InitializePasswordResetResponse struct {
	Token      string
	ValidHours int
	Success    bool
}

type InitializePasswordResetHandler struct {
	repo   RepositoryManager
	tokens TokenService
}

func NewInitializePasswordResetHandler(repo RepositoryManager, tokens TokenService) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{repo: repo, tokens: tokens}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	resp := &InitializePasswordResetResponse{}

	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	record, err := h.repo.Credentials().GetByHandle(ctx, event.Handle)
	if err != nil {
		if goerrors.IsNotFound(err) {
			// Do not reveal whether the handle exists.
			event.OnResponse(resp)
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve credential for password reset")
	}

	// The reset token is single-use by jti: collaborators track consumed
	// ids, this flow only mints and carries the value.
	token, err := h.tokens.Issue(TokenKindResetPassword, record.Claims())
	if err != nil {
		return err
	}

	expiration, err := h.tokens.Expiration(TokenKindResetPassword)
	if err != nil {
		return err
	}

	resp.Token = token
	resp.ValidHours = expiration / 3600
	resp.Success = true

	event.OnResponse(resp)

	return nil
}

// FinalizePasswordResetMessage completes a reset: the token proves the flow,
// the password replaces the stored hash.
type FinalizePasswordResetMessage struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (p FinalizePasswordResetMessage) Type() string { return "credential.password_reset_finalize" }

type FinalizePasswordResetHandler struct {
	repo   RepositoryManager
	tokens TokenService
}

func NewFinalizePasswordResetHandler(repo RepositoryManager, tokens TokenService) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{repo: repo, tokens: tokens}
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	claims, err := h.tokens.Verify(TokenKindResetPassword, event.Token)
	if err != nil {
		return goerrors.Wrap(err, ErrNotAuthenticated.Category, ErrNotAuthenticated.Message).
			WithTextCode(ErrNotAuthenticated.TextCode).
			WithCode(ErrNotAuthenticated.Code)
	}

	id, err := claims.UserUUID()
	if err != nil {
		return ErrNotAuthenticated
	}

	return h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := h.repo.Credentials().FindByIDTx(ctx, tx, id)
		if err != nil {
			if goerrors.IsNotFound(err) {
				return ErrNotAuthenticated
			}
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve credential for password reset")
		}

		if record.IsSuspended {
			return ErrUserSuspended
		}

		record.SetPassword(event.Password)

		if _, err := h.repo.Credentials().SaveTx(ctx, tx, record); err != nil {
			return err
		}

		return nil
	})
}
