package grants

import (
	"context"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/uptrace/bun"
)

// RegisterCredentialMessage provisions a new account. When Handle is empty
// one is generated from the name and email data.
type RegisterCredentialMessage struct {
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	Handle    string     `json:"handle"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Roles     []UserRole `json:"roles"`
	UseHashid bool
}

func (e RegisterCredentialMessage) Type() string { return "credential.register" }

// RegisterCredentialHandler creates credentials inside a transaction. Handle
// generation is best-effort: a losing race on the unique index gets one
// retry with a fresh random draw before the conflict surfaces.
type RegisterCredentialHandler struct {
	repo RepositoryManager
}

// NewRegisterCredentialHandler builds the provisioning handler.
func NewRegisterCredentialHandler(repo RepositoryManager) *RegisterCredentialHandler {
	return &RegisterCredentialHandler{repo: repo}
}

func (h *RegisterCredentialHandler) Execute(ctx context.Context, event RegisterCredentialMessage) (*Credential, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during credential registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterCredentialHandler) execute(ctx context.Context, event RegisterCredentialMessage) (*Credential, error) {
	ctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	var record *Credential

	attempt := func(ctx context.Context, tx bun.Tx) error {
		handle := event.Handle
		if handle == "" {
			var err error
			handle, err = GenerateHandle(ctx, h.repo.Credentials(), HandleSource{
				Email:     event.Email,
				FirstName: event.FirstName,
				LastName:  event.LastName,
			})
			if err != nil {
				return err
			}
		}

		record = &Credential{
			Handle:    handle,
			Email:     event.Email,
			FirstName: event.FirstName,
			LastName:  event.LastName,
			Roles:     event.Roles,
		}
		record.SetPassword(event.Password)

		if event.UseHashid {
			if id, err := hashid.NewUUID(event.Email); err == nil {
				record.ID = id
			}
		}

		created, err := h.repo.Credentials().SaveTx(ctx, tx, record)
		if err != nil {
			return err
		}

		record = created
		return nil
	}

	err := h.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		err := attempt(ctx, tx)
		if err == nil {
			return nil
		}

		// Pre-check-then-insert races under concurrent signups; the unique
		// index is the arbiter. One fresh draw before giving up.
		if event.Handle == "" && isUniqueConflict(err) {
			return attempt(ctx, tx)
		}

		return err
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}

		return nil, goerrors.Wrap(err, goerrors.CategoryConflict, "could not create credential")
	}

	return record, nil
}

func isUniqueConflict(err error) bool {
	if err == nil {
		return false
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "duplicate key")
}
