package grants

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// CredentialsRepo is the persistence surface for credentials. Save runs the
// fixed pre-save pipeline: normalize names, derive the full name, hash the
// password when it changed, then persist atomically.
type CredentialsRepo interface {
	repository.Repository[*Credential]

	GetByHandle(ctx context.Context, handle string) (*Credential, error)
	GetByHandleTx(ctx context.Context, tx bun.IDB, handle string, criteria ...repository.SelectCriteria) (*Credential, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Credential, error)
	FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Credential, error)
	FindByHandles(ctx context.Context, handles []string) ([]string, error)
	FindByHandlesTx(ctx context.Context, tx bun.IDB, handles []string) ([]string, error)

	Save(ctx context.Context, record *Credential) (*Credential, error)
	SaveTx(ctx context.Context, tx bun.IDB, record *Credential) (*Credential, error)

	Suspend(ctx context.Context, id uuid.UUID) (*Credential, error)
	Reinstate(ctx context.Context, id uuid.UUID) (*Credential, error)

	TouchLastActive(ctx context.Context, id uuid.UUID) error
}

type credentials struct {
	repository.Repository[*Credential]
	db         *bun.DB
	bcryptCost int
}

var (
	_ CredentialsRepo                    = (*credentials)(nil)
	_ repository.Repository[*Credential] = (*credentials)(nil)
	_ CredentialStore                    = (*credentials)(nil)
	_ ActivityTracker                    = (*credentials)(nil)
	_ HandleLookup                       = (*credentials)(nil)
)

// CredentialsOption configures the repository at construction.
type CredentialsOption func(*credentials)

// WithCredentialsBcryptCost sets the hashing cost used by Save.
func WithCredentialsBcryptCost(cost int) CredentialsOption {
	return func(c *credentials) {
		c.bcryptCost = cost
	}
}

// NewCredentialsRepository builds the bun-backed credential store.
func NewCredentialsRepository(db *bun.DB, opts ...CredentialsOption) CredentialsRepo {
	repo := repository.NewRepository[*Credential](db, repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential { return &Credential{} },
		GetID: func(c *Credential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Credential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "handle"
		},
	})

	repoCredentials := &credentials{
		Repository: repo,
		db:         db,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoCredentials)
		}
	}

	return repoCredentials
}

func (a *credentials) GetByHandle(ctx context.Context, handle string) (*Credential, error) {
	return a.GetByHandleTx(ctx, a.db, handle)
}

func (a *credentials) GetByHandleTx(ctx context.Context, tx bun.IDB, handle string, criteria ...repository.SelectCriteria) (*Credential, error) {
	handle = strings.TrimSpace(handle)
	if handle == "" {
		return nil, repository.NewRecordNotFound()
	}

	record := &Credential{}
	q := tx.NewSelect().Model(record)

	for _, c := range criteria {
		q.Apply(c)
	}

	err := q.
		Where("?TableAlias.handle = ?", handle).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"handle": handle})
		}
		return nil, err
	}

	return record, nil
}

// FindByID resolves a credential by its uuid. The stringly GetByID lives on
// the embedded repository; this wrapper keeps callers typed.
func (a *credentials) FindByID(ctx context.Context, id uuid.UUID) (*Credential, error) {
	return a.FindByIDTx(ctx, a.db, id)
}

func (a *credentials) FindByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*Credential, error) {
	record, err := a.Repository.GetByIDTx(ctx, tx, id.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (a *credentials) FindByHandles(ctx context.Context, handles []string) ([]string, error) {
	return a.FindByHandlesTx(ctx, a.db, handles)
}

func (a *credentials) FindByHandlesTx(ctx context.Context, tx bun.IDB, handles []string) ([]string, error) {
	if len(handles) == 0 {
		return nil, nil
	}

	taken := make([]string, 0, len(handles))
	err := tx.NewSelect().
		Model((*Credential)(nil)).
		Column("handle").
		Where("?TableAlias.handle IN (?)", bun.In(handles)).
		Scan(ctx, &taken)

	if err != nil {
		return nil, err
	}

	return taken, nil
}

func (a *credentials) Save(ctx context.Context, record *Credential) (*Credential, error) {
	return a.SaveTx(ctx, a.db, record)
}

// SaveTx persists a credential after the fixed transform pipeline. A staged
// empty password fails the save; a persisted record always carries a hash.
func (a *credentials) SaveTx(ctx context.Context, tx bun.IDB, record *Credential) (*Credential, error) {
	isNew := record.ID == uuid.Nil

	record.EnsureDefaults()
	record.NormalizeNames()

	if record.PasswordChanged() {
		hash, err := HashPasswordCost(record.rawPassword, a.bcryptCost)
		if err != nil {
			return nil, err
		}
		record.PasswordHash = hash
		record.rawPassword = ""
		record.rawPasswordChanged = false
	}

	if record.PasswordHash == "" {
		return nil, ErrPasswordRequired
	}

	if isNew {
		return a.Repository.CreateTx(ctx, tx, record)
	}

	return a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(record.ID.String()))
}

func (a *credentials) Suspend(ctx context.Context, id uuid.UUID) (*Credential, error) {
	record, err := a.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	record.Suspend()
	return a.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}

func (a *credentials) Reinstate(ctx context.Context, id uuid.UUID) (*Credential, error) {
	record, err := a.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	record.Reinstate()
	return a.Repository.Update(ctx, record, repository.UpdateByID(id.String()))
}

// TouchLastActive records advisory activity. It bypasses the ORM update path
// so a concurrent save cannot clobber it.
func (a *credentials) TouchLastActive(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	_, err := a.db.NewRaw(`
		UPDATE "credentials" AS "crd"
		SET "last_active_at" = ?
		WHERE ("crd".id = ?)
		AND "crd"."deleted_at" IS NULL;
	`, now, id).Exec(ctx)

	return err
}
