package grants

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Credentials() CredentialsRepo
}

type mngr struct {
	db          *bun.DB
	credentials CredentialsRepo
}

// NewRepositoryManager wires the credential repository against a bun handle.
func NewRepositoryManager(db *bun.DB, opts ...CredentialsOption) RepositoryManager {
	return &mngr{
		db:          db,
		credentials: NewCredentialsRepository(db, opts...),
	}
}

func (m mngr) Validate() error {
	if m.credentials == nil {
		return errors.New("repository credentials should be initialized")
	}

	return nil
}

func (m mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

func (m mngr) Credentials() CredentialsRepo {
	return m.credentials
}
