package auth

import (
	"context"
	"database/sql"
	"errors"
	"log"

	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// RepositoryManager exposes all repositories
type RepositoryManager interface {
	repository.Validator
	repository.TransactionManager
	SessionOpener
	Users() Users
	Sessions() Sessions
	Migrate(ctx context.Context) error
}

type mngr struct {
	db       *bun.DB
	users    Users
	sessions Sessions
}

func NewRepositoryManager(db *bun.DB, opts ...UsersOption) RepositoryManager {
	return &mngr{
		db:       db,
		users:    NewUsersRepository(db, opts...),
		sessions: NewSessionsRepository(db),
	}
}

func (m mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager needs a database")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	if m.sessions == nil {
		return errors.New("repository sessions should be initialized")
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

// Migrate applies the embedded schema inside a single transaction
func (m mngr) Migrate(ctx context.Context) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		return ApplyMigrations(ctx, tx)
	})
}

// OpenSession runs the user lookup, the bulk expiry and the insert in one
// transaction.
func (m mngr) OpenSession(ctx context.Context, phone string, session *AuthSession) (*OpenedSession, error) {
	opened := &OpenedSession{}

	err := m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		user, err := m.users.GetOrCreateTx(ctx, tx, phone)
		if err != nil {
			return err
		}

		expired, err := m.sessions.ExpirePendingByPhoneTx(ctx, tx, phone)
		if err != nil {
			return err
		}

		created, err := m.sessions.CreateTx(ctx, tx, session)
		if err != nil {
			return err
		}

		opened.User = user
		opened.Expired = expired
		opened.Session = created
		return nil
	})
	if err != nil {
		return nil, upstreamError(err, "failed to open auth session")
	}

	return opened, nil
}

func (m mngr) Users() Users {
	return m.users
}

func (m mngr) Sessions() Sessions {
	return m.sessions
}
