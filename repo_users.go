package auth

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the bun backed UserDirectory
type Users interface {
	UserDirectory

	GetByPhoneTx(ctx context.Context, tx bun.IDB, phone string) (*User, error)
	GetOrCreateTx(ctx context.Context, tx bun.IDB, phone string) (*User, error)
	UpdateIdentityLinkTx(ctx context.Context, tx bun.IDB, phone string, identityID int64, handle string) (*User, error)

	CompletedQuests(ctx context.Context, userID string) ([]string, error)
	CompleteQuest(ctx context.Context, userID, questID string) ([]string, error)
}

type users struct {
	repo repository.Repository[*User]
	db   *bun.DB
	now  func() time.Time
}

var _ Users = (*users)(nil)

type UsersOption func(*users)

// WithUsersClock injects a custom clock (useful for tests).
func WithUsersClock(clock func() time.Time) UsersOption {
	return func(u *users) {
		if clock != nil {
			u.now = clock
		}
	}
}

func NewUsersRepository(db *bun.DB, opts ...UsersOption) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "phone_number"
		},
	})

	repoUsers := &users{
		repo: repo,
		db:   db,
		now:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repoUsers)
		}
	}

	return repoUsers
}

func (a *users) GetByID(ctx context.Context, id string) (*User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	record := &User{}
	err = a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", uid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, upstreamError(err, "failed to load user")
	}

	return record, nil
}

func (a *users) GetByPhone(ctx context.Context, phone string) (*User, error) {
	return a.GetByPhoneTx(ctx, a.db, phone)
}

func (a *users) GetByPhoneTx(ctx context.Context, tx bun.IDB, phone string) (*User, error) {
	record, err := a.repo.GetByIdentifierTx(ctx, tx, phone)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, upstreamError(err, "failed to load user by phone")
	}
	return record, nil
}

func (a *users) GetByIdentityID(ctx context.Context, identityID int64) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.telegram_id = ?", identityID).
		OrderExpr("?TableAlias.updated_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrUserNotFound
		}
		return nil, upstreamError(err, "failed to load user by identity")
	}
	return record, nil
}

func (a *users) GetOrCreate(ctx context.Context, phone string) (*User, error) {
	return a.GetOrCreateTx(ctx, a.db, phone)
}

// GetOrCreateTx returns the user for phone, inserting it first when absent.
// Ids derive from the phone number and the insert ignores conflicts, so
// concurrent callers converge on the same row.
func (a *users) GetOrCreateTx(ctx context.Context, tx bun.IDB, phone string) (*User, error) {
	user, err := a.GetByPhoneTx(ctx, tx, phone)
	if err == nil {
		return user, nil
	}

	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	record, err := newUserRecord(phone, a.now())
	if err != nil {
		return nil, err
	}

	_, err = tx.NewInsert().
		Model(record).
		On("CONFLICT (phone_number) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return nil, upstreamError(err, "failed to create user")
	}

	return a.GetByPhoneTx(ctx, tx, phone)
}

func (a *users) UpdateIdentityLink(ctx context.Context, phone string, identityID int64, handle string) (*User, error) {
	return a.UpdateIdentityLinkTx(ctx, a.db, phone, identityID, handle)
}

// UpdateIdentityLinkTx stores the chat identity on the user. An empty
// handle keeps the stored one.
func (a *users) UpdateIdentityLinkTx(ctx context.Context, tx bun.IDB, phone string, identityID int64, handle string) (*User, error) {
	now := a.now()
	record := &User{
		IdentityID:     &identityID,
		IdentityHandle: handle,
		UpdatedAt:      &now,
	}

	columns := []string{"telegram_id", "updated_at"}
	if handle != "" {
		columns = append(columns, "telegram_username")
	}

	res, err := tx.NewUpdate().
		Model(record).
		Column(columns...).
		Where("phone_number = ?", phone).
		Exec(ctx)
	if err != nil {
		return nil, upstreamError(err, "failed to link identity")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, upstreamError(err, "failed to count linked users")
	}
	if n == 0 {
		return nil, ErrUserNotFound
	}

	return a.GetByPhoneTx(ctx, tx, phone)
}

func (a *users) CompletedQuests(ctx context.Context, userID string) ([]string, error) {
	user, err := a.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.CompletedQuests == nil {
		return []string{}, nil
	}
	return user.CompletedQuests, nil
}

// CompleteQuest appends questID to the user's progress. Completing a quest
// twice is a no-op.
func (a *users) CompleteQuest(ctx context.Context, userID, questID string) ([]string, error) {
	user, err := a.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if slices.Contains(user.CompletedQuests, questID) {
		return user.CompletedQuests, nil
	}

	now := a.now()
	record := &User{
		ID:              user.ID,
		CompletedQuests: append(slices.Clone(user.CompletedQuests), questID),
		UpdatedAt:       &now,
	}

	_, err = a.db.NewUpdate().
		Model(record).
		Column("completed_quests", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, upstreamError(err, "failed to store quest progress")
	}

	return record.CompletedQuests, nil
}

func newUserRecord(phone string, now time.Time) (*User, error) {
	id, err := hashid.NewUUID(phone)
	if err != nil {
		return nil, upstreamError(err, "failed to derive user id")
	}

	return &User{
		ID:              id,
		Phone:           phone,
		CompletedQuests: []string{},
		CreatedAt:       &now,
		UpdatedAt:       &now,
	}, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err)
}
