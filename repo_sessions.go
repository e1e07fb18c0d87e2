package auth

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions is the bun backed SessionStore
type Sessions interface {
	SessionStore

	CreateTx(ctx context.Context, tx bun.IDB, session *AuthSession) (*AuthSession, error)
	ExpirePendingByPhoneTx(ctx context.Context, tx bun.IDB, phone string) (int, error)
}

type sessions struct {
	repo repository.Repository[*AuthSession]
	db   *bun.DB
}

var _ Sessions = (*sessions)(nil)

func NewSessionsRepository(db *bun.DB) Sessions {
	repo := repository.NewRepository[*AuthSession](db, repository.ModelHandlers[*AuthSession]{
		NewRecord: func() *AuthSession { return &AuthSession{} },
		GetID: func(s *AuthSession) uuid.UUID {
			if s == nil {
				return uuid.Nil
			}
			return s.ID
		},
		SetID: func(s *AuthSession, id uuid.UUID) {
			if s != nil {
				s.ID = id
			}
		},
	})

	return &sessions{
		repo: repo,
		db:   db,
	}
}

func (r *sessions) Create(ctx context.Context, session *AuthSession) (*AuthSession, error) {
	return r.CreateTx(ctx, r.db, session)
}

func (r *sessions) CreateTx(ctx context.Context, tx bun.IDB, session *AuthSession) (*AuthSession, error) {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.Status == "" {
		session.Status = SessionPending
	}

	created, err := r.repo.CreateTx(ctx, tx, session)
	if err != nil {
		return nil, upstreamError(err, "failed to create auth session")
	}
	return created, nil
}

// GetByID returns ErrSessionNotFound for unknown or malformed ids
func (r *sessions) GetByID(ctx context.Context, id string) (*AuthSession, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	record := &AuthSession{}
	err = r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", sid).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrSessionNotFound
		}
		return nil, upstreamError(err, "failed to load auth session")
	}

	return record, nil
}

func (r *sessions) LatestPendingByPhone(ctx context.Context, phone string) (*AuthSession, error) {
	record := &AuthSession{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.phone_number = ?", phone).
		Where("?TableAlias.status = ?", SessionPending).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, ErrSessionNotFound
		}
		return nil, upstreamError(err, "failed to load pending auth session")
	}

	return record, nil
}

func (r *sessions) ExpirePendingByPhone(ctx context.Context, phone string) (int, error) {
	return r.ExpirePendingByPhoneTx(ctx, r.db, phone)
}

func (r *sessions) ExpirePendingByPhoneTx(ctx context.Context, tx bun.IDB, phone string) (int, error) {
	res, err := tx.NewUpdate().
		Model((*AuthSession)(nil)).
		Set("status = ?", SessionExpired).
		Where("phone_number = ?", phone).
		Where("status = ?", SessionPending).
		Exec(ctx)
	if err != nil {
		return 0, upstreamError(err, "failed to expire pending auth sessions")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, upstreamError(err, "failed to count expired auth sessions")
	}
	return int(n), nil
}

// UpdateStatus writes record's status (and approval fields when set) only
// if the stored row is still in from. Zero affected rows means another
// writer got there first.
func (r *sessions) UpdateStatus(ctx context.Context, id string, from SessionStatus, record *AuthSession) (*AuthSession, error) {
	sid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound
	}

	q := r.db.NewUpdate().
		Model((*AuthSession)(nil)).
		Set("status = ?", record.Status).
		Where("id = ?", sid).
		Where("status = ?", from)

	if record.ApprovedAt != nil {
		q = q.Set("approved_at = ?", *record.ApprovedAt)
	}
	if record.IdentityID != nil {
		q = q.Set("telegram_id = ?", *record.IdentityID)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return nil, upstreamError(err, "failed to update auth session")
	}

	n, err := res.RowsAffected()
	if err != nil {
		return nil, upstreamError(err, "failed to count updated auth sessions")
	}

	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrSessionNotActionable
	}

	return r.GetByID(ctx, id)
}
