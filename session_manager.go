package auth

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a pending session waits for a decision
const DefaultSessionTTL = 300 * time.Second

var systemActor = ActorRef{Type: "system"}

// ManagerOption customizes Manager construction
type ManagerOption func(*Manager)

// WithManagerClock injects a custom clock (useful for tests).
func WithManagerClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithManagerLogger overrides the default logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithNotifier sets the sink that prompts linked identities.
func WithNotifier(notifier Notifier) ManagerOption {
	return func(m *Manager) {
		m.notifier = normalizeNotifier(notifier)
	}
}

// WithBroadcaster sets the publisher for session lifecycle events.
func WithBroadcaster(broadcaster Broadcaster) ManagerOption {
	return func(m *Manager) {
		m.broadcaster = normalizeBroadcaster(broadcaster)
	}
}

// WithActivitySink sets the sink for audit events.
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithSessionOpener makes Create go through opener, typically the
// RepositoryManager so all writes share one transaction.
func WithSessionOpener(opener SessionOpener) ManagerOption {
	return func(m *Manager) {
		if opener != nil {
			m.opener = opener
		}
	}
}

// WithSessionTTL overrides DefaultSessionTTL.
func WithSessionTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.sessionTTL = ttl
		}
	}
}

// WithDefaultRegion sets the region used to read numbers without a country code.
func WithDefaultRegion(region string) ManagerOption {
	return func(m *Manager) {
		if region != "" {
			m.region = region
		}
	}
}

// WithManagerConfig applies the session TTL and default region from cfg.
func WithManagerConfig(cfg Config) ManagerOption {
	return func(m *Manager) {
		if cfg == nil {
			return
		}
		WithSessionTTL(cfg.GetSessionTTL())(m)
		WithDefaultRegion(cfg.GetDefaultRegion())(m)
	}
}

// Manager drives auth sessions from creation to token issuance. It keeps
// no state between calls, the session store is the source of truth.
type Manager struct {
	sessions     SessionStore
	users        UserDirectory
	opener       SessionOpener
	tokens       TokenService
	notifier     Notifier
	broadcaster  Broadcaster
	activitySink ActivitySink
	stateMachine SessionStateMachine
	logger       Logger
	now          func() time.Time
	sessionTTL   time.Duration
	region       string
}

// NewManager wires a Manager over the given collaborators
func NewManager(sessions SessionStore, users UserDirectory, tokens TokenService, opts ...ManagerOption) *Manager {
	m := &Manager{
		sessions:     sessions,
		users:        users,
		tokens:       tokens,
		notifier:     noopNotifier{},
		broadcaster:  noopBroadcaster{},
		activitySink: noopActivitySink{},
		logger:       defLogger{},
		now:          time.Now,
		sessionTTL:   DefaultSessionTTL,
		region:       DefaultRegion,
	}
	m.opener = storeOpener{sessions: sessions, users: users}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	m.stateMachine = NewSessionStateMachine(sessions,
		WithStateMachineClock(m.now),
		WithStateMachineActivitySink(m.activitySink),
		WithStateMachineLogger(m.logger),
	)

	return m
}

// Create opens a pending session for rawPhone. Any session still pending
// for the same number is expired first.
func (m *Manager) Create(ctx context.Context, rawPhone string) (*AuthSession, error) {
	phone, err := Normalize(rawPhone, m.region)
	if err != nil {
		return nil, err
	}

	now := m.now()
	opened, err := m.opener.OpenSession(ctx, phone, &AuthSession{
		ID:        uuid.New(),
		Phone:     phone,
		Status:    SessionPending,
		CreatedAt: now,
		ExpiresAt: now.Add(m.sessionTTL),
	})
	if err != nil {
		m.logger.Error("create session: %v", err)
		return nil, upstreamError(err, "failed to create session")
	}

	user, session, expired := opened.User, opened.Session, opened.Expired
	if expired > 0 {
		m.logger.Debug("expired %d pending session(s) for %s", expired, phone)
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventSessionCreated,
		SessionID: session.ID.String(),
		UserID:    user.ID.String(),
		ToStatus:  SessionPending,
		Metadata:  map[string]any{"expired_pending": expired},
	})

	if user.HasIdentity() {
		m.notify(ctx, *user.IdentityID, session.ID.String())
	}

	return session, nil
}

// storeOpener opens sessions with plain store calls, for stores that can
// not share a transaction.
type storeOpener struct {
	sessions SessionStore
	users    UserDirectory
}

func (o storeOpener) OpenSession(ctx context.Context, phone string, session *AuthSession) (*OpenedSession, error) {
	user, err := o.users.GetOrCreate(ctx, phone)
	if err != nil {
		return nil, upstreamError(err, "failed to resolve user")
	}

	expired, err := o.sessions.ExpirePendingByPhone(ctx, phone)
	if err != nil {
		return nil, upstreamError(err, "failed to expire pending sessions")
	}

	created, err := o.sessions.Create(ctx, session)
	if err != nil {
		return nil, upstreamError(err, "failed to create session")
	}

	return &OpenedSession{User: user, Session: created, Expired: expired}, nil
}

// Get returns the session, expiring it first when its deadline has passed
func (m *Manager) Get(ctx context.Context, id string) (*AuthSession, error) {
	session, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return m.expireIfLapsed(ctx, session)
}

// Approve moves a pending session to approved on behalf of identityID.
// A session found past its deadline is stored as expired and returned
// together with ErrSessionExpired.
func (m *Manager) Approve(ctx context.Context, id string, identityID int64, handle string) (*AuthSession, error) {
	session, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.HasLapsed(m.now()) {
		expired, err := m.expireIfLapsed(ctx, session)
		if err != nil {
			return nil, err
		}
		return expired, ErrSessionExpired
	}

	if !session.IsPending() {
		return session, ErrSessionNotActionable
	}

	if _, err := m.users.UpdateIdentityLink(ctx, session.Phone, identityID, handle); err != nil {
		m.logger.Error("approve session %s: link identity: %v", id, err)
		return nil, upstreamError(err, "failed to link identity")
	}

	actor := identityActor(identityID)
	session, err = m.stateMachine.Transition(ctx, actor, session, SessionApproved,
		WithApprovedBy(identityID),
		WithTransitionMetadata(map[string]any{"telegram_username": handle}),
	)
	if err != nil {
		return session, err
	}

	m.broadcast(ctx, session, EventAuthApproved, map[string]any{
		"telegram_id": identityID,
	})

	return session, nil
}

// CheckIdentity confirms identityID is the identity linked to the phone of
// session id. Any other identity gets ErrIdentityMismatch.
func (m *Manager) CheckIdentity(ctx context.Context, id string, identityID int64) (*AuthSession, error) {
	session, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	user, err := m.users.GetByPhone(ctx, session.Phone)
	if err != nil {
		if IsNotFound(err) {
			return session, ErrIdentityMismatch
		}
		return nil, upstreamError(err, "failed to resolve user")
	}

	if !user.HasIdentity() || *user.IdentityID != identityID {
		m.logger.Warn("identity %d acted on session %s owned by another identity", identityID, id)
		return session, ErrIdentityMismatch
	}

	return session, nil
}

// Reject moves a pending session to rejected
func (m *Manager) Reject(ctx context.Context, id string) (*AuthSession, error) {
	session, err := m.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if session.HasLapsed(m.now()) {
		expired, err := m.expireIfLapsed(ctx, session)
		if err != nil {
			return nil, err
		}
		return expired, ErrSessionExpired
	}

	if !session.IsPending() {
		return session, ErrSessionNotActionable
	}

	session, err = m.stateMachine.Transition(ctx, systemActor, session, SessionRejected)
	if err != nil {
		return session, err
	}

	m.broadcast(ctx, session, EventAuthRejected, nil)

	return session, nil
}

// IssueTokens signs a fresh pair for an approved session. Tokens are not
// single use, every call yields a new pair.
func (m *Manager) IssueTokens(ctx context.Context, id string) (*TokenPair, error) {
	session, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if !session.IsApproved() {
		m.recordActivity(ctx, ActivityEvent{
			EventType:  ActivityEventTokensDenied,
			SessionID:  session.ID.String(),
			FromStatus: session.Status,
		})
		return nil, ErrSessionNotApproved
	}

	user, err := m.users.GetByPhone(ctx, session.Phone)
	if err != nil {
		m.logger.Error("issue tokens for session %s: resolve user: %v", id, err)
		return nil, ErrTokenIssuance
	}

	pair, err := m.tokens.IssuePair(user.ID.String(), user.Phone)
	if err != nil {
		m.logger.Error("issue tokens for session %s: %v", id, err)
		return nil, ErrTokenIssuance
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventTokensIssued,
		SessionID:  session.ID.String(),
		UserID:     user.ID.String(),
		FromStatus: session.Status,
	})

	return pair, nil
}

// PendingByPhone returns the newest session still awaiting a decision for
// rawPhone, or ErrSessionNotFound.
func (m *Manager) PendingByPhone(ctx context.Context, rawPhone string) (*AuthSession, error) {
	phone, err := Normalize(rawPhone, m.region)
	if err != nil {
		return nil, err
	}
	return m.pendingByPhone(ctx, phone)
}

// PendingByIdentity is PendingByPhone for the user linked to identityID
func (m *Manager) PendingByIdentity(ctx context.Context, identityID int64) (*AuthSession, error) {
	user, err := m.users.GetByIdentityID(ctx, identityID)
	if err != nil {
		return nil, err
	}
	return m.pendingByPhone(ctx, user.Phone)
}

// UserByIdentity resolves the user linked to a chat identity
func (m *Manager) UserByIdentity(ctx context.Context, identityID int64) (*User, error) {
	return m.users.GetByIdentityID(ctx, identityID)
}

// LinkIdentity records that identityID owns rawPhone. When the phone has a
// pending session it is announced as phone_shared and returned.
func (m *Manager) LinkIdentity(ctx context.Context, rawPhone string, identityID int64, handle string) (*User, *AuthSession, error) {
	phone, err := Normalize(rawPhone, m.region)
	if err != nil {
		return nil, nil, err
	}

	if _, err := m.users.GetOrCreate(ctx, phone); err != nil {
		return nil, nil, upstreamError(err, "failed to resolve user")
	}

	user, err := m.users.UpdateIdentityLink(ctx, phone, identityID, handle)
	if err != nil {
		return nil, nil, upstreamError(err, "failed to link identity")
	}

	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventIdentityLinked,
		Actor:     identityActor(identityID),
		UserID:    user.ID.String(),
	})

	pending, err := m.pendingByPhone(ctx, phone)
	if err != nil {
		if IsNotFound(err) {
			return user, nil, nil
		}
		return user, nil, err
	}

	m.broadcast(ctx, pending, EventPhoneShared, map[string]any{
		"telegram_id": identityID,
	})

	return user, pending, nil
}

// Publish broadcasts kind on the session's channel. Failures are logged.
func (m *Manager) Publish(ctx context.Context, session *AuthSession, kind EventKind) {
	m.broadcast(ctx, session, kind, nil)
}

// ExpiresIn is the seconds left on session at the manager's clock
func (m *Manager) ExpiresIn(session *AuthSession) int {
	return session.ExpiresIn(m.now())
}

func (m *Manager) pendingByPhone(ctx context.Context, phone string) (*AuthSession, error) {
	session, err := m.sessions.LatestPendingByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	session, err = m.expireIfLapsed(ctx, session)
	if err != nil {
		return nil, err
	}

	if !session.IsPending() {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// expireIfLapsed stores a lapsed pending session as expired. Losing the
// write to a concurrent caller is fine, the stored row is re-read.
func (m *Manager) expireIfLapsed(ctx context.Context, session *AuthSession) (*AuthSession, error) {
	if !session.HasLapsed(m.now()) {
		return session, nil
	}

	id := session.ID.String()
	expired, err := m.stateMachine.Transition(ctx, systemActor, session, SessionExpired,
		WithTransitionReason("ttl elapsed"),
		WithTransitionMetadata(map[string]any{"expires_at": session.ExpiresAt}),
	)
	if err == nil {
		return expired, nil
	}

	if errors.Is(err, ErrSessionNotActionable) {
		return m.sessions.GetByID(ctx, id)
	}

	m.logger.Error("expire session %s: %v", id, err)
	return nil, upstreamError(err, "failed to expire session")
}

func (m *Manager) notify(ctx context.Context, identityID int64, sessionID string) {
	delivered, err := m.notifier.NotifyApprovalRequested(ctx, identityID, sessionID)
	if err != nil {
		m.logger.Warn("notify identity %d for session %s: %v", identityID, sessionID, err)
		return
	}
	if !delivered {
		m.logger.Debug("approval prompt for session %s not delivered", sessionID)
	}
}

func (m *Manager) broadcast(ctx context.Context, session *AuthSession, kind EventKind, extra map[string]any) {
	if session == nil {
		return
	}

	data := map[string]any{
		"session_id": session.ID.String(),
		"status":     session.Status,
	}
	for k, v := range extra {
		data[k] = v
	}

	if err := m.broadcaster.Broadcast(ctx, session.ID.String(), kind, data); err != nil {
		m.logger.Warn("broadcast %s for session %s: %v", kind, session.ID, err)
	}
}

func (m *Manager) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = systemActor
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}
	if err := m.activitySink.Record(ctx, event); err != nil {
		m.logger.Warn("activity sink error: %v", err)
	}
}

func identityActor(identityID int64) ActorRef {
	return ActorRef{ID: strconv.FormatInt(identityID, 10), Type: "identity"}
}
