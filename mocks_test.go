package auth_test

import (
	"context"
	"sync"
	"time"

	auth "github.com/goliatone/go-phone-auth"
	"github.com/stretchr/testify/mock"
)

// MockSessionStore implements auth.SessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Create(ctx context.Context, session *auth.AuthSession) (*auth.AuthSession, error) {
	args := m.Called(ctx, session)
	if s := args.Get(0); s != nil {
		return s.(*auth.AuthSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionStore) GetByID(ctx context.Context, id string) (*auth.AuthSession, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*auth.AuthSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionStore) LatestPendingByPhone(ctx context.Context, phone string) (*auth.AuthSession, error) {
	args := m.Called(ctx, phone)
	if s := args.Get(0); s != nil {
		return s.(*auth.AuthSession), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSessionStore) ExpirePendingByPhone(ctx context.Context, phone string) (int, error) {
	args := m.Called(ctx, phone)
	return args.Int(0), args.Error(1)
}

func (m *MockSessionStore) UpdateStatus(ctx context.Context, id string, from auth.SessionStatus, record *auth.AuthSession) (*auth.AuthSession, error) {
	args := m.Called(ctx, id, from, record)
	if s := args.Get(0); s != nil {
		return s.(*auth.AuthSession), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockUserDirectory implements auth.UserDirectory
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) GetByID(ctx context.Context, id string) (*auth.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserDirectory) GetByPhone(ctx context.Context, phone string) (*auth.User, error) {
	args := m.Called(ctx, phone)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserDirectory) GetByIdentityID(ctx context.Context, identityID int64) (*auth.User, error) {
	args := m.Called(ctx, identityID)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserDirectory) GetOrCreate(ctx context.Context, phone string) (*auth.User, error) {
	args := m.Called(ctx, phone)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserDirectory) UpdateIdentityLink(ctx context.Context, phone string, identityID int64, handle string) (*auth.User, error) {
	args := m.Called(ctx, phone, identityID, handle)
	if u := args.Get(0); u != nil {
		return u.(*auth.User), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockNotifier implements auth.Notifier
type MockSessionOpener struct {
	mock.Mock
}

func (m *MockSessionOpener) OpenSession(ctx context.Context, phone string, session *auth.AuthSession) (*auth.OpenedSession, error) {
	args := m.Called(ctx, phone, session)
	if fn, ok := args.Get(0).(func(context.Context, string, *auth.AuthSession) *auth.OpenedSession); ok {
		return fn(ctx, phone, session), args.Error(1)
	}
	if o := args.Get(0); o != nil {
		return o.(*auth.OpenedSession), args.Error(1)
	}
	return nil, args.Error(1)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) NotifyApprovalRequested(ctx context.Context, identityID int64, sessionID string) (bool, error) {
	args := m.Called(ctx, identityID, sessionID)
	return args.Bool(0), args.Error(1)
}

// MockLogger implements auth.Logger for testing
type MockLogger struct {
	mock.Mock
}

func (m *MockLogger) Debug(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Info(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Warn(format string, args ...any) {
	m.Called(format, args)
}

func (m *MockLogger) Error(format string, args ...any) {
	m.Called(format, args)
}

// nopLogger keeps test output quiet
type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type broadcastCall struct {
	SessionID string
	Kind      auth.EventKind
	Data      map[string]any
}

// recordingBroadcaster keeps every event it is handed
type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
	err   error
}

func (b *recordingBroadcaster) Broadcast(_ context.Context, sessionID string, kind auth.EventKind, data map[string]any) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, broadcastCall{SessionID: sessionID, Kind: kind, Data: data})
	return b.err
}

func (b *recordingBroadcaster) Kinds() []auth.EventKind {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]auth.EventKind, 0, len(b.calls))
	for _, c := range b.calls {
		out = append(out, c.Kind)
	}
	return out
}

// recordingSink keeps every activity event
type recordingSink struct {
	mu     sync.Mutex
	events []auth.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event auth.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) Types() []auth.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.ActivityEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
