package auth

import (
	"context"
	"errors"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventSessionCreated    ActivityEventType = "auth.session.created"
	ActivityEventSessionTransition ActivityEventType = "auth.session.transition"
	ActivityEventTokensIssued      ActivityEventType = "auth.tokens.issued"
	ActivityEventTokensDenied      ActivityEventType = "auth.tokens.denied"
	ActivityEventIdentityLinked    ActivityEventType = "auth.identity.linked"
)

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	SessionID  string
	UserID     string
	FromStatus SessionStatus
	ToStatus   SessionStatus
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// JoinActivitySinks records every event on each sink and joins the errors
func JoinActivitySinks(sinks ...ActivitySink) ActivitySink {
	return ActivitySinkFunc(func(ctx context.Context, event ActivityEvent) error {
		var errs []error
		for _, sink := range sinks {
			if sink == nil {
				continue
			}
			if err := sink.Record(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// EventKind names a lifecycle event published on a session's channel
type EventKind string

const (
	EventAuthApproved   EventKind = "auth_approved"
	EventAuthRejected   EventKind = "auth_rejected"
	EventBotStarted     EventKind = "bot_started"
	EventPhoneShared    EventKind = "phone_shared"
	EventPhoneRequested EventKind = "phone_requested"
)

// Broadcaster publishes lifecycle events keyed by session id for real-time
// listeners. Publication is fire-and-forget.
type Broadcaster interface {
	Broadcast(ctx context.Context, sessionID string, kind EventKind, data map[string]any) error
}

// BroadcasterFunc adapts a function to the Broadcaster interface.
type BroadcasterFunc func(ctx context.Context, sessionID string, kind EventKind, data map[string]any) error

// Broadcast implements Broadcaster.
func (f BroadcasterFunc) Broadcast(ctx context.Context, sessionID string, kind EventKind, data map[string]any) error {
	if f == nil {
		return nil
	}
	return f(ctx, sessionID, kind, data)
}

type noopBroadcaster struct{}

func (noopBroadcaster) Broadcast(context.Context, string, EventKind, map[string]any) error {
	return nil
}

func normalizeBroadcaster(b Broadcaster) Broadcaster {
	if b == nil {
		return noopBroadcaster{}
	}
	return b
}

// ChannelName is the channel a session's events are published on
func ChannelName(sessionID string) string {
	return "auth:" + sessionID
}
