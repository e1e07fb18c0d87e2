package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const textCodeInvalidTransition = "INVALID_SESSION_STATE_TRANSITION"

// ErrInvalidTransition is returned when a requested status change is not allowed.
var ErrInvalidTransition = goerrors.New("invalid session state transition", goerrors.CategoryValidation).
	WithTextCode(textCodeInvalidTransition).
	WithCode(goerrors.CodeBadRequest)

// ActorRef identifies who/what triggered a transition.
type ActorRef struct {
	ID   string
	Type string
}

// TransitionMetadata captures extra context for a transition.
type TransitionMetadata struct {
	Reason   string
	Metadata map[string]any
}

// TransitionOption customizes a single transition.
type TransitionOption func(*transitionOptions)

// SessionStateMachine owns the pending -> approved | rejected | expired graph.
type SessionStateMachine interface {
	Transition(ctx context.Context, actor ActorRef, session *AuthSession, target SessionStatus, opts ...TransitionOption) (*AuthSession, error)
	CanTransition(from, to SessionStatus) bool
}

// StateMachineOption customizes state machine construction.
type StateMachineOption func(*sessionStateMachine)

// WithStateMachineClock injects a custom clock (useful for tests).
func WithStateMachineClock(clock func() time.Time) StateMachineOption {
	return func(sm *sessionStateMachine) {
		if clock != nil {
			sm.now = clock
		}
	}
}

// WithStateMachineActivitySink sets the ActivitySink used to publish lifecycle events.
func WithStateMachineActivitySink(sink ActivitySink) StateMachineOption {
	return func(sm *sessionStateMachine) {
		sm.activitySink = normalizeActivitySink(sink)
	}
}

// WithStateMachineLogger overrides the logger used for sink failures.
func WithStateMachineLogger(logger Logger) StateMachineOption {
	return func(sm *sessionStateMachine) {
		if logger != nil {
			sm.logger = logger
		}
	}
}

// WithTransitionReason sets the human-readable reason for the transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(opts *transitionOptions) {
		opts.metadata.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition context.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(opts *transitionOptions) {
		if len(metadata) == 0 {
			return
		}
		if opts.metadata.Metadata == nil {
			opts.metadata.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			opts.metadata.Metadata[k] = v
		}
	}
}

// WithApprovedBy records the chat identity that approved the session.
func WithApprovedBy(identityID int64) TransitionOption {
	return func(opts *transitionOptions) {
		opts.approvedBy = &identityID
	}
}

// NewSessionStateMachine returns the default implementation backed by the provided store.
func NewSessionStateMachine(store SessionStore, opts ...StateMachineOption) SessionStateMachine {
	sm := &sessionStateMachine{
		store: store,
		transitions: map[SessionStatus]map[SessionStatus]struct{}{
			SessionPending: {
				SessionApproved: {},
				SessionRejected: {},
				SessionExpired:  {},
			},
		},
		now:          time.Now,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(sm)
		}
	}

	return sm
}

type sessionStateMachine struct {
	store        SessionStore
	transitions  map[SessionStatus]map[SessionStatus]struct{}
	now          func() time.Time
	activitySink ActivitySink
	logger       Logger
}

type transitionOptions struct {
	metadata   TransitionMetadata
	approvedBy *int64
}

// Transition moves session to target. Sessions already in a terminal state
// yield ErrSessionNotActionable, and so does losing a race to another writer.
func (sm *sessionStateMachine) Transition(ctx context.Context, actor ActorRef, session *AuthSession, target SessionStatus, opts ...TransitionOption) (*AuthSession, error) {
	if session == nil {
		return nil, ErrSessionNotFound
	}

	from := session.Status
	if session.IsTerminal() {
		return session, ErrSessionNotActionable
	}

	if !sm.CanTransition(from, target) {
		return nil, ErrInvalidTransition
	}

	options := &transitionOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(options)
		}
	}

	record := &AuthSession{
		ID:     session.ID,
		Status: target,
	}

	if target == SessionApproved {
		approvedAt := sm.now()
		record.ApprovedAt = &approvedAt
		record.IdentityID = options.approvedBy
	}

	updated, err := sm.store.UpdateStatus(ctx, session.ID.String(), from, record)
	if err != nil {
		return nil, err
	}

	sm.applyUpdates(session, updated, record)

	sm.recordActivity(ctx, ActivityEvent{
		EventType:  ActivityEventSessionTransition,
		Actor:      actor,
		SessionID:  session.ID.String(),
		FromStatus: from,
		ToStatus:   target,
		Metadata:   transitionMetadata(options.metadata),
	})

	return session, nil
}

func (sm *sessionStateMachine) CanTransition(from, to SessionStatus) bool {
	if allowed, ok := sm.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

func (sm *sessionStateMachine) applyUpdates(session, updated, record *AuthSession) {
	if updated != nil {
		session.Status = updated.Status
		session.ApprovedAt = updated.ApprovedAt
		session.IdentityID = updated.IdentityID
		return
	}

	session.Status = record.Status
	if record.ApprovedAt != nil {
		session.ApprovedAt = record.ApprovedAt
		session.IdentityID = record.IdentityID
	}
}

func (sm *sessionStateMachine) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.Actor == (ActorRef{}) {
		event.Actor = ActorRef{Type: "system"}
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = sm.now()
	}

	sink := normalizeActivitySink(sm.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		sm.logger.Warn("state machine activity sink error: %v", err)
	}
}

func transitionMetadata(meta TransitionMetadata) map[string]any {
	if meta.Reason == "" && len(meta.Metadata) == 0 {
		return nil
	}

	result := map[string]any{}
	if meta.Reason != "" {
		result["reason"] = meta.Reason
	}
	for k, v := range meta.Metadata {
		result[k] = v
	}
	return result
}
