// Package activitymap flattens auth activity events into a record shape
// suitable for logs and audit pipelines.
package activitymap

import (
	"strings"
	"time"

	auth "github.com/goliatone/go-phone-auth"
)

const (
	// MetadataKeyActorType stores auth.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyFromStatus stores the session status before a transition.
	MetadataKeyFromStatus = "from_status"
	// MetadataKeyToStatus stores the session status after a transition.
	MetadataKeyToStatus = "to_status"
	// MetadataKeyUserID stores the user id when the object is a session.
	MetadataKeyUserID = "user_id"
)

const (
	defaultChannel = "auth"
	defaultActorID = "system"

	ObjectSession = "auth_session"
	ObjectUser    = "user"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel string
	now     func() time.Time
}

// WithChannel sets the channel for normalized records.
func WithChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithClock is used when the event carries no timestamp.
func WithClock(now func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if now != nil {
			opts.now = now
		}
	}
}

// Normalize converts an auth.ActivityEvent. Events naming a session use it
// as the object, the rest fall back to the user.
func Normalize(event auth.ActivityEvent, opts ...Option) Normalized {
	options := normalizeOptions{
		channel: defaultChannel,
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	out := Normalized{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.Actor.ID), defaultActorID),
		Verb:       string(event.EventType),
		Channel:    options.channel,
		Metadata:   normalizeMetadata(event),
		OccurredAt: event.OccurredAt,
	}

	if sessionID := strings.TrimSpace(event.SessionID); sessionID != "" {
		out.ObjectType = ObjectSession
		out.ObjectID = sessionID
	} else if userID := strings.TrimSpace(event.UserID); userID != "" {
		out.ObjectType = ObjectUser
		out.ObjectID = userID
	}

	if out.OccurredAt.IsZero() {
		out.OccurredAt = options.now()
	}

	return out
}

func normalizeMetadata(event auth.ActivityEvent) map[string]any {
	metadata := make(map[string]any, len(event.Metadata)+4)
	for key, value := range event.Metadata {
		metadata[key] = value
	}

	set := func(key, value string) {
		if value == "" {
			return
		}
		if _, exists := metadata[key]; !exists {
			metadata[key] = value
		}
	}

	set(MetadataKeyActorType, strings.TrimSpace(event.Actor.Type))
	set(MetadataKeyFromStatus, event.FromStatus)
	set(MetadataKeyToStatus, event.ToStatus)
	if event.SessionID != "" {
		set(MetadataKeyUserID, event.UserID)
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
