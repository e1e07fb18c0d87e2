// Package broadcast publishes auth session lifecycle events to real-time
// listeners over NATS or Redis pub/sub.
package broadcast

import (
	"context"
	"encoding/json"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-phone-auth"
)

// Envelope is the JSON document published for every event
type Envelope struct {
	Type    string         `json:"type"`
	Event   auth.EventKind `json:"event"`
	Payload map[string]any `json:"payload"`
}

func encode(kind auth.EventKind, data map[string]any) ([]byte, error) {
	if data == nil {
		data = map[string]any{}
	}

	raw, err := json.Marshal(Envelope{
		Type:    "broadcast",
		Event:   kind,
		Payload: data,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode broadcast")
	}
	return raw, nil
}

// Nop drops every event
type Nop struct{}

var _ auth.Broadcaster = Nop{}

func (Nop) Broadcast(context.Context, string, auth.EventKind, map[string]any) error {
	return nil
}
