package broadcast

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-phone-auth"
	"github.com/nats-io/nats.go"
)

// NATSPublisher is satisfied by *nats.Conn
type NATSPublisher interface {
	Publish(subj string, data []byte) error
}

// NATS publishes envelopes to subject auth.<session_id>
type NATS struct {
	conn NATSPublisher
	nc   *nats.Conn
}

var _ auth.Broadcaster = (*NATS)(nil)

// DialNATS connects to url and returns a broadcaster owning the connection
func DialNATS(url string, opts ...nats.Option) (*NATS, error) {
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to connect to nats")
	}
	return &NATS{conn: nc, nc: nc}, nil
}

func NewNATS(conn NATSPublisher) *NATS {
	return &NATS{conn: conn}
}

// Subject is the NATS subject a session's events are published on
func Subject(sessionID string) string {
	return "auth." + sessionID
}

func (b *NATS) Broadcast(ctx context.Context, sessionID string, kind auth.EventKind, data map[string]any) error {
	if b == nil || b.conn == nil {
		return errors.New("nil nats broadcaster")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	raw, err := encode(kind, data)
	if err != nil {
		return err
	}

	if err := b.conn.Publish(Subject(sessionID), raw); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to publish to nats")
	}
	return nil
}

// Close drains the connection when the broadcaster dialed it
func (b *NATS) Close() {
	if b == nil || b.nc == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
	}
}
