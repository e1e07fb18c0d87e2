package broadcast

import (
	"context"
	"errors"

	auth "github.com/goliatone/go-phone-auth"
)

// Multi fans an event out to every broadcaster and joins their errors
type Multi []auth.Broadcaster

var _ auth.Broadcaster = Multi(nil)

func (m Multi) Broadcast(ctx context.Context, sessionID string, kind auth.EventKind, data map[string]any) error {
	var errs []error
	for _, b := range m {
		if b == nil {
			continue
		}
		if err := b.Broadcast(ctx, sessionID, kind, data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
