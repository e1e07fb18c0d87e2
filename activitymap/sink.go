package activitymap

import (
	"context"
	"encoding/json"

	auth "github.com/goliatone/go-phone-auth"
)

// NewLogSink returns an ActivitySink writing each normalized event as a
// JSON line at info level.
func NewLogSink(logger auth.Logger, opts ...Option) auth.ActivitySink {
	if logger == nil {
		logger = auth.DefaultLogger()
	}

	return auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		raw, err := json.Marshal(Normalize(event, opts...))
		if err != nil {
			return err
		}
		logger.Info("activity %s", raw)
		return nil
	})
}
