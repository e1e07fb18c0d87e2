package broadcast

import (
	"context"
	"errors"

	goerrors "github.com/goliatone/go-errors"
	auth "github.com/goliatone/go-phone-auth"
	"github.com/redis/go-redis/v9"
)

// RedisPublisher is satisfied by *redis.Client
type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// Redis publishes envelopes to channel auth:<session_id>
type Redis struct {
	client RedisPublisher
	owned  *redis.Client
}

var _ auth.Broadcaster = (*Redis)(nil)

// RedisOptions mirrors the connection settings read from the environment
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// DialRedis connects and pings the server
func DialRedis(ctx context.Context, opts RedisOptions) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to connect to redis")
	}

	return &Redis{client: client, owned: client}, nil
}

func NewRedis(client RedisPublisher) *Redis {
	return &Redis{client: client}
}

func (b *Redis) Broadcast(ctx context.Context, sessionID string, kind auth.EventKind, data map[string]any) error {
	if b == nil || b.client == nil {
		return errors.New("nil redis broadcaster")
	}

	raw, err := encode(kind, data)
	if err != nil {
		return err
	}

	if err := b.client.Publish(ctx, auth.ChannelName(sessionID), raw).Err(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to publish to redis")
	}
	return nil
}

// Close releases the client when the broadcaster dialed it
func (b *Redis) Close() error {
	if b == nil || b.owned == nil {
		return nil
	}
	return b.owned.Close()
}
