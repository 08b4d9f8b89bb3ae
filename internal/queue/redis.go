package queue

import (
	"context"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisSubscriber receives push notifications over Redis pub/sub.  Each
// event is published on its own channel, named prefix + event.
type RedisSubscriber struct {
	*Registry

	rdb    *redis.Client
	prefix string
	log    zerolog.Logger
}

// NewRedisSubscriber returns a subscriber reading from rdb.
func NewRedisSubscriber(rdb *redis.Client, prefix string, log zerolog.Logger) *RedisSubscriber {
	return &RedisSubscriber{
		Registry: NewRegistry(),
		rdb:      rdb,
		prefix:   prefix,
		log:      log.With().Str("component", "push").Str("driver", "redis").Logger(),
	}
}

// Channel returns the Redis channel name for event.
func Channel(prefix, event string) string { return prefix + event }

// Run subscribes to every event channel and dispatches messages until ctx
// is cancelled.  go-redis reconnects the subscription on its own.
func (s *RedisSubscriber) Run(ctx context.Context) error {
	channels := make([]string, 0, len(Events))
	for _, ev := range Events {
		channels = append(channels, Channel(s.prefix, ev))
	}
	sub := s.rdb.Subscribe(ctx, channels...)
	defer func() { _ = sub.Close() }()
	s.log.Info().Strs("channels", channels).Msg("push channel connected")

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return ctx.Err()
			}
			s.deliver(m.Channel, []byte(m.Payload))
		}
	}
}

func (s *RedisSubscriber) deliver(channel string, payload []byte) {
	event, ok := strings.CutPrefix(channel, s.prefix)
	if !ok {
		s.log.Debug().Str("channel", channel).Msg("message on foreign channel")
		return
	}
	if !s.Dispatch(event, payload) {
		s.log.Debug().Str("event", event).Msg("no handler for push event")
	}
}
