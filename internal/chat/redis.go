package chat

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// busChannel is the Redis pub/sub channel shared by all instances.
const busChannel = "campus-chat.events"

// RedisBus fans routed envelopes out across instances via Redis pub/sub.
// Every instance receives every frame, its own publishes included, and
// delivers to whichever recipients are connected locally.
type RedisBus struct {
	rdb    *redis.Client
	pubsub *redis.PubSub
	out    chan []byte
	log    zerolog.Logger
}

func NewRedisBus(rdb *redis.Client, log zerolog.Logger) *RedisBus {
	return &RedisBus{
		rdb: rdb,
		out: make(chan []byte, 256),
		log: log.With().Str("component", "redis-bus").Logger(),
	}
}

func (b *RedisBus) Publish(ctx context.Context, payload []byte) error {
	if err := b.rdb.Publish(ctx, busChannel, payload).Err(); err != nil {
		b.log.Error().Err(err).Msg("publish failed")
		return err
	}
	return nil
}

// Subscribe starts the pump from the Redis subscription into the hub. It must
// be called once.
func (b *RedisBus) Subscribe(ctx context.Context) <-chan []byte {
	b.pubsub = b.rdb.Subscribe(ctx, busChannel)
	go func() {
		defer close(b.out)
		for msg := range b.pubsub.Channel() {
			select {
			case b.out <- []byte(msg.Payload):
			default:
				b.log.Warn().Msg("bus buffer full, dropping frame")
			}
		}
	}()
	return b.out
}

func (b *RedisBus) Close() error {
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
