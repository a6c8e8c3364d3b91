package chat

import (
	"context"

	"github.com/rs/zerolog"
)

// Bus carries routed message envelopes between service instances. The hub
// publishes every send event and performs local delivery only on receipt, so
// a single code path covers both the one-instance and the multi-instance
// deployment.
type Bus interface {
	Publish(ctx context.Context, payload []byte) error
	// Subscribe returns the channel of inbound payloads. The channel closes
	// when the bus shuts down.
	Subscribe(ctx context.Context) <-chan []byte
	Close() error
}

// MemoryBus is the in-process loopback used when no Redis address is
// configured, and in tests. Delivery is best-effort: if the subscriber lags
// behind the buffer, frames are dropped rather than blocking the publisher.
type MemoryBus struct {
	ch  chan []byte
	log zerolog.Logger
}

func NewMemoryBus(log zerolog.Logger) *MemoryBus {
	return &MemoryBus{
		ch:  make(chan []byte, 256),
		log: log.With().Str("component", "memory-bus").Logger(),
	}
}

func (b *MemoryBus) Publish(ctx context.Context, payload []byte) error {
	select {
	case b.ch <- payload:
	default:
		b.log.Warn().Msg("bus buffer full, dropping frame")
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context) <-chan []byte {
	return b.ch
}

func (b *MemoryBus) Close() error {
	close(b.ch)
	return nil
}
