package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	// Subscribe delivers raw payloads from every channel until ctx is done.
	Subscribe(ctx context.Context, channels ...string) (<-chan []byte, error)
	Ping(ctx context.Context) error
	Close() error
}
