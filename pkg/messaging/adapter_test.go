package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanBroker struct {
	ch       chan []byte
	channels []string
}

func (b *chanBroker) Publish(context.Context, string, interface{}) error { return nil }
func (b *chanBroker) Ping(context.Context) error                         { return nil }
func (b *chanBroker) Close() error                                       { return nil }

func (b *chanBroker) Subscribe(_ context.Context, channels ...string) (<-chan []byte, error) {
	b.channels = channels
	return b.ch, nil
}

func TestConsumeDeliversUntilClosed(t *testing.T) {
	b := &chanBroker{ch: make(chan []byte, 3)}
	b.ch <- []byte("a")
	b.ch <- []byte("bad")
	b.ch <- []byte("c")
	close(b.ch)

	var got []string
	var errs []error
	err := Consume(context.Background(), b, []string{"X", "Y"},
		func(msg []byte) error {
			if string(msg) == "bad" {
				return errors.New("bad message")
			}
			got = append(got, string(msg))
			return nil
		},
		func(err error) { errs = append(errs, err) },
	)

	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y"}, b.channels)
	assert.Equal(t, []string{"a", "c"}, got)
	assert.Len(t, errs, 1)
}

func TestConsumeStopsOnCancel(t *testing.T) {
	b := &chanBroker{ch: make(chan []byte)}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, Consume(ctx, b, []string{"X"}, func([]byte) error { return nil }, nil))
}
