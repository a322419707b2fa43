package messaging

import (
	"context"
)

// Consume subscribes to channels and feeds each payload to handler until ctx
// is done. Handler errors go to onError and do not stop consumption.
func Consume(ctx context.Context, broker Broker, channels []string, handler func([]byte) error, onError func(error)) error {
	msgChan, err := broker.Subscribe(ctx, channels...)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgChan:
			if !ok {
				return nil
			}
			if err := handler(msg); err != nil && onError != nil {
				onError(err)
			}
		}
	}
}
