package event

import (
	"context"
)

// Emitter persists an event for asynchronous relay.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

// EventContext is stored on the gin context while a tracked handler runs.
// The handler fills NewData once the operation has succeeded.
type EventContext struct {
	EventType string
	Fields    []string
	NewData   interface{}
}

type FieldExtractor interface {
	ExtractFields(obj interface{}, fields []string) map[string]interface{}
}
