package event

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/pkg/logger"
)

const contextKey = "eventCtx"

type TrackerMiddleware struct {
	emitter   Emitter
	extractor FieldExtractor
	log       *logger.Logger
}

func NewTrackerMiddleware(emitter Emitter, log *logger.Logger) *TrackerMiddleware {
	if log == nil {
		log = logger.Nop()
	}
	return &TrackerMiddleware{
		emitter:   emitter,
		extractor: &DefaultFieldExtractor{},
		log:       log,
	}
}

// TrackEvent emits eventType after the handler succeeds, with a payload
// projected onto fields. Handlers opt in by calling Record.
func (m *TrackerMiddleware) TrackEvent(eventType string, fields ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		eventCtx := &EventContext{
			EventType: eventType,
			Fields:    fields,
		}
		c.Set(contextKey, eventCtx)

		c.Next()

		if eventCtx.NewData == nil || c.Writer.Status() >= 400 {
			return
		}

		var payload interface{} = eventCtx.NewData
		if len(eventCtx.Fields) > 0 {
			payload = m.extractor.ExtractFields(eventCtx.NewData, eventCtx.Fields)
		}

		// The response is already committed; a lost event is logged, not surfaced.
		if err := m.emitter.Emit(c.Request.Context(), eventCtx.EventType, payload); err != nil {
			m.log.Error(err, "failed to record outbox event", "event_type", eventCtx.EventType)
		}
	}
}

// Record hands the result of a successful operation to the tracker, if any.
func Record(c *gin.Context, data interface{}) {
	if v, ok := c.Get(contextKey); ok {
		if eventCtx, ok := v.(*EventContext); ok {
			eventCtx.NewData = data
		}
	}
}
