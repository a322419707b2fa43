package event

import "github.com/gin-gonic/gin"

// EventHandler is implemented by handlers whose routes emit events.
type EventHandler interface {
	RegisterRoutes(r *gin.RouterGroup, tracker *TrackerMiddleware)
}
