package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/hospital-api/pkg/logger"
)

// Logger writes one structured line per request. Bodies are never logged;
// they carry passwords and medical notes.
func Logger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		status := c.Writer.Status()
		zl := log.ZL()
		event := zl.Info()
		msg := "Request processed"
		switch {
		case status >= 500:
			event, msg = zl.Error(), "Server error"
		case status >= 400:
			event, msg = zl.Warn(), "Client error"
		}

		event = event.
			Str("request_id", c.GetString(ContextRequestID)).
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Str("user_agent", c.Request.UserAgent())
		if p := PrincipalFrom(c); p != nil {
			event = event.Str("account_id", p.AccountID.String()).Str("role", string(p.Role))
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate); len(errs) > 0 {
			event = event.Str("error", errs.String())
		}
		event.Msg(msg)
	}
}
