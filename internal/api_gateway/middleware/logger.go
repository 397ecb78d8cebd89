package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

const participantHeader = "X-Participant-ID"

// Logger writes one structured line per request after the handler chain
// completes. The participant header is included when present so session
// activity can be traced back to a wallet account.
func Logger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}

		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}
		if correlationID := GetCorrelationID(c); correlationID != "" {
			attrs = append(attrs, "correlation_id", correlationID)
		}
		if participant := c.GetHeader(participantHeader); participant != "" {
			attrs = append(attrs, "participant_id", participant)
		}

		logger.Info("HTTP request", attrs...)
	}
}
