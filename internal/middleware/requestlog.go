package middleware

import (
	"time"

	"github.com/galvinchau/bac-hms-sub000/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// RequestLog tags each request with an id and logs one line when it finishes.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		args := []any{
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
		}
		if a := ActorFrom(c); a.ID != "" {
			args = append(args, "actor", a.ID)
		}
		switch {
		case c.Writer.Status() >= 500:
			logger.Error("http.request", args...)
		case c.Writer.Status() >= 400:
			logger.Warn("http.request", args...)
		default:
			logger.Info("http.request", args...)
		}
	}
}
