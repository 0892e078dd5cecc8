package handler

import (
	"time"

	"camerashop/backend/internal/logging"
	"camerashop/backend/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// RequestContext tags the request with an id, logs it once served and
// records the HTTP metrics.
func RequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = logging.GenerateRequestID()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logging.ContextWithRequestID(c.Request.Context(), id))

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		metrics.RecordHTTPRequest(c.Request.Method, c.FullPath(), status, latency)

		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = logging.Error()
		case status >= 400:
			ev = logging.Warn()
		default:
			ev = logging.Info()
		}
		ev.Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", status).
			Dur("latency", latency).
			Msg("http request")
	}
}
