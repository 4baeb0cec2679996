package server

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/conduit/pkg/logger"
)

// LoggerMiddleware attaches log to each request context and logs the completed request.
func LoggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		if raw := c.Request.URL.RawQuery; raw != "" {
			path = path + "?" + raw
		}
		reqLog := log.With("method", c.Request.Method, "path", path)
		c.Request = c.Request.WithContext(logger.ContextWithLogger(c.Request.Context(), reqLog))
		c.Next()
		status := c.Writer.Status()
		fields := []any{
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
			"status_code", status,
			"body_size", c.Writer.Size(),
		}
		if msg := c.Errors.ByType(gin.ErrorTypePrivate).String(); msg != "" {
			fields = append(fields, "error", msg)
		}
		switch {
		case status >= 500:
			reqLog.Error("Request completed", fields...)
		case len(c.Errors) > 0:
			reqLog.Warn("Request completed", fields...)
		default:
			reqLog.Info("Request completed", fields...)
		}
	}
}
