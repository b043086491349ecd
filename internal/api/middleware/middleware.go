package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ohs25-2-misoten/agaru-up-api/shared/logger"
)

// TraceIDHeader carries the request trace id in both directions.
const TraceIDHeader = "X-Trace-ID"

// CORS lets the mobile and web clients call the API from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, "+TraceIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", TraceIDHeader)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Trace assigns every request a trace id, reusing the caller's when sent.
func Trace() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceIDHeader)
		if traceID == "" || len(traceID) > 128 {
			traceID = logger.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(logger.WithTraceID(c.Request.Context(), traceID))
		c.Header(TraceIDHeader, traceID)
		c.Next()
	}
}

// AccessLog logs one line per request.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		entry := log.WithFields(map[string]interface{}{
			"method":     c.Request.Method,
			"path":       path,
			"status":     status,
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		})
		switch {
		case status >= http.StatusInternalServerError:
			entry.ErrorContext(c.Request.Context(), "request completed")
		case status >= http.StatusBadRequest:
			entry.WarnContext(c.Request.Context(), "request completed")
		default:
			entry.InfoContext(c.Request.Context(), "request completed")
		}
	}
}

// Recovery turns panics into a 500 and logs them.
func Recovery(log logger.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.ErrorContext(c.Request.Context(), "panic: %v", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error": "internal server error",
			"code":  "internal_error",
		})
	})
}
