package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	// RequestIDHeader carries the request id in both directions.
	RequestIDHeader = "X-Request-ID"

	contextKeyRequestID = "request_id"
	contextKeyLogger    = "logger"
	maxRequestIDLength  = 64
)

// RequestID reuses a sane incoming X-Request-ID or generates a new one,
// stores it on the context and echoes it in the response.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLength {
			id = uuid.NewString()
		}
		c.Set(contextKeyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID, or "".
func GetRequestID(c *gin.Context) string {
	return c.GetString(contextKeyRequestID)
}

// RequestLogger logs one line per request and exposes a request-scoped
// logger to handlers.
func RequestLogger(logger zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		reqLogger := logger.With().Str("request_id", GetRequestID(c)).Logger()
		c.Set(contextKeyLogger, reqLogger)

		c.Next()

		status := c.Writer.Status()
		var event *zerolog.Event
		switch {
		case status >= http.StatusInternalServerError:
			event = reqLogger.Error()
		case status >= http.StatusBadRequest:
			event = reqLogger.Warn()
		default:
			event = reqLogger.Info()
		}
		if len(c.Errors) > 0 {
			event = event.Str("errors", c.Errors.String())
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Str("route", c.FullPath()).
			Int("status", status).
			Int("size", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Str("ip", c.ClientIP()).
			Msg("request")
	}
}

// Recovery turns panics into 500 responses and logs them.
func Recovery(logger zerolog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error().
			Str("request_id", GetRequestID(c)).
			Interface("panic", recovered).
			Str("path", c.Request.URL.Path).
			Msg("recovered from panic")
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}

// requestLogger returns the logger stored by RequestLogger, or a no-op
// logger when the middleware is not installed.
func requestLogger(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(contextKeyLogger); ok {
		if l, ok := v.(zerolog.Logger); ok {
			return &l
		}
	}
	nop := zerolog.Nop()
	return &nop
}
