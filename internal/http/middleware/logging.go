// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file holds the correlation and logging plumbing shared by the access
// logger (RedactingLogger) and the handlers:
//
//   - RequestID() reuses or generates X-Request-ID and stores it on the context.
//   - Recovery() turns panics into the JSON error envelope and logs the stack
//     through the request-scoped logger.
//   - LoggerFrom() returns the request-scoped logger for handlers; services get
//     the same logger from zerolog.Ctx on the request context.
//
// Order: RequestID, Principal, RedactingLogger, Recovery. The scoped logger
// then carries request_id, user_id and announcement_id for everything below it.
package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// requestIDKey is the Gin context key under which the request ID is stored.
	requestIDKey = "requestID"
	// requestIDHeader is the HTTP header used to propagate the correlation ID.
	requestIDHeader = "X-Request-ID"
	// loggerKey holds the request-scoped *zerolog.Logger.
	loggerKey = "logger"
	// maxQueryLogLength caps the number of bytes of the raw query string logged.
	maxQueryLogLength = 2048
)

// RequestID attaches (or propagates) a correlation identifier per request.
// An incoming X-Request-ID is reused; otherwise a UUIDv4 is generated. The id
// is echoed on the response and stored under "requestID".
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(requestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(requestIDHeader, rid)
		c.Next()
	}
}

// Recovery intercepts panics, logs the value and stack, and answers
//
//	{ "request_id": "...", "code": "internal_error", "message": "internal server error" }
//
// when nothing has been written yet. Otherwise it only aborts with 500.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			rid := c.GetString(requestIDKey)
			LoggerFrom(c).Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Str("request_id", rid).
				Str("route", c.FullPath()).
				Msg("panic recovered")

			if c.Writer.Written() {
				c.AbortWithStatus(http.StatusInternalServerError)
				return
			}
			c.Header("Content-Type", "application/json")
			c.Header(requestIDHeader, rid)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"request_id": rid,
				"code":       "internal_error",
				"message":    "internal server error",
			})
		}()
		c.Next()
	}
}

// LoggerFrom returns the request-scoped zerolog.Logger, or the global logger
// when none was attached. The result is never nil.
func LoggerFrom(c *gin.Context) *zerolog.Logger {
	if v, ok := c.Get(loggerKey); ok {
		if lg, ok := v.(*zerolog.Logger); ok {
			return lg
		}
	}
	l := log.With().Logger()
	return &l
}

// scopedLogger derives the per-request logger. request_id is present once
// RequestID ran and announcement_id only on /announcements/:id routes.
func scopedLogger(c *gin.Context) zerolog.Logger {
	lc := log.With()
	if rid := c.GetString(requestIDKey); rid != "" {
		lc = lc.Str("request_id", rid)
	}
	lc = lc.Str("user_id", UserID(c))
	if id := c.Param("id"); id != "" {
		lc = lc.Str("announcement_id", id)
	}
	return lc.Logger()
}

// attachLogger makes l available to handlers (LoggerFrom) and to services
// (zerolog.Ctx on the request context).
func attachLogger(c *gin.Context, l *zerolog.Logger) {
	c.Set(loggerKey, l)
	c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))
}

// levelFor picks the access-log level: error for 5xx or recorded gin errors,
// warn for 4xx, info otherwise.
func levelFor(status int, errs []*gin.Error) zerolog.Level {
	switch {
	case status >= 500 || len(errs) > 0:
		return zerolog.ErrorLevel
	case status >= 400:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// truncate cuts s to max bytes plus an ellipsis. max <= 0 disables it.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}
