// Package handlers implements the notice board's HTTP endpoints.
//
// Every failure is answered with ErrorResponse and a stable code from
// errors.go; success bodies are plain JSON documents. Reaction writes add two
// response conventions on top: a replayed Idempotency-Key is answered 200
// with Idempotent-Replayed: true, and the audit history carries a weak ETag.
//
//	HTTP/1.1 404 Not Found
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_found",
//	  "message": "announcement not found"
//	}
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/noticeboard/internal/http/middleware"
)

const (
	headerRequestID   = "X-Request-ID"
	headerETag        = "ETag"
	headerIfNoneMatch = "If-None-Match"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"announcement not found"`
}

// fail aborts with an ErrorResponse. 5xx are logged through the
// request-scoped logger, which already carries request, user and
// announcement ids.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get(headerRequestID),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("route", c.FullPath()).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// replayed answers a request whose Idempotency-Key was already used: 200,
// the replay marker header, and body.
func replayed(c *gin.Context, body any) {
	c.Header(middleware.HeaderIdempotentReplayed, "true")
	c.JSON(http.StatusOK, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// notModified sets etag on the response and, when the request's
// If-None-Match lists it (or "*"), writes 304 and reports true.
func notModified(c *gin.Context, etag string) bool {
	c.Header(headerETag, etag)
	inm := c.GetHeader(headerIfNoneMatch)
	if inm == "" {
		return false
	}
	for _, candidate := range strings.Split(inm, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == etag || candidate == "*" {
			c.Status(http.StatusNotModified)
			return true
		}
	}
	return false
}
