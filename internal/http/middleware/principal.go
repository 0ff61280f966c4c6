// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file extracts the caller identity. The notice board trusts the
// X-User-ID header as-is; authentication happens upstream.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderUserID carries the pre-validated caller id.
	HeaderUserID = "X-User-ID"
	// userIDKey is the Gin context key under which the caller id is stored.
	userIDKey = "userID"
	// maxUserIDLen bounds what is copied into logs and keys.
	maxUserIDLen = 128
)

// Principal copies a non-blank X-User-ID header into the Gin context. Values
// longer than 128 bytes are ignored. A missing header is not an error here;
// handlers that need an identity reject the request themselves.
func Principal() gin.HandlerFunc {
	return func(c *gin.Context) {
		if uid := strings.TrimSpace(c.GetHeader(HeaderUserID)); uid != "" && len(uid) <= maxUserIDLen {
			c.Set(userIDKey, uid)
		}
		c.Next()
	}
}

// UserID returns the caller id stored by Principal, or "" when absent.
func UserID(c *gin.Context) string {
	if v, ok := c.Get(userIDKey); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
