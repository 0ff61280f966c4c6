// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// SecurityHeaders hardens JSON responses: baseline browser headers, opt-in
// HSTS for HTTPS traffic and a cache policy that fits the API. Reads are
// revalidated (the reaction history answers If-None-Match) and writes are
// never stored.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// SecurityOptions selects the optional parts of SecurityHeaders.
//
// HSTS is emitted only for HTTPS requests and only when EnableHSTS is set;
// HSTSMaxAge falls back to 180 days when unset. NoStore forbids caching of
// every response and takes precedence over Revalidate, which sends no-cache
// on GET/HEAD (so clients revalidate with If-None-Match) and no-store on
// writes. EnablePolicy adds browser feature policies.
type SecurityOptions struct {
	EnableHSTS   bool
	HSTSMaxAge   time.Duration
	NoStore      bool
	Revalidate   bool
	EnablePolicy bool
}

// SecurityHeaders sets nosniff, DENY framing and no-referrer on every
// response, plus whatever opt enables. It also exposes X-Request-ID, ETag
// and Idempotent-Replayed to browser clients via
// Access-Control-Expose-Headers.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := int(opt.HSTSMaxAge.Seconds())
	if maxAge <= 0 {
		maxAge = int((180 * 24 * time.Hour).Seconds())
	}
	return func(c *gin.Context) {
		h := c.Writer.Header()

		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}

		switch {
		case opt.NoStore:
			h.Set("Cache-Control", "no-store")
			h.Set("Pragma", "no-cache")
			h.Set("Expires", "0")
		case opt.Revalidate:
			if isRead(c.Request.Method) {
				h.Set("Cache-Control", "no-cache")
			} else {
				h.Set("Cache-Control", "no-store")
			}
		}

		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security",
				"max-age="+strconv.Itoa(maxAge)+"; includeSubDomains; preload")
		}

		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		exposeHeader(h, "ETag")
		exposeHeader(h, HeaderIdempotentReplayed)

		c.Next()
	}
}

func isRead(method string) bool {
	return method == http.MethodGet || method == http.MethodHead
}

// isHTTPS trusts X-Forwarded-Proto from the fronting proxy.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// HeaderIdempotentReplayed marks a reaction response as a deduplicated retry.
const HeaderIdempotentReplayed = "Idempotent-Replayed"

// exposeHeader adds name to Access-Control-Expose-Headers unless an entry
// with the same name (case-insensitive) is already listed.
func exposeHeader(h http.Header, name string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	if cur == "" {
		h.Set(hdr, name)
		return
	}
	for _, v := range strings.Split(cur, ",") {
		if strings.EqualFold(strings.TrimSpace(v), name) {
			return
		}
	}
	h.Set(hdr, cur+", "+name)
}
