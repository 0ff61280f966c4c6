package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

// secured runs req through SecurityHeaders(opt), after pre when set.
func secured(opt SecurityOptions, pre gin.HandlerFunc, req *http.Request) http.Header {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if pre != nil {
		r.Use(pre)
	}
	r.Use(SecurityHeaders(opt))
	r.Any("/*path", func(c *gin.Context) { c.Status(http.StatusOK) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Header()
}

func TestSecurityHeaders_Baseline(t *testing.T) {
	h := secured(SecurityOptions{}, nil, httptest.NewRequest(http.MethodGet, "/announcements", nil))

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Fatalf("%s = %q; want %q", k, got, v)
		}
	}
	for _, k := range []string{"Permissions-Policy", "X-Permitted-Cross-Domain-Policies", "Cache-Control", "Pragma", "Expires", "Strict-Transport-Security"} {
		if got := h.Get(k); got != "" {
			t.Fatalf("%s should be unset by default, got %q", k, got)
		}
	}
	// No request id yet, so only the always-exposed headers.
	if got := h.Get("Access-Control-Expose-Headers"); got != "ETag, Idempotent-Replayed" {
		t.Fatalf("expose = %q", got)
	}
}

func TestSecurityHeaders_ExposeHeaders(t *testing.T) {
	cases := []struct {
		name     string
		existing string
		want     string
	}{
		{"fresh", "", "X-Request-ID, ETag, Idempotent-Replayed"},
		{"appends", "Foo", "Foo, X-Request-ID, ETag, Idempotent-Replayed"},
		{"no duplicates", "x-request-id, Foo, etag", "x-request-id, Foo, etag, Idempotent-Replayed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			pre := func(c *gin.Context) {
				c.Header(requestIDHeader, "rid-1")
				if tc.existing != "" {
					c.Header("Access-Control-Expose-Headers", tc.existing)
				}
				c.Next()
			}
			h := secured(SecurityOptions{}, pre, httptest.NewRequest(http.MethodGet, "/", nil))
			if got := h.Get("Access-Control-Expose-Headers"); got != tc.want {
				t.Fatalf("expose = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestSecurityHeaders_CachePolicy(t *testing.T) {
	cases := []struct {
		name   string
		opt    SecurityOptions
		method string
		cache  string
		pragma string
	}{
		{"revalidate GET", SecurityOptions{Revalidate: true}, http.MethodGet, "no-cache", ""},
		{"revalidate HEAD", SecurityOptions{Revalidate: true}, http.MethodHead, "no-cache", ""},
		{"revalidate POST", SecurityOptions{Revalidate: true}, http.MethodPost, "no-store", ""},
		{"revalidate DELETE", SecurityOptions{Revalidate: true}, http.MethodDelete, "no-store", ""},
		{"no-store wins", SecurityOptions{Revalidate: true, NoStore: true}, http.MethodGet, "no-store", "no-cache"},
		{"no policy", SecurityOptions{}, http.MethodPost, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := secured(tc.opt, nil, httptest.NewRequest(tc.method, "/announcements/a1/reactions", nil))
			if h.Get("Cache-Control") != tc.cache || h.Get("Pragma") != tc.pragma {
				t.Fatalf("Cache-Control=%q Pragma=%q; want %q %q", h.Get("Cache-Control"), h.Get("Pragma"), tc.cache, tc.pragma)
			}
		})
	}
}

func TestSecurityHeaders_PolicyAndHSTS(t *testing.T) {
	opt := SecurityOptions{EnableHSTS: true, HSTSMaxAge: 24 * time.Hour, EnablePolicy: true}

	tlsReq := httptest.NewRequest(http.MethodGet, "/", nil)
	tlsReq.TLS = &tls.ConnectionState{}
	h := secured(opt, nil, tlsReq)
	if h.Get("Permissions-Policy") == "" || h.Get("X-Permitted-Cross-Domain-Policies") != "none" {
		t.Fatalf("policy headers missing: %v", h)
	}
	if got := h.Get("Strict-Transport-Security"); got != "max-age=86400; includeSubDomains; preload" {
		t.Fatalf("HSTS = %q", got)
	}

	proxied := httptest.NewRequest(http.MethodGet, "/", nil)
	proxied.Header.Set("X-Forwarded-Proto", "HTTPS")
	if got := secured(SecurityOptions{EnableHSTS: true}, nil, proxied).Get("Strict-Transport-Security"); got != "max-age=15552000; includeSubDomains; preload" {
		t.Fatalf("default max-age HSTS = %q", got)
	}

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := secured(opt, nil, plain).Get("Strict-Transport-Security"); got != "" {
		t.Fatalf("HSTS must not be sent over plain HTTP, got %q", got)
	}
}

func TestExposeHeader(t *testing.T) {
	h := http.Header{}
	exposeHeader(h, HeaderIdempotentReplayed)
	exposeHeader(h, "idempotent-replayed")
	if got := h.Get("Access-Control-Expose-Headers"); got != HeaderIdempotentReplayed {
		t.Fatalf("expected single entry, got %q", got)
	}
	// A longer name containing ETag is a different header.
	h.Set("Access-Control-Expose-Headers", "X-ETag-Version")
	exposeHeader(h, "ETag")
	if got := h.Get("Access-Control-Expose-Headers"); got != "X-ETag-Version, ETag" {
		t.Fatalf("unexpected expose list %q", got)
	}
}
