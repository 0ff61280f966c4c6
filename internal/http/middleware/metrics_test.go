package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_CountersAndUnmatchedPath(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/announcements/:id", func(c *gin.Context) { c.String(http.StatusOK, "hello") })
	// 204 leaves size at -1, which the size histogram skips.
	r.DELETE("/announcements/:id/reactions", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	baseOK := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/announcements/:id", "200"))
	base404 := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404"))
	base204 := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/announcements/:id/reactions", "204"))

	for _, rq := range []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/announcements/a1", http.StatusOK},
		{http.MethodGet, "/announcements/a2", http.StatusOK},
		{http.MethodGet, "/wp-login.php", http.StatusNotFound},
		{http.MethodDelete, "/announcements/a1/reactions", http.StatusNoContent},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(rq.method, rq.path, nil))
		if w.Code != rq.want {
			t.Fatalf("%s %s -> %d; want %d", rq.method, rq.path, w.Code, rq.want)
		}
	}

	// Both ids collapse onto the route label.
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", "/announcements/:id", "200")); got != baseOK+2 {
		t.Fatalf("route counter = %v; want %v", got, baseOK+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedPath, "404")); got != base404+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, base404+1)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("DELETE", "/announcements/:id/reactions", "204")); got != base204+1 {
		t.Fatalf("204 counter = %v; want %v", got, base204+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}

func TestMetrics_CountsReplays(t *testing.T) {
	gin.SetMode(gin.TestMode)

	const route = "/announcements/:id/reactions"
	lookup := func(_ context.Context, k ReactionKey, _ time.Time) (bool, error) {
		return k.Token == "seen", nil
	}

	r := gin.New()
	r.Use(Principal(), Metrics(), IdempotencyValidator(IdempotencyOptions{}, lookup))
	r.POST(route, func(c *gin.Context) { c.Status(http.StatusOK) })

	base := testutil.ToFloat64(httpReplays.WithLabelValues(route))
	for _, key := range []string{"seen", "fresh", "seen"} {
		req := httptest.NewRequest(http.MethodPost, "/announcements/a1/reactions", nil)
		req.Header.Set(HeaderUserID, "u1")
		req.Header.Set(HeaderIdempotencyKey, key)
		r.ServeHTTP(httptest.NewRecorder(), req)
	}
	if got := testutil.ToFloat64(httpReplays.WithLabelValues(route)); got != base+2 {
		t.Fatalf("replays = %v; want %v", got, base+2)
	}
}
