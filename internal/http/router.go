// Package httpapi assembles the notice board's Gin engine: middleware,
// services built over the shared registry, guard and ledger, and the routes.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/tbourn/noticeboard/docs"
	"github.com/tbourn/noticeboard/internal/config"
	"github.com/tbourn/noticeboard/internal/http/handlers"
	"github.com/tbourn/noticeboard/internal/http/middleware"
	"github.com/tbourn/noticeboard/internal/idempotency"
	"github.com/tbourn/noticeboard/internal/registry"
	"github.com/tbourn/noticeboard/internal/repo"
	"github.com/tbourn/noticeboard/internal/search"
	"github.com/tbourn/noticeboard/internal/services"
)

// Deps carries the long-lived objects the HTTP layer is built on. They are
// constructed by the entrypoint so their lifetimes (guard sweeper, ledger
// connection) are owned there.
type Deps struct {
	Registry *registry.Registry
	Index    search.Index
	Guard    *idempotency.Guard
	// LedgerDB is the reaction audit database; nil disables auditing and the
	// history endpoint.
	LedgerDB *gorm.DB
}

// RegisterRoutes installs middleware and mounts the API under
// cfg.APIBasePath, the legacy root routes (/all, /add, /change/:id and the
// comment and reaction routes under /announcements/:id) and the ops
// endpoints (/health, /metrics, /swagger/*any when enabled).
//
// Order: otelgin, RequestID, Principal, RedactingLogger, Recovery, body
// limit, gzip, Metrics, IdempotencyValidator, RateLimiter, CORS,
// SecurityHeaders. The validator precedes the limiter so a replayed
// reaction is not throttled.
func RegisterRoutes(r *gin.Engine, deps Deps, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Caller identity
	r.Use(middleware.Principal())

	// 4) Structured logging with redaction
	r.Use(middleware.RedactingLogger(middleware.RedactOptions{
		MaskHeaders: []string{
			"X-API-Key",
		},
	}))

	// 5) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 6) Global body size limit
	maxBody := cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	r.Use(limitBody(maxBody))

	// 7) Response compression
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// 8) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 9) Idempotency validation (before rate limiting)
	guard := deps.Guard
	r.Use(middleware.IdempotencyValidator(
		middleware.IdempotencyOptions{MaxLen: 200, Clock: guard.Clock()},
		func(_ context.Context, k middleware.ReactionKey, now time.Time) (bool, error) {
			return guard.Peek(idempotency.Key{AnnouncementID: k.AnnouncementID, UserID: k.UserID, Token: k.Token}, now), nil
		},
	))

	// 10) Token-bucket rate limiter per user/IP, writes only
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP()).WithClock(guard.Clock()).WritesOnly()
	r.Use(rl.Handler())

	// 11) CORS posture (safe defaults: allow all if none configured)
	allowHeaders := []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.HeaderUserID, middleware.HeaderIdempotencyKey, "If-None-Match"}
	exposeHeaders := []string{"X-Request-ID", "Content-Length", "ETag", middleware.HeaderIdempotentReplayed}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Echo ACAO with the request Origin when it is in the allowlist (in addition to gin-contrib/cors).
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     allowHeaders,
			ExposeHeaders:    exposeHeaders,
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		Revalidate:   true,
		EnablePolicy: true,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"announcements": deps.Registry.Len(),
			"reservations":  guard.Len(),
		})
	})

	// API docs
	if cfg.SwaggerEnabled {
		docs.SwaggerInfo.BasePath = cfg.APIBasePath
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	// Dependency injection: services ← registry/index/guard/ledger
	clock := guard.Clock()
	annSvc := services.NewAnnouncementService(deps.Registry, deps.Index, clock)
	if cfg.TitleMaxLen > 0 {
		annSvc.TitleMaxLen = cfg.TitleMaxLen
	}
	cmtSvc := services.NewCommentService(deps.Registry, clock)
	if cfg.CommentMaxRunes > 0 {
		cmtSvc.MaxCommentRunes = cfg.CommentMaxRunes
	}

	var ledger *repo.ReactionLedger
	rxSvc := services.NewReactionService(deps.Registry, guard, nil)
	if deps.LedgerDB != nil {
		ledger = repo.NewReactionLedger(deps.LedgerDB)
		rxSvc.Ledger = ledger
	}
	rxSvc.ReleaseOnMiss = cfg.Idempotency.ReleaseOnMiss

	h := handlers.New(annSvc, cmtSvc, rxSvc)
	if ledger != nil {
		h.WithStats(ledger)
	}

	// Public API
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	api := groupWithPrefix(r, apiBase)
	{
		// Announcements
		api.GET("/announcements", h.ListAnnouncements)
		api.POST("/announcements", h.CreateAnnouncement)
		api.GET("/announcements/:id", h.GetAnnouncement)
		api.PATCH("/announcements/:id/close", h.CloseAnnouncement)

		// Comments
		api.GET("/announcements/:id/comments", h.ListComments)
		api.POST("/announcements/:id/comments", h.AddComment)

		// Reactions
		api.GET("/announcements/:id/reactions", h.ListReactions)
		api.POST("/announcements/:id/reactions", h.AddReaction)
		api.DELETE("/announcements/:id/reactions", h.RemoveReaction)
		api.GET("/announcements/:id/reactions/history", h.ReactionHistory)
	}

	// Legacy root routes kept for existing clients.
	r.GET("/all", h.ListAnnouncements)
	r.POST("/add", h.CreateAnnouncement)
	r.PATCH("/change/:id", h.CloseAnnouncement)
	if api.BasePath() != "/" {
		r.GET("/announcements/:id/comments", h.ListComments)
		r.POST("/announcements/:id/comments", h.AddComment)
		r.GET("/announcements/:id/reactions", h.ListReactions)
		r.POST("/announcements/:id/reactions", h.AddReaction)
		r.DELETE("/announcements/:id/reactions", h.RemoveReaction)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
