package middleware

// IdempotencyValidator checks the Idempotency-Key header of reaction writes
// and asks the guard whether the (user, announcement, key) triple is already
// reserved. A hit marks the request as a replay, which the access log,
// metrics and rate limiter read. The service layer still makes the final
// call; the flag never short-circuits a request.

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
)

// HeaderIdempotencyKey carries the client's retry token for a reaction write.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	ctxKeyIdemKey    = "idem.key"
	ctxKeyIdemReplay = "idem.replay"
	ctxKeyRateBypass = "rate.bypass"

	defaultMaxKeyLen = 200
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// ReactionKey identifies one reservation in the guard.
type ReactionKey struct {
	UserID         string
	AnnouncementID string
	Token          string
}

// IdempotencyLookup reports whether k holds a live reservation at now.
type IdempotencyLookup func(ctx context.Context, k ReactionKey, now time.Time) (bool, error)

// IdempotencyOptions tunes IdempotencyValidator. Zero values select a
// 200-byte limit, the RFC 3986 unreserved set plus ':', and the real clock.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
	Clock   clockwork.Clock
}

// GetIdempotencyKey returns the validated key, if the request carried one.
func GetIdempotencyKey(c *gin.Context) (string, bool) {
	s := c.GetString(ctxKeyIdemKey)
	return s, s != ""
}

// IsReplay reports whether the lookup found a live reservation for this request.
func IsReplay(c *gin.Context) bool {
	return c.GetBool(ctxKeyIdemReplay)
}

// IdempotencyValidator rejects malformed keys with 400 bad_idempotency_key,
// stores valid ones on the context and, when both a user and an announcement
// id are known, consults lookup. Requests without the header pass untouched.
// Lookup errors are logged and treated as a miss.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	maxLen := opts.MaxLen
	if maxLen <= 0 {
		maxLen = defaultMaxKeyLen
	}
	pat := opts.Pattern
	if pat == nil {
		pat = defaultKeyPattern
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if msg := checkKey(key, maxLen, pat); msg != "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"request_id": c.GetString(requestIDKey),
				"code":       "bad_idempotency_key",
				"message":    msg,
			})
			return
		}
		c.Set(ctxKeyIdemKey, key)

		k := ReactionKey{UserID: UserID(c), AnnouncementID: c.Param("id"), Token: key}
		if lookup != nil && k.UserID != "" && k.AnnouncementID != "" {
			hit, err := lookup(c.Request.Context(), k, clock.Now())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Msg("idempotency lookup failed")
			case hit:
				c.Set(ctxKeyIdemReplay, true)
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Next()
	}
}

func checkKey(key string, maxLen int, pat *regexp.Regexp) string {
	if len(key) > maxLen {
		return fmt.Sprintf("Idempotency-Key exceeds %d bytes", maxLen)
	}
	if !pat.MatchString(key) {
		return "Idempotency-Key contains invalid characters"
	}
	return ""
}
