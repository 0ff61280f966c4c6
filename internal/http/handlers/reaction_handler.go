// Reaction HTTP handlers.
//
// This file exposes:
//   - GET    /announcements/{id}/reactions          (reactions + counts)
//   - POST   /announcements/{id}/reactions          (add or replace)
//   - DELETE /announcements/{id}/reactions          (remove the caller's reaction)
//   - GET    /announcements/{id}/reactions/history  (ledger page, ETag support)
//
// Writes require X-User-ID; POST additionally requires Idempotency-Key. A
// retried POST with the same key inside the idempotency window answers 200
// with "duplicate": true and Idempotent-Replayed: true, without touching state.
package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/noticeboard/internal/domain"
	"github.com/tbourn/noticeboard/internal/http/middleware"
	"github.com/tbourn/noticeboard/internal/services"
)

// AddReactionRequest is the JSON payload for adding a reaction.
type AddReactionRequest struct {
	// Type is one of up, down, heart (case-insensitive).
	Type string `json:"type" binding:"required,reaction_type" example:"heart" enums:"up,down,heart"`
}

// AddReactionResponse reports the outcome of a reaction write. Reaction is
// omitted for duplicates.
type AddReactionResponse struct {
	Outcome   string           `json:"outcome" example:"accepted"`
	Duplicate bool             `json:"duplicate"`
	Reaction  *domain.Reaction `json:"reaction,omitempty"`
}

// ListReactionsResponse is a consistent snapshot of reactions and counts.
type ListReactionsResponse struct {
	Reactions []domain.Reaction     `json:"reactions"`
	Counts    domain.ReactionCounts `json:"counts"`
}

// ReactionHistoryResponse wraps a page of ledger events.
type ReactionHistoryResponse struct {
	Events     []domain.ReactionEvent `json:"events"`
	Pagination Pagination             `json:"pagination"`
}

// idempotencyKey prefers the key validated by middleware and falls back to
// the raw header.
func idempotencyKey(c *gin.Context) string {
	if k, found := middleware.GetIdempotencyKey(c); found {
		return k
	}
	return strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey))
}

// AddReaction godoc
// @ID          addReaction
// @Summary     React to an announcement
// @Description Adds the caller's reaction or replaces their previous one. A repeated Idempotency-Key within the
// @Description idempotency window is answered 200 with duplicate=true and the header Idempotent-Replayed: true.
// @Tags        Reactions
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  true  "Caller id"                            example(user123)
// @Param       Idempotency-Key  header  string  true  "Client token for safe retries"        example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Announcement ID"
// @Param       body             body    handlers.AddReactionRequest  true  "Reaction payload"
//
// @Success     201  {object}  handlers.AddReactionResponse  "Reaction stored"
// @Success     200  {object}  handlers.AddReactionResponse  "Duplicate request"
// @Header      200  {string}  Idempotent-Replayed            "true"
// @Failure     400  {object}  handlers.ErrorResponse        "Missing header or invalid type"
// @Failure     404  {object}  handlers.ErrorResponse        "Announcement not found"
// @Failure     500  {object}  handlers.ErrorResponse        "Internal error"
// @Router      /announcements/{id}/reactions [post]
func (h *Handlers) AddReaction(c *gin.Context) {
	uid := middleware.UserID(c)
	if uid == "" {
		failService(c, services.ErrMissingUserID)
		return
	}
	key := idempotencyKey(c)
	if key == "" {
		failService(c, services.ErrMissingIdempotencyKey)
		return
	}

	var req AddReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isFieldError(err, "Type") {
			failService(c, services.ErrInvalidReactionType)
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	res, err := h.rxSvc.AddOrReplace(c.Request.Context(), c.Param("id"), uid, req.Type, key)
	if err != nil {
		failService(c, err)
		return
	}

	if res.Outcome == services.OutcomeDuplicate {
		replayed(c, AddReactionResponse{Outcome: string(res.Outcome), Duplicate: true})
		return
	}
	ok(c, http.StatusCreated, AddReactionResponse{Outcome: string(res.Outcome), Reaction: res.Reaction})
}

// RemoveReaction godoc
// @ID          removeReaction
// @Summary     Remove the caller's reaction
// @Tags        Reactions
// @Produce     json
//
// @Param       X-User-ID  header  string  true  "Caller id"  example(user123)
// @Param       id         path    string  true  "Announcement ID"
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Missing X-User-ID"
// @Failure     404  {object} handlers.ErrorResponse "Announcement or reaction not found"
// @Router      /announcements/{id}/reactions [delete]
func (h *Handlers) RemoveReaction(c *gin.Context) {
	if err := h.rxSvc.Remove(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		failService(c, err)
		return
	}
	noContent(c)
}

// ListReactions godoc
// @ID          listReactions
// @Summary     List reactions and counts
// @Description Reactions are ordered oldest first; counts come from the same snapshot.
// @Tags        Reactions
// @Produce     json
//
// @Param       id  path  string  true  "Announcement ID"
//
// @Success     200  {object} handlers.ListReactionsResponse
// @Failure     404  {object} handlers.ErrorResponse "Announcement not found"
// @Router      /announcements/{id}/reactions [get]
func (h *Handlers) ListReactions(c *gin.Context) {
	list, err := h.rxSvc.List(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	rs := list.Reactions
	if rs == nil {
		rs = []domain.Reaction{}
	}
	ok(c, http.StatusOK, ListReactionsResponse{Reactions: rs, Counts: list.Counts})
}

// ReactionHistory godoc
// @ID          reactionHistory
// @Summary     Reaction audit history
// @Description Returns a page of recorded reaction outcomes (accepted, duplicate, removed), oldest first.
// @Description Supports weak ETag via If-None-Match and may return 304.
// @Tags        Reactions
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"reactions:ann-42:3:1712000000\")
// @Param       id             path    string  true  "Announcement ID"
// @Param       page           query   int     false "Page number"     minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"  minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ReactionHistoryResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     404  {object} handlers.ErrorResponse "Announcement not found"
// @Failure     503  {object} handlers.ErrorResponse "History disabled"
// @Router      /announcements/{id}/reactions/history [get]
func (h *Handlers) ReactionHistory(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	page, pageSize := clampPagination(c)

	// ETag pre-check (best effort). The announcement must exist first or
	// "If-None-Match: *" would answer 304 for an unknown id.
	if h.stats != nil {
		if h.annSvc != nil {
			if _, err := h.annSvc.Get(ctx, id); err != nil {
				failService(c, err)
				return
			}
		}
		count, maxTS, err := h.stats.Stats(ctx, id)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.UnixNano()
			}
			etag := fmt.Sprintf(`W/"reactions:%s:%d:%d:%d:%d"`, id, count, ts, page, pageSize)
			if notModified(c, etag) {
				return
			}
		}
	}

	items, total, err := h.rxSvc.History(ctx, id, page, pageSize)
	if err != nil {
		c.Writer.Header().Del(headerETag)
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.ReactionEvent{}
	}
	ok(c, http.StatusOK, ReactionHistoryResponse{
		Events:     items,
		Pagination: newPagination(page, pageSize, total),
	})
}
