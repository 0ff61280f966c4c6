// Comment HTTP handlers.
//
// This file exposes:
//   - GET  /announcements/{id}/comments?limit=N  (first N comments, oldest first)
//   - POST /announcements/{id}/comments          (append a comment)
package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/noticeboard/internal/domain"
	"github.com/tbourn/noticeboard/internal/utils"
)

// AddCommentRequest is the JSON payload for adding a comment.
//
// authorname is accepted as an alias of author for older clients.
type AddCommentRequest struct {
	Author     string `json:"author" example:"maria"`
	AuthorName string `json:"authorname,omitempty" swaggerignore:"true"`
	Text       string `json:"text" example:"Will the reading room stay open?"`
}

// ListCommentsResponse wraps a slice of comments.
type ListCommentsResponse struct {
	Comments []domain.Comment `json:"comments"`
	Count    int              `json:"count"`
}

// AddComment godoc
// @ID          addComment
// @Summary     Comment on an announcement
// @Tags        Comments
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                      true  "Announcement ID"
// @Param       body  body  handlers.AddCommentRequest  true  "Comment payload"
//
// @Success     201  {object} domain.Comment
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Announcement not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /announcements/{id}/comments [post]
func (h *Handlers) AddComment(c *gin.Context) {
	var req AddCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	author := req.Author
	if strings.TrimSpace(author) == "" {
		author = req.AuthorName
	}

	cm, err := h.cmtSvc.Add(c.Request.Context(), c.Param("id"), author, req.Text)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, cm)
}

// ListComments godoc
// @ID          listComments
// @Summary     List comments of an announcement
// @Description Returns the first `limit` comments in insertion order. limit is required and capped at 100.
// @Tags        Comments
// @Produce     json
//
// @Param       id     path   string  true  "Announcement ID"
// @Param       limit  query  int     true  "Maximum number of comments"  minimum(1) maximum(100)
//
// @Success     200  {object} handlers.ListCommentsResponse
// @Failure     400  {object} handlers.ErrorResponse "Missing or invalid limit"
// @Failure     404  {object} handlers.ErrorResponse "Announcement not found"
// @Router      /announcements/{id}/comments [get]
func (h *Handlers) ListComments(c *gin.Context) {
	limit := utils.AtoiDefault(c.Query("limit"), 0)

	items, err := h.cmtSvc.List(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.Comment{}
	}
	ok(c, http.StatusOK, ListCommentsResponse{Comments: items, Count: len(items)})
}
