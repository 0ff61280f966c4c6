// Announcement HTTP handlers.
//
// This file exposes REST endpoints for announcement resources:
//   - GET    /announcements             (list, newest first, or ranked by ?q=)
//   - POST   /announcements             (create)
//   - GET    /announcements/{id}        (get)
//   - PATCH  /announcements/{id}/close  (close)
//
// It also declares the service contracts and the Handlers type shared by the
// comment and reaction handlers.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/noticeboard/internal/domain"
	"github.com/tbourn/noticeboard/internal/services"
	"github.com/tbourn/noticeboard/internal/utils"
)

//
// Service contracts (context-aware)
//

// AnnouncementService defines announcement lifecycle operations consumed by
// HTTP handlers.
type AnnouncementService interface {
	// Create stores a new active announcement; a blank id is generated.
	Create(ctx context.Context, id, title, description string) (*domain.Announcement, error)
	// List returns announcements newest first, or search hits for a query.
	List(ctx context.Context, query string) ([]domain.Announcement, error)
	// Get returns one announcement.
	Get(ctx context.Context, id string) (*domain.Announcement, error)
	// Close marks an announcement closed.
	Close(ctx context.Context, id string) (*domain.Announcement, error)
}

// CommentService defines comment operations.
type CommentService interface {
	Add(ctx context.Context, id, author, text string) (*domain.Comment, error)
	List(ctx context.Context, id string, limit int) ([]domain.Comment, error)
}

// ReactionService defines reaction writes, reads and ledger history.
//
// Implementations must be safe for concurrent use.
type ReactionService interface {
	AddOrReplace(ctx context.Context, announcementID, userID, reactionType, idempotencyKey string) (*services.AddReactionResult, error)
	Remove(ctx context.Context, announcementID, userID string) error
	List(ctx context.Context, announcementID string) (*services.ReactionList, error)
	History(ctx context.Context, announcementID string, page, pageSize int) ([]domain.ReactionEvent, int64, error)
}

// ReactionStats reports the ledger event count and latest event time for an
// announcement. It backs the ETag on the history endpoint.
type ReactionStats interface {
	Stats(ctx context.Context, announcementID string) (int64, *time.Time, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for announcements, comments and reactions.
type Handlers struct {
	annSvc AnnouncementService
	cmtSvc CommentService
	rxSvc  ReactionService
	stats  ReactionStats
}

// New constructs a Handlers bound to the given services.
func New(annSvc AnnouncementService, cmtSvc CommentService, rxSvc ReactionService) *Handlers {
	registerValidators()
	return &Handlers{annSvc: annSvc, cmtSvc: cmtSvc, rxSvc: rxSvc}
}

// WithStats enables ETag support on the reaction history endpoint.
func (h *Handlers) WithStats(stats ReactionStats) *Handlers {
	h.stats = stats
	return h
}

//
// DTOs
//

// CreateAnnouncementRequest is the JSON payload for creating an announcement.
type CreateAnnouncementRequest struct {
	// ID optionally fixes the announcement id; a UUID is generated when empty.
	ID string `json:"id" binding:"omitempty,max=128" example:"ann-42"`
	// Title is required; whitespace is collapsed and it is clipped server-side.
	Title string `json:"title" binding:"required" example:"Library closed on Friday"`
	// Description is optional free text.
	Description string `json:"description" example:"Closed for maintenance, reopens Monday."`
}

// ListAnnouncementsResponse wraps the listed announcements.
type ListAnnouncementsResponse struct {
	Announcements []domain.Announcement `json:"announcements"`
	Count         int                   `json:"count"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

//
// Helpers
//

// clampPagination parses and bounds page and page_size query params to sane
// defaults and limits, returning (page, pageSize).
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 20
		maxPageSize     = 100
	)
	return utils.NormalizePage(
		utils.AtoiDefault(c.Query("page"), defaultPage),
		utils.AtoiDefault(c.Query("page_size"), defaultPageSize),
		defaultPageSize, maxPageSize,
	)
}

func newPagination(page, pageSize int, total int64) Pagination {
	totalPages := utils.TotalPages(total, pageSize)
	return Pagination{
		Page:       page,
		PageSize:   pageSize,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
	}
}

//
// Handlers
//

// ListAnnouncements godoc
// @ID          listAnnouncements
// @Summary     List announcements
// @Description Returns all announcements newest first. With ?q= the best search matches are returned instead, best first.
// @Tags        Announcements
// @Produce     json
//
// @Param       q  query  string  false "Free-text search over title and description"  example(library)
//
// @Success     200  {object} handlers.ListAnnouncementsResponse
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /announcements [get]
func (h *Handlers) ListAnnouncements(c *gin.Context) {
	items, err := h.annSvc.List(c.Request.Context(), c.Query("q"))
	if err != nil {
		failService(c, err)
		return
	}
	if items == nil {
		items = []domain.Announcement{}
	}
	ok(c, http.StatusOK, ListAnnouncementsResponse{Announcements: items, Count: len(items)})
}

// CreateAnnouncement godoc
// @ID          createAnnouncement
// @Summary     Create an announcement
// @Description Creates an active announcement and returns it.
// @Tags        Announcements
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateAnnouncementRequest  true  "Announcement payload"
//
// @Success     201  {object}  domain.Announcement
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     409  {object}  handlers.ErrorResponse  "Announcement id already exists"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /announcements [post]
func (h *Handlers) CreateAnnouncement(c *gin.Context) {
	var req CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isFieldError(err, "Title") {
			fail(c, http.StatusBadRequest, ErrCodeMissingField, services.ErrTitleRequired.Error())
			return
		}
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	a, err := h.annSvc.Create(c.Request.Context(), req.ID, req.Title, req.Description)
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusCreated, a)
}

// GetAnnouncement godoc
// @ID          getAnnouncement
// @Summary     Get an announcement
// @Tags        Announcements
// @Produce     json
//
// @Param       id  path  string  true  "Announcement ID"
//
// @Success     200  {object} domain.Announcement
// @Failure     404  {object} handlers.ErrorResponse "Announcement not found"
// @Router      /announcements/{id} [get]
func (h *Handlers) GetAnnouncement(c *gin.Context) {
	a, err := h.annSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}

// CloseAnnouncement godoc
// @ID          closeAnnouncement
// @Summary     Close an announcement
// @Description Sets the announcement status to closed. Closing twice succeeds.
// @Tags        Announcements
// @Produce     json
//
// @Param       id  path  string  true  "Announcement ID"
//
// @Success     200  {object} domain.Announcement
// @Failure     404  {object} handlers.ErrorResponse "Announcement not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /announcements/{id}/close [patch]
func (h *Handlers) CloseAnnouncement(c *gin.Context) {
	a, err := h.annSvc.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		failService(c, err)
		return
	}
	ok(c, http.StatusOK, a)
}
