// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// This file centralizes the symbolic error codes written into ErrorResponse
// and the translation of service sentinels into (status, code, message).
// Clients are expected to branch on the code, not on the message.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "no_reaction",
//	  "message": "no reaction found for this user"
//	}
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/noticeboard/internal/services"
)

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeMissingField     = "missing_field"

	// Domain-specific:
	ErrCodeMissingHeader         = "missing_header"
	ErrCodeMissingIdempotencyKey = "missing_idempotency_key"
	ErrCodeInvalidReactionType   = "invalid_reaction_type"
	ErrCodeNoReaction            = "no_reaction"
	ErrCodeInvalidLimit          = "invalid_limit"
	ErrCodeCommentTooLong        = "comment_too_long"
	ErrCodeLedgerDisabled        = "ledger_disabled"
)

// failService maps a service error onto the response envelope. Unknown errors
// become 500 internal_error and are logged by fail.
func failService(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrAnnouncementNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "announcement not found")
	case errors.Is(err, services.ErrNoReactionFound):
		fail(c, http.StatusNotFound, ErrCodeNoReaction, "no reaction found for this user")
	case errors.Is(err, services.ErrDuplicateAnnouncement):
		fail(c, http.StatusConflict, ErrCodeConflict, "announcement id already exists")
	case errors.Is(err, services.ErrMissingUserID):
		fail(c, http.StatusBadRequest, ErrCodeMissingHeader, "X-User-ID header is required")
	case errors.Is(err, services.ErrMissingIdempotencyKey):
		fail(c, http.StatusBadRequest, ErrCodeMissingIdempotencyKey, "Idempotency-Key header is required")
	case errors.Is(err, services.ErrInvalidReactionType):
		fail(c, http.StatusBadRequest, ErrCodeInvalidReactionType, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrAuthorRequired),
		errors.Is(err, services.ErrEmptyComment):
		fail(c, http.StatusBadRequest, ErrCodeMissingField, err.Error())
	case errors.Is(err, services.ErrCommentTooLong):
		fail(c, http.StatusBadRequest, ErrCodeCommentTooLong, err.Error())
	case errors.Is(err, services.ErrInvalidLimit):
		fail(c, http.StatusBadRequest, ErrCodeInvalidLimit, err.Error())
	case errors.Is(err, services.ErrLedgerDisabled):
		fail(c, http.StatusServiceUnavailable, ErrCodeLedgerDisabled, "reaction history is disabled")
	default:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
	}
}
