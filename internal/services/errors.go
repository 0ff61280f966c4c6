// Package services defines the business logic for announcements, comments and
// reactions. This file centralizes service-level error values so that they can
// be consistently returned by service methods and checked by callers.
//
// Translation into HTTP status codes is performed in the handler layer.
package services

import (
	"errors"

	"github.com/tbourn/noticeboard/internal/domain"
)

// Announcement errors.
var (
	// ErrAnnouncementNotFound indicates no announcement exists for the id.
	ErrAnnouncementNotFound = errors.New("announcement not found")

	// ErrTitleRequired is returned when a create request has a blank title.
	ErrTitleRequired = errors.New("title is required")

	// ErrDuplicateAnnouncement is returned when the caller-supplied id is taken.
	ErrDuplicateAnnouncement = errors.New("announcement id already exists")
)

// Comment errors.
var (
	// ErrAuthorRequired is returned when a comment has no author name.
	ErrAuthorRequired = errors.New("author is required")

	// ErrEmptyComment is returned when a comment has no text.
	ErrEmptyComment = errors.New("comment text is empty")

	// ErrCommentTooLong is returned when a comment exceeds MaxCommentRunes.
	ErrCommentTooLong = errors.New("comment too long")

	// ErrInvalidLimit is returned when a list request has a missing or
	// non-positive limit.
	ErrInvalidLimit = errors.New("limit must be a positive integer")
)

// Reaction errors.
var (
	// ErrMissingUserID is returned when the caller identity is absent.
	ErrMissingUserID = errors.New("user id is required")

	// ErrMissingIdempotencyKey is returned when a reaction write carries no
	// Idempotency-Key.
	ErrMissingIdempotencyKey = errors.New("idempotency key is required")

	// ErrInvalidReactionType is returned for types outside up|down|heart.
	ErrInvalidReactionType = domain.ErrInvalidReactionType

	// ErrNoReactionFound is returned by Remove when the user has no reaction
	// on the announcement.
	ErrNoReactionFound = errors.New("no reaction found")

	// ErrLedgerDisabled is returned by History when no ledger is configured.
	ErrLedgerDisabled = errors.New("reaction ledger is disabled")
)
