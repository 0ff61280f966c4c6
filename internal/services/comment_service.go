// Package services – CommentService
//
// This file implements CommentService, which validates comment input and
// appends it to an announcement's append-only comment list.
package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/noticeboard/internal/domain"
	"github.com/tbourn/noticeboard/internal/registry"
)

// MaxCommentLimit caps how many comments a single List call returns.
const MaxCommentLimit = 100

// CommentService adds and lists comments.
type CommentService struct {
	Registry *registry.Registry
	Clock    clockwork.Clock

	// MaxCommentRunes caps comment text by rune length; 0 disables the check.
	MaxCommentRunes int
}

// NewCommentService constructs a CommentService with a 2000-rune text cap.
func NewCommentService(reg *registry.Registry, clock clockwork.Clock) *CommentService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &CommentService{Registry: reg, Clock: clock, MaxCommentRunes: 2000}
}

// Add appends a comment by author to announcement id.
func (s *CommentService) Add(ctx context.Context, id, author, text string) (*domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	_, span := tr.Start(ctx, "Add",
		trace.WithAttributes(attribute.String("announcement.id", id)),
	)
	defer span.End()

	author = strings.TrimSpace(author)
	if author == "" {
		return nil, ErrAuthorRequired
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyComment
	}
	if s.MaxCommentRunes > 0 && utf8.RuneCountInString(text) > s.MaxCommentRunes {
		return nil, ErrCommentTooLong
	}

	c := domain.Comment{Author: author, Text: text, CreatedAt: s.Clock.Now().UTC()}
	if _, err := s.Registry.AddComment(id, c); err != nil {
		return nil, mapRegistryErr(err)
	}
	return &c, nil
}

// List returns the first limit comments of announcement id in insertion
// order. limit must be positive and is clamped to MaxCommentLimit.
func (s *CommentService) List(ctx context.Context, id string, limit int) ([]domain.Comment, error) {
	tr := otel.Tracer("services/CommentService")
	_, span := tr.Start(ctx, "List",
		trace.WithAttributes(
			attribute.String("announcement.id", id),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	if limit > MaxCommentLimit {
		limit = MaxCommentLimit
	}
	cs, err := s.Registry.Comments(id, limit)
	if err != nil {
		return nil, mapRegistryErr(err)
	}
	return cs, nil
}
