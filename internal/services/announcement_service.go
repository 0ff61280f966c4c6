// Package services – AnnouncementService
//
// This file implements AnnouncementService, which validates and normalizes
// announcement input, assigns ids, keeps the search index in step with the
// registry, and exposes list/get/close.
package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/noticeboard/internal/domain"
	"github.com/tbourn/noticeboard/internal/registry"
	"github.com/tbourn/noticeboard/internal/search"
)

// AnnouncementService provides announcement-level operations.
type AnnouncementService struct {
	Registry *registry.Registry
	Index    search.Index
	Clock    clockwork.Clock

	// TitleMaxLen caps stored titles by rune length.
	TitleMaxLen int
	// SearchLimit caps ranked results returned for a query.
	SearchLimit int
}

// NewAnnouncementService constructs an AnnouncementService with default
// title and search limits.
func NewAnnouncementService(reg *registry.Registry, idx search.Index, clock clockwork.Clock) *AnnouncementService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &AnnouncementService{
		Registry:    reg,
		Index:       idx,
		Clock:       clock,
		TitleMaxLen: 200,
		SearchLimit: 50,
	}
}

// Create stores a new active announcement. A blank id is replaced by a UUID.
func (s *AnnouncementService) Create(ctx context.Context, id, title, description string) (*domain.Announcement, error) {
	tr := otel.Tracer("services/AnnouncementService")
	_, span := tr.Start(ctx, "Create")
	defer span.End()

	title = s.clip(normalizeTitle(title))
	if title == "" {
		return nil, ErrTitleRequired
	}
	id = strings.TrimSpace(id)
	if id == "" {
		id = uuid.NewString()
	}
	span.SetAttributes(attribute.String("announcement.id", id))

	a, err := s.Registry.Create(domain.Announcement{
		ID:          id,
		Title:       title,
		Description: strings.TrimSpace(description),
		CreatedAt:   s.Clock.Now().UTC(),
	})
	switch {
	case errors.Is(err, registry.ErrDuplicateID):
		return nil, ErrDuplicateAnnouncement
	case errors.Is(err, registry.ErrTitleRequired):
		return nil, ErrTitleRequired
	case err != nil:
		return nil, fmt.Errorf("create announcement: %w", err)
	}

	if s.Index != nil {
		s.Index.Put(a.ID, a.Title, a.Description)
	}
	return &a, nil
}

// List returns announcements newest first. A non-empty query instead returns
// the best search matches, best first.
func (s *AnnouncementService) List(ctx context.Context, query string) ([]domain.Announcement, error) {
	tr := otel.Tracer("services/AnnouncementService")
	_, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("query", query)),
	)
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" || s.Index == nil {
		return s.Registry.List(), nil
	}

	hits := s.Index.TopK(query, s.SearchLimit)
	out := make([]domain.Announcement, 0, len(hits))
	for _, h := range hits {
		a, err := s.Registry.Get(h.ID)
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

// Get returns one announcement.
func (s *AnnouncementService) Get(ctx context.Context, id string) (*domain.Announcement, error) {
	tr := otel.Tracer("services/AnnouncementService")
	_, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("announcement.id", id)),
	)
	defer span.End()

	a, err := s.Registry.Get(id)
	if err != nil {
		return nil, mapRegistryErr(err)
	}
	return &a, nil
}

// Close marks the announcement closed. Closing a closed announcement succeeds.
func (s *AnnouncementService) Close(ctx context.Context, id string) (*domain.Announcement, error) {
	tr := otel.Tracer("services/AnnouncementService")
	_, span := tr.Start(ctx, "Close",
		trace.WithAttributes(attribute.String("announcement.id", id)),
	)
	defer span.End()

	a, err := s.Registry.Close(id)
	if err != nil {
		return nil, mapRegistryErr(err)
	}
	return &a, nil
}

// clip truncates a title to the configured maximum rune length.
func (s *AnnouncementService) clip(title string) string {
	if s.TitleMaxLen > 0 && utf8.RuneCountInString(title) > s.TitleMaxLen {
		return strings.TrimSpace(string([]rune(title)[:s.TitleMaxLen]))
	}
	return title
}

func mapRegistryErr(err error) error {
	if errors.Is(err, registry.ErrNotFound) {
		return ErrAnnouncementNotFound
	}
	return err
}

// normalizeTitle trims whitespace and collapses multiple spaces to one.
func normalizeTitle(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(s), " ")
}

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)
